package toolproto

import (
	"context"
	"encoding/json"
	"net/http"
)

func (d *Dispatcher) registerDiscussionTools() {
	d.register(Tool{
		Name:        "taskhub.discussion.post",
		Description: "Post a message to the namespace's shared discussion log, visible to every hunter in it.",
		Schema:      schemaObject(map[string]any{"content": stringProp("Message body.")}, "content"),
		Handler: func(ctx context.Context, header http.Header, args json.RawMessage) (any, error) {
			var in struct {
				Content string `json:"content"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, badArgs(err)
			}
			return d.orch.DiscussionPost(ctx, header, in.Content)
		},
	})

	d.register(Tool{
		Name:        "taskhub.discussion.unread",
		Description: "Fetch discussion messages posted since your last taskhub.discussion.mark_read call.",
		Schema:      schemaObject(map[string]any{}),
		Handler: func(ctx context.Context, header http.Header, _ json.RawMessage) (any, error) {
			return d.orch.DiscussionUnread(ctx, header)
		},
	})

	d.register(Tool{
		Name:        "taskhub.discussion.mark_read",
		Description: "Advance your read watermark on the discussion log to now, without fetching anything.",
		Schema:      schemaObject(map[string]any{}),
		Handler: func(ctx context.Context, header http.Header, _ json.RawMessage) (any, error) {
			return nil, d.orch.DiscussionMarkRead(ctx, header)
		},
	})
}
