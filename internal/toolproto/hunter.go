package toolproto

import (
	"context"
	"encoding/json"
	"net/http"
)

func (d *Dispatcher) registerHunterTools() {
	d.register(Tool{
		Name:        "taskhub.hunter.register",
		Description: "Register yourself as a hunter, optionally seeding initial skill levels. Calling this again for an already-registered hunter layers the given skills on top of existing ones rather than replacing them.",
		Schema: schemaObject(map[string]any{
			"skills": map[string]any{
				"type":                 "object",
				"description":          "Skill name -> level (0-100). Any skill name is accepted.",
				"additionalProperties": map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
			},
		}),
		Handler: func(ctx context.Context, header http.Header, args json.RawMessage) (any, error) {
			var in struct {
				Skills map[string]int `json:"skills"`
			}
			if len(args) > 0 {
				if err := json.Unmarshal(args, &in); err != nil {
					return nil, badArgs(err)
				}
			}
			return d.orch.HunterRegister(ctx, header, in.Skills)
		},
	})

	d.register(Tool{
		Name:        "taskhub.hunter.study",
		Description: "Study a knowledge item, raising your skill levels in the domains it's tagged with. This is the only way for a hunter to gain skill without a reported evaluation.",
		Schema: schemaObject(map[string]any{
			"knowledge_id": stringProp("ID of the knowledge item to study."),
		}, "knowledge_id"),
		Handler: func(ctx context.Context, header http.Header, args json.RawMessage) (any, error) {
			var in struct {
				KnowledgeID string `json:"knowledge_id"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, badArgs(err)
			}
			return d.orch.HunterStudy(ctx, header, in.KnowledgeID)
		},
	})
}
