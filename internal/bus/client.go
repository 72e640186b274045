package bus

import (
	"encoding/json"
	"fmt"
	"time"

	nc "github.com/nats-io/nats.go"
)

// discussionSubjectPrefix namespaces discussion fan-out subjects: every
// namespace gets its own subject so a websocket feed for one tenant never
// sees another tenant's traffic.
const discussionSubjectPrefix = "taskhub.discussion."

// knowledgeDraftSubjectPrefix namespaces the knowledge-draft job queue the
// same way.
const knowledgeDraftSubjectPrefix = "knowledge.draft."

// KnowledgeDraftQueueGroup is the queue group every draft worker joins, so
// a job is delivered to exactly one worker.
const KnowledgeDraftQueueGroup = "knowledge-draft-workers"

// DiscussionSubject returns the fan-out subject for a namespace's discussion log.
func DiscussionSubject(namespace string) string {
	return discussionSubjectPrefix + namespace
}

// KnowledgeDraftSubject returns the job-queue subject for a namespace's
// knowledge-draft work.
func KnowledgeDraftSubject(namespace string) string {
	return knowledgeDraftSubjectPrefix + namespace
}

// Client wraps a NATS connection with JSON convenience helpers.
type Client struct {
	conn *nc.Conn
}

// NewClient connects to the bus at url with indefinite reconnect.
func NewClient(url string) (*Client, error) {
	conn, err := nc.Connect(url,
		nc.ReconnectWait(2*time.Second),
		nc.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("bus: connect: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the connection without draining it.
func (c *Client) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}

// PublishJSON marshals v and publishes it to subject.
func (c *Client) PublishJSON(subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("bus: marshal: %w", err)
	}
	if err := c.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("bus: publish %s: %w", subject, err)
	}
	return nil
}

// SubscribeJSON decodes each message body as T and invokes handler. The
// returned subscription can be unsubscribed by the caller.
func SubscribeJSON[T any](c *Client, subject string, handler func(T)) (*nc.Subscription, error) {
	return c.conn.Subscribe(subject, func(msg *nc.Msg) {
		var v T
		if err := json.Unmarshal(msg.Data, &v); err != nil {
			return
		}
		handler(v)
	})
}

// QueueSubscribeJSON is SubscribeJSON with load-balancing across every
// subscriber sharing queue — the shape a worker pool uses to split jobs.
func QueueSubscribeJSON[T any](c *Client, subject, queue string, handler func(T)) (*nc.Subscription, error) {
	return c.conn.QueueSubscribe(subject, queue, func(msg *nc.Msg) {
		var v T
		if err := json.Unmarshal(msg.Data, &v); err != nil {
			return
		}
		handler(v)
	})
}
