package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/rickgao/livenotify/internal/model"
)

// Metadata keys set on every in-app message.
const (
	MetadataTopic    = "source_topic"
	MetadataSeverity = "severity"
)

// InApp publishes in-app notifications to a watermill topic.
type InApp struct {
	pub   message.Publisher
	topic string
}

// NewInApp creates an in-app sink publishing on topic.
func NewInApp(pub message.Publisher, topic string) *InApp {
	return &InApp{pub: pub, topic: topic}
}

// Topic returns the topic notifications are published on.
func (s *InApp) Topic() string {
	return s.topic
}

// Enqueue publishes n. The message UUID is the notification ID.
func (s *InApp) Enqueue(ctx context.Context, n model.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	msg := message.NewMessage(n.ID.String(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set(MetadataTopic, n.Topic)
	msg.Metadata.Set(MetadataSeverity, string(n.Severity))

	if err := s.pub.Publish(s.topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", s.topic, err)
	}
	return nil
}

// DecodeNotification decodes an in-app message payload.
func DecodeNotification(msg *message.Message) (model.Notification, error) {
	var n model.Notification
	if err := json.Unmarshal(msg.Payload, &n); err != nil {
		return model.Notification{}, fmt.Errorf("decode notification %s: %w", msg.UUID, err)
	}
	return n, nil
}
