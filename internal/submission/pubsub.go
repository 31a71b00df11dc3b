package submission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub"
)

// PubSubSink publishes submissions to a Pub/Sub topic.
type PubSubSink struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubSink constructs a sink publishing to topic.
func NewPubSubSink(topic *pubsub.Topic) (*PubSubSink, error) {
	if topic == nil {
		return nil, errors.New("pubsub sink: topic is required")
	}
	return &PubSubSink{topic: topic, marshal: json.Marshal}, nil
}

func (s *PubSubSink) Name() string { return "pubsub" }

// Deliver publishes msg and waits for the server ack.
func (s *PubSubSink) Deliver(ctx context.Context, msg Message) error {
	data, err := s.marshal(msg)
	if err != nil {
		return fmt.Errorf("pubsub sink: marshal: %w", err)
	}
	attrs := make(map[string]string)
	setAttr(attrs, "messageId", msg.ID)
	setAttr(attrs, "lang", msg.Lang)
	setAttr(attrs, "requestId", msg.RequestID)

	result := s.topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("pubsub sink: publish: %w", err)
	}
	return nil
}

func setAttr(attrs map[string]string, key, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
