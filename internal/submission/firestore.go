package submission

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const defaultCollection = "contactMessages"

// FirestoreOption customises the FirestoreSink.
type FirestoreOption func(*FirestoreSink)

// WithCollection overrides the collection submissions are stored in.
func WithCollection(name string) FirestoreOption {
	return func(s *FirestoreSink) {
		if name != "" {
			s.collection = name
		}
	}
}

// FirestoreSink archives submissions as documents keyed by message id.
type FirestoreSink struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreSink constructs a sink writing through client.
func NewFirestoreSink(client *firestore.Client, opts ...FirestoreOption) (*FirestoreSink, error) {
	if client == nil {
		return nil, errors.New("firestore sink: client is required")
	}
	s := &FirestoreSink{client: client, collection: defaultCollection}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

func (s *FirestoreSink) Name() string { return "firestore" }

// Deliver creates the document. A document that already exists counts as delivered.
func (s *FirestoreSink) Deliver(ctx context.Context, msg Message) error {
	_, err := s.client.Collection(s.collection).Doc(msg.ID).Create(ctx, msg)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil
		}
		return fmt.Errorf("firestore sink: create %s/%s: %w", s.collection, msg.ID, err)
	}
	return nil
}
