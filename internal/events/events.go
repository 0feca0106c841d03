// Package events fans blog activity out to live websocket viewers and,
// optionally, a Kafka topic.
package events

import (
	"context"
	"errors"
)

const (
	UserRegistered = "user_registered"
	PostCreated    = "post_created"
	PostUpdated    = "post_updated"
	PostDeleted    = "post_deleted"
	CommentCreated = "comment_created"
)

// Event is the JSON envelope sent to every subscriber.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Multi publishes to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
