package auth

import (
	"context"

	"github.com/sujalbistaa/quillpost/internal/models"
)

// Identity is who the current request acts as. The zero value is anonymous.
type Identity struct {
	User *models.User
}

var Anonymous = Identity{}

func (i Identity) Authenticated() bool { return i.User != nil }

// UserID returns 0 for anonymous identities.
func (i Identity) UserID() uint {
	if i.User == nil {
		return 0
	}
	return i.User.ID
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity resolved for this request, or Anonymous.
func FromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(identityKey{}).(Identity)
	return id
}
