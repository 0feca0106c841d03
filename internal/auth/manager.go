package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log"

	"github.com/alexedwards/scs/v2"

	"github.com/sujalbistaa/quillpost/internal/models"
)

const (
	userIDKey      = "auth.user_id"
	fingerprintKey = "auth.fingerprint"
)

// UserLookup loads the account a session points at.
type UserLookup interface {
	GetUser(ctx context.Context, id uint) (*models.User, error)
}

// Manager binds users to scs sessions. Every session is tied to the
// fingerprint of the client that logged in; a request from a different
// fingerprint loses the session.
type Manager struct {
	sessions *scs.SessionManager
	users    UserLookup
}

func NewManager(sessions *scs.SessionManager, users UserLookup) *Manager {
	return &Manager{sessions: sessions, users: users}
}

// Fingerprint identifies a client by address and user agent.
func Fingerprint(clientIP, userAgent string) string {
	sum := sha256.Sum256([]byte(clientIP + "|" + userAgent))
	return hex.EncodeToString(sum[:])
}

func (m *Manager) Login(ctx context.Context, user *models.User, fingerprint string) error {
	if user == nil || user.ID == 0 {
		return errors.New("login requires a persisted user")
	}
	if err := m.sessions.RenewToken(ctx); err != nil {
		return err
	}
	m.sessions.Put(ctx, userIDKey, int(user.ID))
	m.sessions.Put(ctx, fingerprintKey, fingerprint)
	return nil
}

func (m *Manager) Logout(ctx context.Context) error {
	return m.sessions.Destroy(ctx)
}

// Resolve returns the identity bound to the session in ctx.
func (m *Manager) Resolve(ctx context.Context, fingerprint string) Identity {
	id := m.sessions.GetInt(ctx, userIDKey)
	if id <= 0 {
		return Anonymous
	}

	if m.sessions.GetString(ctx, fingerprintKey) != fingerprint {
		log.Printf("Session fingerprint mismatch for user %d, dropping session", id)
		if err := m.sessions.Destroy(ctx); err != nil {
			log.Printf("Error destroying session: %v", err)
		}
		return Anonymous
	}

	user, err := m.users.GetUser(ctx, uint(id))
	if err != nil {
		log.Printf("Session user %d could not be loaded: %v", id, err)
		m.sessions.Remove(ctx, userIDKey)
		m.sessions.Remove(ctx, fingerprintKey)
		return Anonymous
	}
	return Identity{User: user}
}
