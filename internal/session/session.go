package session

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/goredisstore"
	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"github.com/redis/go-redis/v9"
)

type Options struct {
	Lifetime     time.Duration
	CookieSecure bool
	// RedisURL selects the Redis store; empty keeps sessions in memory.
	RedisURL string
}

// New builds the scs session manager used by the HTTP layer.
func New(ctx context.Context, opts Options) (*scs.SessionManager, error) {
	sm := scs.New()
	sm.Lifetime = opts.Lifetime
	sm.Cookie.Name = "blog_session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = opts.CookieSecure
	sm.Cookie.SameSite = http.SameSiteLaxMode

	if opts.RedisURL == "" {
		sm.Store = memstore.New()
		return sm, nil
	}

	ropts, err := redis.ParseURL(opts.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(ropts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect redis: %w", err)
	}
	sm.Store = goredisstore.New(client)
	return sm, nil
}
