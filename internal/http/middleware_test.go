package http

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestRateLimiterForgetsIdleVisitors(t *testing.T) {
	rl := NewIPRateLimiter(rate.Limit(1), 1)
	assert.True(t, rl.GetLimiter("10.0.0.1").Allow())
	assert.False(t, rl.GetLimiter("10.0.0.1").Allow())
	rl.GetLimiter("10.0.0.2")
	assert.Equal(t, 2, rl.size())

	rl.forgetIdle(time.Now().Add(time.Minute))
	assert.Equal(t, 0, rl.size())
}

func TestParseID(t *testing.T) {
	id, ok := parseID("12")
	assert.True(t, ok)
	assert.Equal(t, uint(12), id)
	for _, s := range []string{"", "0", "-1", "abc", "99999999999"} {
		_, ok := parseID(s)
		assert.False(t, ok, s)
	}
}

func TestGravatarURL(t *testing.T) {
	// md5("test@example.com")
	want := "https://www.gravatar.com/avatar/55502f40dc8b7c769880b10874abc9d0?s=100&r=g&d=retro"
	assert.Equal(t, want, gravatarURL(" Test@Example.com "))
}

func TestFieldErrorsOnNonValidationError(t *testing.T) {
	assert.Equal(t, map[string]string{"Form": "The form could not be read."}, fieldErrors(errors.New("boom")))
}

func TestCorsConfig(t *testing.T) {
	assert.True(t, corsConfig("*").AllowAllOrigins)
	cfg := corsConfig("https://blog.example.com")
	assert.Equal(t, []string{"https://blog.example.com"}, cfg.AllowOrigins)
	assert.True(t, cfg.AllowCredentials)
}
