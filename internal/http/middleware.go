package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sujalbistaa/quillpost/internal/auth"
)

// LoadIdentity resolves the session user once and stores it in the
// request context for every later handler.
func (e *Env) LoadIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		id := e.Auth.Resolve(ctx, clientFingerprint(c))
		c.Request = c.Request.WithContext(auth.WithIdentity(ctx, id))
		c.Next()
	}
}

// RequireAuth sends anonymous visitors to the login page.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !auth.FromContext(c.Request.Context()).Authenticated() {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAdmin stops every request the gate does not allow with a bare 403.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if auth.Authorize(auth.FromContext(c.Request.Context())) != auth.Allowed {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}

// RequestIDMiddleware tags each request so log lines can be correlated.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set("requestID", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// SecurityHeadersMiddleware adds basic, sensible security headers.
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "same-origin")

		// Post images and gravatars are remote; Bootstrap comes from the CDN.
		csp := "default-src 'self';"
		csp += " script-src 'self' 'unsafe-inline' cdn.jsdelivr.net;"
		csp += " style-src 'self' 'unsafe-inline' cdn.jsdelivr.net;"
		csp += " img-src * data:;"
		csp += " connect-src 'self';"
		c.Header("Content-Security-Policy", csp)

		c.Next()
	}
}
