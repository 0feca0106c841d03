package http

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
)

const csrfFieldName = "csrf_token"

type ginContextKey struct{}

// CSRFMiddleware checks the csrf_token form field (or X-CSRF-Token header)
// on every unsafe request. Failures render a 403 page and stop the chain.
// secure=false marks requests as plaintext HTTP so the strict Referer check
// meant for TLS is skipped.
func (e *Env) CSRFMiddleware(key []byte, secure bool) gin.HandlerFunc {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := r.Context().Value(ginContextKey{}).(*gin.Context)
		c.Request = r
		c.Next()
	})
	rejected := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := r.Context().Value(ginContextKey{}).(*gin.Context)
		log.Printf("csrf: rejected %s %s: %v", r.Method, r.URL.Path, csrf.FailureReason(r))
		c.Request = r
		e.renderError(c, http.StatusForbidden, "The form has expired or was not sent from this site. Please try again.")
		c.Abort()
	})
	protect := csrf.Protect(key,
		csrf.FieldName(csrfFieldName),
		csrf.CookieName("blog_csrf"),
		csrf.Path("/"),
		csrf.Secure(secure),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(rejected),
	)(next)

	return func(c *gin.Context) {
		r := c.Request.WithContext(context.WithValue(c.Request.Context(), ginContextKey{}, c))
		if !secure {
			r = csrf.PlaintextHTTPRequest(r)
		}
		protect.ServeHTTP(c.Writer, r)
	}
}
