package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Options tunes the cross-cutting middleware.
type Options struct {
	CORSOrigin     string
	RateLimitRPS   float64
	RateLimitBurst int

	// CSRFKey must be 32 bytes.
	CSRFKey       []byte
	SecureCookies bool
}

// SetupRoutes configures all application routes and middleware and returns
// the handler to serve. ctx bounds the background rate limiter sweep.
func SetupRoutes(ctx context.Context, router *gin.Engine, env *Env, opts Options) (http.Handler, error) {
	if len(opts.CSRFKey) != 32 {
		return nil, fmt.Errorf("csrf key must be 32 bytes, got %d", len(opts.CSRFKey))
	}
	tmpl, err := ParseTemplates()
	if err != nil {
		return nil, err
	}
	router.SetHTMLTemplate(tmpl)
	if err := router.SetTrustedProxies(nil); err != nil {
		return nil, err
	}

	// --- Middleware ---

	router.Use(RequestIDMiddleware())
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(SecurityHeadersMiddleware())
	router.Use(cors.New(corsConfig(opts.CORSOrigin)))

	limiter := NewIPRateLimiter(rate.Limit(opts.RateLimitRPS), opts.RateLimitBurst)
	go limiter.Sweep(ctx, 10*time.Minute)
	throttle := env.RateLimitMiddleware(limiter)

	getPost := []string{http.MethodGet, http.MethodPost}

	// --- Live feed ---

	router.GET("/ws", func(c *gin.Context) {
		env.Hub.ServeWs(c.Writer, c.Request)
	})

	// --- Site ---

	site := router.Group("/", env.LoadIdentity(), env.CSRFMiddleware(opts.CSRFKey, opts.SecureCookies))
	{
		site.GET("/", env.Home)
		site.GET("/about", env.About)
		site.GET("/contact", env.Contact)
		site.Match(getPost, "/register", throttle, env.Register)
		site.Match(getPost, "/login", env.Login)
		site.GET("/logout", RequireAuth(), env.Logout)
		site.Match(getPost, "/post/:id", throttle, env.ShowPost)
	}

	admin := site.Group("/", RequireAdmin())
	{
		admin.Match(getPost, "/new-post", env.NewPost)
		admin.Match(getPost, "/edit-post/:id", env.EditPost)
		admin.Match(getPost, "/delete/:id", env.DeletePost)
	}

	router.NoRoute(env.LoadIdentity(), func(c *gin.Context) {
		env.renderError(c, http.StatusNotFound, "Page not found")
	})

	// The websocket upgrade hijacks the connection, so it skips the
	// buffered session writer.
	withSessions := env.Sessions.LoadAndSave(router)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws" {
			router.ServeHTTP(w, r)
			return
		}
		withSessions.ServeHTTP(w, r)
	}), nil
}

func corsConfig(origin string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
	}
	if origin == "" || origin == "*" {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = []string{origin}
	cfg.AllowCredentials = true
	return cfg
}
