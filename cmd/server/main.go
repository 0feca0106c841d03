package main

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/sujalbistaa/quillpost/internal/auth"
	"github.com/sujalbistaa/quillpost/internal/config"
	"github.com/sujalbistaa/quillpost/internal/db"
	"github.com/sujalbistaa/quillpost/internal/events"
	routes "github.com/sujalbistaa/quillpost/internal/http"
	"github.com/sujalbistaa/quillpost/internal/session"
	"github.com/sujalbistaa/quillpost/internal/store"
)

func main() {
	// Production sets the environment directly, so a missing .env is fine.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Database
	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	log.Println("Running database migrations...")
	if err := db.Migrate(database); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Migrations complete.")

	// 2. Sessions
	sessions, err := session.New(ctx, session.Options{
		Lifetime:     cfg.SessionLifetime,
		CookieSecure: cfg.CookieSecure,
		RedisURL:     cfg.RedisURL,
	})
	if err != nil {
		log.Fatalf("Failed to initialize sessions: %v", err)
	}

	// 3. Events
	hub := events.NewHub()
	go hub.Run(ctx)
	publishers := events.Multi{hub}
	// log.Fatal skips deferred calls, so these are closed by hand.
	var closers []io.Closer
	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := events.DialKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Fatalf("Failed to initialize kafka: %v", err)
		}
		publishers = append(publishers, kafka)
		closers = append(closers, kafka)
	}

	csrfKey := cfg.CSRFKey
	if csrfKey == nil {
		log.Println("CSRF_KEY not set, generating a key for this process")
		csrfKey = make([]byte, 32)
		if _, err := rand.Read(csrfKey); err != nil {
			log.Fatalf("Failed to generate csrf key: %v", err)
		}
	}

	// 4. Router
	content := store.New(database)
	env := &routes.Env{
		Store:    content,
		Sessions: sessions,
		Auth:     auth.NewManager(sessions, content),
		Hasher:   auth.DefaultHasher,
		Events:   publishers,
		Hub:      hub,
	}
	handler, err := routes.SetupRoutes(ctx, gin.New(), env, routes.Options{
		CORSOrigin:     cfg.CORSOrigin,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		CSRFKey:        csrfKey,
		SecureCookies:  cfg.CookieSecure,
	})
	if err != nil {
		closeAll(closers)
		log.Fatalf("Failed to set up routes: %v", err)
	}

	// 5. Serve until signalled
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       time.Minute,
	}

	go func() {
		log.Printf("Server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	<-ctx.Done()
	stop()
	log.Println("Shutting down server...")

	if err := shutdown(srv, 5*time.Second, closers...); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}

// shutdown drains srv and only then closes the event sinks, so requests in
// flight can still publish.
func shutdown(srv *http.Server, timeout time.Duration, closers ...io.Closer) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	err := srv.Shutdown(ctx)
	closeAll(closers)
	return err
}

func closeAll(closers []io.Closer) {
	for _, c := range closers {
		if err := c.Close(); err != nil {
			log.Printf("Failed to close %T: %v", c, err)
		}
	}
}
