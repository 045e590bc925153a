// demoshop serves the local storefront so the suite can run without the
// public site:
//
//	demoshop -addr :8080 &
//	BASE_URL=http://localhost:8080/ shopcheck
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kuitang/storefront-e2e/internal/demoshop"
	"github.com/kuitang/storefront-e2e/internal/obs"
	"github.com/kuitang/storefront-e2e/internal/ratelimit"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	addr := flag.String("addr", envOr("DEMOSHOP_ADDR", ":8080"), "Listen address")
	password := flag.String("password", envOr("DEMOSHOP_PASSWORD", demoshop.DefaultPassword), "Password shared by all accounts")
	level := flag.String("log-level", envOr("LOG_LEVEL", "info"), "debug, info, warn or error")
	rps := flag.Float64("rps", 0, "Per-client requests per second (0 disables throttling)")
	flag.Parse()

	if err := obs.Init(*level, ""); err != nil {
		log.Fatalf("Failed to initialise logging: %v", err)
	}

	opts := demoshop.Options{Password: *password}
	if *rps > 0 {
		limits := ratelimit.DefaultConfig
		limits.RPS = *rps
		limits.Burst = max(1, int(*rps*2))
		opts.RateLimit = &limits
	}
	shop, err := demoshop.New(opts)
	if err != nil {
		log.Fatalf("Failed to build storefront: %v", err)
	}
	defer shop.Close()

	srv := &http.Server{
		Addr:              *addr,
		Handler:           shop.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go func() {
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger := obs.Pkg("demoshop")
	logger.Info("listening", "addr", *addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	logger.Info("stopped")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
