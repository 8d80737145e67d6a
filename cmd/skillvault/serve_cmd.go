package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/daniel-p-green/skillvault/pkg/api"
	"github.com/daniel-p-green/skillvault/pkg/config"
	"github.com/daniel-p-green/skillvault/pkg/contracts"
	"github.com/daniel-p-green/skillvault/pkg/logging"
	"github.com/daniel-p-green/skillvault/pkg/store"
	"github.com/daniel-p-green/skillvault/pkg/telemetry"
	"github.com/daniel-p-green/skillvault/pkg/tracing"
)

// gateWriteScope is the JWT scope claim required to call /v1/gate when
// bearer-token auth is enabled.
const gateWriteScope = "gate:write"

// pipelineScanner adapts scanAndSign to api.Scanner, the interface the HTTP
// gate handler depends on so it never imports pkg/bundle, pkg/policy, or
// pkg/receipt directly.
type pipelineScanner struct {
	signingKey string
	keyID      string
}

func (s pipelineScanner) ScanAndSign(ctx context.Context, bundleLocation, policyProfile, approvalToken string, deterministic bool) (contracts.Receipt, error) {
	rec, _, err := scanAndSign(ctx, bundleLocation, "", policyProfile, approvalToken, s.signingKey, s.keyID, deterministic)
	return rec, err
}

// runServeCmd implements `skillvault serve`: starts the gate HTTP API.
// Apart from the signing-key, key-id and rate-limit flags, configuration
// comes from the environment (pkg/config), matching how the CLI is deployed
// as a long-running service rather than invoked per-bundle.
//
// Exit codes:
//
//	0 = clean shutdown (SIGINT/SIGTERM)
//	2 = startup error
func runServeCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("serve", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		signingKey string
		keyID      string
		rps        int
		burst      int
	)
	cmd.StringVar(&signingKey, "signing-key", os.Getenv("SKILLVAULT_SIGNING_KEY"), "Path to an Ed25519 private key PEM (REQUIRED)")
	cmd.StringVar(&keyID, "key-id", os.Getenv("SKILLVAULT_KEY_ID"), "Key ID for the signing key (REQUIRED)")
	cmd.IntVar(&rps, "rate-limit-rps", 5, "Requests per second allowed per client IP")
	cmd.IntVar(&burst, "rate-limit-burst", 10, "Burst size for the per-IP rate limiter")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if signingKey == "" || keyID == "" {
		fmt.Fprintln(stderr, "Error: --signing-key and --key-id are required (or SKILLVAULT_SIGNING_KEY / SKILLVAULT_KEY_ID)")
		return 2
	}
	if _, err := loadSigner(signingKey, keyID); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	cfg := config.Load()
	log := logging.NewDefault(cfg.LogLevel)

	if cfg.OTLPEndpoint != "" {
		tp, err := tracing.New(context.Background(), tracing.Config{
			ServiceName: "skillvault-gate",
			Endpoint:    cfg.OTLPEndpoint,
			Insecure:    true,
		})
		if err != nil {
			fmt.Fprintf(stderr, "Error: start tracing: %v\n", err)
			return 2
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = tp.Shutdown(shutdownCtx)
		}()
	}

	var audit api.AuditLog
	if cfg.GateAuditDSN != "" {
		db, err := sql.Open("postgres", cfg.GateAuditDSN)
		if err != nil {
			fmt.Fprintf(stderr, "Error: open audit database: %v\n", err)
			return 2
		}
		defer db.Close()
		pg, err := api.NewPostgresAuditLog(db)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		audit = pg
	}

	inventory, err := store.Open(cfg.StoreDSN)
	if err != nil {
		fmt.Fprintf(stderr, "Error: open skill inventory: %v\n", err)
		return 2
	}
	defer inventory.Close()

	outbox, err := telemetry.NewSQLiteOutbox(inventory.DB())
	if err != nil {
		fmt.Fprintf(stderr, "Error: open telemetry outbox: %v\n", err)
		return 2
	}

	scanner := pipelineScanner{signingKey: signingKey, keyID: keyID}
	handler, err := api.NewHandler(scanner, &inventoryAudit{inner: audit, store: inventory, outbox: outbox, log: log}, log)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	limiter, closeLimiter, err := buildRateLimiter(cfg.RedisURL, rps, burst)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if closeLimiter != nil {
		defer closeLimiter()
	}
	gated := applyAuth(limiter.Middleware(handler), cfg.AuthHMACSecret, log)

	mux := http.NewServeMux()
	mux.Handle("/v1/gate", gated)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.ListenAndServe() }()
	log.Info("gate server listening", "port", cfg.Port)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(stderr, "Error: shutdown: %v\n", err)
			return 2
		}
	}
	fmt.Fprintln(stdout, "gate server stopped")
	return 0
}

// applyAuth wraps next in RequireScope when hmacSecret is set, requiring
// gateWriteScope on every request. An empty hmacSecret leaves the route
// unauthenticated (logged loudly, since an operator who forgot to set
// SKILLVAULT_AUTH_HMAC_SECRET should notice immediately).
func applyAuth(next http.Handler, hmacSecret string, log *slog.Logger) http.Handler {
	if hmacSecret == "" {
		log.Warn("SKILLVAULT_AUTH_HMAC_SECRET not set: gate route is unauthenticated")
		return next
	}
	validator := api.NewJWTValidator(func(*jwt.Token) (any, error) {
		return []byte(hmacSecret), nil
	})
	return api.RequireScope(validator, gateWriteScope)(next)
}

// rateLimiter is satisfied by both the in-process and Redis-backed
// limiters; runServeCmd picks one based on whether REDIS_URL is set so a
// single-replica deployment never needs Redis at all.
type rateLimiter interface {
	Middleware(next http.Handler) http.Handler
}

// buildRateLimiter picks a distributed Redis-backed limiter when redisURL
// is set, falling back to the in-process per-replica limiter otherwise.
func buildRateLimiter(redisURL string, rps, burst int) (rateLimiter, func(), error) {
	if redisURL == "" {
		return api.NewGlobalRateLimiter(rps, burst), nil, nil
	}
	rl, err := api.NewRedisRateLimiter(redisURL, rps, burst)
	if err != nil {
		return nil, nil, fmt.Errorf("connect rate limit redis: %w", err)
	}
	return rl, func() { _ = rl.Close() }, nil
}

// inventoryAudit fans a gate decision out to the optional Postgres audit
// log, the local skill inventory, and the telemetry outbox, so every
// receipt the server signs lands in pkg/store and is queued for telemetry
// delivery even when DATABASE_URL is unset.
type inventoryAudit struct {
	inner interface {
		Record(ctx context.Context, rec contracts.Receipt, remoteAddr string) error
	}
	store  *store.Store
	outbox telemetry.Outbox
	log    interface {
		Warn(msg string, args ...any)
	}
}

func (a *inventoryAudit) Record(ctx context.Context, rec contracts.Receipt, remoteAddr string) error {
	if err := a.store.Put(ctx, rec); err != nil {
		a.log.Warn("skill inventory record failed", "bundle_sha256", rec.BundleSha256, "error", err)
	}
	if a.outbox != nil {
		ev := telemetry.Event{
			BundleSha256: rec.BundleSha256,
			Verdict:      rec.Policy.Verdict,
			RiskTotal:    rec.Policy.RiskScore.Total,
			OccurredAt:   rec.CreatedAt,
		}
		if err := a.outbox.Enqueue(ctx, uuid.NewString(), ev); err != nil {
			a.log.Warn("telemetry enqueue failed", "bundle_sha256", rec.BundleSha256, "error", err)
		}
	}
	if a.inner != nil {
		return a.inner.Record(ctx, rec, remoteAddr)
	}
	return nil
}
