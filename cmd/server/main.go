package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/referlabs/referral-engine/internal/api"
	"github.com/referlabs/referral-engine/internal/config"
	"github.com/referlabs/referral-engine/internal/notify"
	"github.com/referlabs/referral-engine/internal/pkg/ratelimit"
	"github.com/referlabs/referral-engine/internal/repository/postgres"
	"github.com/referlabs/referral-engine/internal/service/ambassador"
	"github.com/referlabs/referral-engine/internal/service/attribution"
	"github.com/referlabs/referral-engine/internal/service/business"
	"github.com/referlabs/referral-engine/internal/service/delivery"
	"github.com/referlabs/referral-engine/internal/service/referral"
	"github.com/referlabs/referral-engine/internal/service/settlement"
)

// checkPortAvailable verifies that the target port is not already in use.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v", port, addr, err)
	}
	ln.Close()
	return nil
}

func main() {
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if os.Getenv("DATABASE_URL") != "" {
		log.Println("[config] DATABASE_URL env override active")
	}

	host := cfg.Server.GetHost()
	port := cfg.Server.Port
	if err := checkPortAvailable(host, port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}

	if cfg.Database.URL == "" {
		log.Fatal("database url is required (config database.url or DATABASE_URL)")
	}
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("Connected to Postgres")

	var redisClient *redis.Client
	var limiter *ratelimit.Limiter
	var alerts *ratelimit.AlertGate
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatalf("Invalid redis URL: %v", err)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Printf("WARNING: redis unreachable at startup: %v", err)
		}
		limiter = ratelimit.NewLimiter(redisClient)
		alerts = ratelimit.NewAlertGate(redisClient, time.Hour)
	} else {
		log.Println("WARNING: no redis configured, rate limiting disabled")
	}

	// Repositories
	ambassadorRepo := postgres.NewAmbassadorRepo(db)
	referralRepo := postgres.NewReferralRepo(db)
	businessRepo := postgres.NewBusinessRepo(db)
	messageRepo := postgres.NewMessageRepo(db)
	eventRepo := postgres.NewEventRepo(db)

	var ledger settlement.Ledger
	if cfg.Rewards.CreditLedger {
		ledger = postgres.NewLedgerRepo(db)
		log.Println("Credit ledger enabled")
	}

	var notifier settlement.Notifier = notify.NewLogNotifier()
	if cfg.Notify.Enabled && cfg.Notify.FromEmail != "" {
		sesNotifier, err := notify.NewSESNotifier(context.Background(), cfg.Notify)
		if err != nil {
			log.Printf("WARNING: SES notifier unavailable, falling back to log: %v", err)
		} else {
			notifier = sesNotifier
			log.Printf("Reward notifications via SES (%s)", cfg.Notify.SESRegion)
		}
	}

	// Services
	attributionSvc := attribution.NewService(ambassadorRepo)
	ambassadorSvc := ambassador.NewService(ambassadorRepo)
	businessSvc := business.NewService(businessRepo)
	engine := settlement.NewEngine(ambassadorRepo, referralRepo, eventRepo, ledger, notifier)
	referralSvc := referral.NewService(referralRepo, ambassadorSvc, eventRepo, engine)
	deliverySvc := delivery.NewService(messageRepo, eventRepo)

	handlers := api.NewHandlers(
		attributionSvc, referralSvc, ambassadorSvc, businessSvc, deliverySvc,
		eventRepo, eventRepo, eventRepo,
		cfg.Secrets(), limiter, alerts, cfg.RateLimit,
		db, redisClient,
	)
	router := api.SetupRoutes(handlers)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", host, port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Printf("Listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
