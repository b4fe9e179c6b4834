// Package api is the inbound HTTP surface: provider webhooks, the
// referral-form and quick-add endpoints, link-visit capture and health.
//
// Auth rules: expensive endpoints are rate limited before auth so a rejected
// caller stays cheap, and no handler touches storage before its auth check
// passes.
package api

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"

	"github.com/referlabs/referral-engine/internal/config"
	"github.com/referlabs/referral-engine/internal/domain"
	"github.com/referlabs/referral-engine/internal/pkg/httputil"
	"github.com/referlabs/referral-engine/internal/pkg/ratelimit"
	"github.com/referlabs/referral-engine/internal/service/ambassador"
	"github.com/referlabs/referral-engine/internal/service/attribution"
	"github.com/referlabs/referral-engine/internal/service/business"
	"github.com/referlabs/referral-engine/internal/service/delivery"
	"github.com/referlabs/referral-engine/internal/service/eventlog"
	"github.com/referlabs/referral-engine/internal/service/referral"
)

// EventFeed reads back recent events for the operational feed.
type EventFeed interface {
	Recent(ctx context.Context, businessID string, limit int) ([]domain.ReferralEvent, error)
}

// Handlers holds the service dependencies for all HTTP handlers.
type Handlers struct {
	attribution *attribution.Service
	referrals   *referral.Service
	ambassadors *ambassador.Service
	businesses  *business.Service
	delivery    *delivery.Service
	events      eventlog.Recorder
	health      eventlog.HealthReader
	feed        EventFeed

	secrets  config.SecretsProvider
	limiter  *ratelimit.Limiter
	alerts   *ratelimit.AlertGate
	limits   config.RateLimitConfig
	validate *validator.Validate

	db    *sql.DB
	redis *redis.Client
}

// NewHandlers wires the HTTP layer. limiter and alerts may be nil (limits
// off, every alert fires); db/redis are only used by the liveness check.
func NewHandlers(
	attributionSvc *attribution.Service,
	referralSvc *referral.Service,
	ambassadorSvc *ambassador.Service,
	businessSvc *business.Service,
	deliverySvc *delivery.Service,
	events eventlog.Recorder,
	health eventlog.HealthReader,
	feed EventFeed,
	secrets config.SecretsProvider,
	limiter *ratelimit.Limiter,
	alerts *ratelimit.AlertGate,
	limits config.RateLimitConfig,
	db *sql.DB,
	redisClient *redis.Client,
) *Handlers {
	return &Handlers{
		attribution: attributionSvc,
		referrals:   referralSvc,
		ambassadors: ambassadorSvc,
		businesses:  businessSvc,
		delivery:    deliverySvc,
		events:      events,
		health:      health,
		feed:        feed,
		secrets:     secrets,
		limiter:     limiter,
		alerts:      alerts,
		limits:      limits,
		validate:    validator.New(),
		db:          db,
		redis:       redisClient,
	}
}

// SetupRoutes configures all routes.
func SetupRoutes(h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://app.referlabs.io", "http://localhost:5173"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type",
			"X-Referlabs-Discount-Secret", "X-Pepf-Discount-Secret"},
		MaxAge: 300,
	}))

	r.Get("/health", h.HealthCheck)
	r.Get("/r/{code}", h.HandleLinkVisit)

	r.Route("/api", func(r chi.Router) {
		r.Post("/discount-codes/redeem", h.HandleDiscountRedemption)
		r.Post("/webhooks/twilio", h.HandleTwilioWebhook)
		r.Post("/webhooks/resend", h.HandleResendWebhook)
		r.Get("/health/attribution", h.GetAttributionHealth)

		r.Post("/referrals", h.CreateReferral)
		r.Post("/ambassadors", h.CreateAmbassador)
		r.Get("/ambassadors/{id}", h.GetAmbassador)
		r.Post("/businesses", h.CreateBusiness)
		r.Post("/campaign-messages", h.RegisterCampaignMessage)
		r.Get("/events", h.ListEvents)
	})

	return r
}

// allow consults the rate limiter for one endpoint class. A nil limiter
// means limits are off.
func (h *Handlers) allow(r *http.Request, class string, perMinute int) bool {
	if h.limiter == nil {
		return true
	}
	return h.limiter.Allow(r.Context(), class, clientIP(r), perMinute)
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// HealthCheck reports liveness plus component status for Postgres and Redis.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	components := map[string]string{}
	status := "ok"

	if h.db != nil {
		components["postgres"] = "ok"
		if err := h.db.PingContext(ctx); err != nil {
			components["postgres"] = "down"
			status = "degraded"
		}
	}
	if h.redis != nil {
		components["redis"] = "ok"
		if err := h.redis.Ping(ctx).Err(); err != nil {
			components["redis"] = "down"
			status = "degraded"
		}
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	httputil.JSON(w, code, map[string]any{
		"status":     status,
		"components": components,
		"time":       time.Now().UTC().Format(time.RFC3339),
	})
}
