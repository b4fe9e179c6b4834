package api

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/referlabs/referral-engine/internal/domain"
	"github.com/referlabs/referral-engine/internal/pkg/httputil"
	"github.com/referlabs/referral-engine/internal/pkg/logger"
	"github.com/referlabs/referral-engine/internal/service/attribution"
)

// HandleLinkVisit records a referral-link visit and redirects to the
// business landing page with the code attached, so the signup form can
// pre-fill attribution.
func (h *Handlers) HandleLinkVisit(w http.ResponseWriter, r *http.Request) {
	if !h.allow(r, "link", h.limits.LinkPerMinute) {
		httputil.Error(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	code := chi.URLParam(r, "code")
	ctx := r.Context()

	amb, err := h.attribution.ByReferralCode(ctx, code)
	switch {
	case errors.Is(err, attribution.ErrBlankCode), errors.Is(err, attribution.ErrNotFound):
		httputil.NotFound(w, "unknown referral link")
		return
	case err != nil:
		httputil.InternalError(w, err)
		return
	}

	biz, err := h.businesses.Get(ctx, amb.BusinessID)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	if err := h.events.Append(ctx, domain.ReferralEvent{
		BusinessID:   amb.BusinessID,
		AmbassadorID: &amb.ID,
		EventType:    domain.EventLinkVisit,
		Metadata: map[string]any{
			"referral_code": amb.ReferralCode,
			"user_agent":    r.UserAgent(),
		},
	}); err != nil {
		logger.Warn("link visit event append failed", "referral_code", amb.ReferralCode, "error", err)
	}

	target := biz.LandingURL
	if target == "" {
		httputil.OK(w, map[string]any{"status": "ok", "ambassador_id": amb.ID})
		return
	}
	if u, err := url.Parse(target); err == nil {
		q := u.Query()
		q.Set("ref", amb.ReferralCode)
		u.RawQuery = q.Encode()
		target = u.String()
	}
	http.Redirect(w, r, target, http.StatusFound)
}
