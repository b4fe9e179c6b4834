package api

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/referlabs/referral-engine/internal/pkg/httputil"
	"github.com/referlabs/referral-engine/internal/pkg/logger"
	"github.com/referlabs/referral-engine/internal/service/attribution"
	"github.com/referlabs/referral-engine/internal/service/referral"
)

// redeemRequest is the conversion-capture payload sent by the storefront
// when a discount code is redeemed at checkout. Amount accepts a JSON
// string or number.
type redeemRequest struct {
	DiscountCode   string          `json:"discountCode"`
	OrderReference string          `json:"orderReference"`
	Amount         decimal.Decimal `json:"amount"`
	ServiceType    string          `json:"serviceType,omitempty"`
	Metadata       map[string]any  `json:"metadata,omitempty"`
}

// HandleDiscountRedemption captures a conversion. Idempotent on
// orderReference: redelivery of the same order returns 200 without moving
// money twice.
func (h *Handlers) HandleDiscountRedemption(w http.ResponseWriter, r *http.Request) {
	if !h.allow(r, "redeem", h.limits.RedeemPerMinute) {
		httputil.Error(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	// Auth before any parsing or storage access.
	serverSecret := h.secrets.DiscountSecret()
	if serverSecret == "" {
		if h.alerts == nil || h.alerts.FirstOccurrence(r.Context(), "discount-secret-unconfigured") {
			logger.Error("discount webhook secret is not configured, rejecting redemptions")
		}
		httputil.Error(w, http.StatusInternalServerError, "server configuration error")
		return
	}
	if !h.discountSecretMatches(r, serverSecret) {
		if h.alerts == nil || h.alerts.FirstOccurrence(r.Context(), "discount-auth-failure") {
			logger.Warn("discount webhook auth failure")
		}
		httputil.Unauthorized(w, "invalid or missing webhook secret")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req redeemRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.DiscountCode) == "" {
		httputil.BadRequest(w, "discountCode is required")
		return
	}
	if strings.TrimSpace(req.OrderReference) == "" {
		httputil.BadRequest(w, "orderReference is required")
		return
	}

	ctx := r.Context()
	amb, err := h.attribution.ByDiscountCode(ctx, req.DiscountCode)
	switch {
	case errors.Is(err, attribution.ErrBlankCode):
		httputil.BadRequest(w, "discountCode is required")
		return
	case errors.Is(err, attribution.ErrNotFound):
		// Not every discount code belongs to an ambassador. Acknowledge
		// so the storefront doesn't retry.
		httputil.OK(w, map[string]any{"status": "ignored", "reason": "unknown_discount_code"})
		return
	case err != nil:
		httputil.InternalError(w, err)
		return
	}

	policy, err := h.businesses.RewardPolicy(ctx, amb.BusinessID)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	ref, err := h.referrals.FindOrCreatePending(ctx, amb.BusinessID, amb, req.OrderReference, "discount_webhook")
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	if ref.IsCompleted() {
		httputil.OK(w, map[string]any{
			"status":      "ok",
			"referral_id": ref.ID,
			"completed":   false,
			"duplicate":   true,
		})
		return
	}

	amount := req.Amount
	completed, completedNow, err := h.referrals.Complete(ctx, referral.CompleteInput{
		BusinessID:       amb.BusinessID,
		ReferralID:       ref.ID,
		TransactionValue: &amount,
		Policy:           policy,
		ServiceType:      req.ServiceType,
	})
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	httputil.OK(w, map[string]any{
		"status":        "ok",
		"referral_id":   completed.ID,
		"ambassador_id": completed.AmbassadorID,
		"completed":     true,
		"duplicate":     !completedNow,
	})
}

func (h *Handlers) discountSecretMatches(r *http.Request, serverSecret string) bool {
	for _, name := range h.secrets.DiscountSecretHeaders() {
		got := r.Header.Get(name)
		if got == "" {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(got), []byte(serverSecret)) == 1 {
			return true
		}
	}
	return false
}
