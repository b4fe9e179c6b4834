package api

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/referlabs/referral-engine/internal/domain"
	"github.com/referlabs/referral-engine/internal/pkg/httputil"
	"github.com/referlabs/referral-engine/internal/pkg/logger"
	"github.com/referlabs/referral-engine/internal/service/delivery"
)

// HandleTwilioWebhook ingests Twilio SMS status callbacks
// (form-encoded MessageSid + MessageStatus/SmsStatus).
func (h *Handlers) HandleTwilioWebhook(w http.ResponseWriter, r *http.Request) {
	if !h.allow(r, "delivery", h.limits.DeliveryPerMinute) {
		httputil.Error(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}
	if !h.requireBearer(w, r, h.secrets.TwilioToken(), "twilio") {
		return
	}

	if err := r.ParseForm(); err != nil {
		httputil.BadRequest(w, "invalid form payload")
		return
	}
	sid := strings.TrimSpace(r.PostFormValue("MessageSid"))
	if sid == "" {
		httputil.BadRequest(w, "MessageSid is required")
		return
	}
	providerStatus := r.PostFormValue("MessageStatus")
	if providerStatus == "" {
		providerStatus = r.PostFormValue("SmsStatus")
	}

	status, ok := normalizeTwilioStatus(providerStatus)
	if !ok {
		logger.Debug("twilio status ignored", "status", providerStatus, "message_sid", sid)
		httputil.OK(w, map[string]any{"status": "ignored"})
		return
	}

	errMsg := r.PostFormValue("ErrorMessage")
	if errMsg == "" {
		if code := r.PostFormValue("ErrorCode"); code != "" {
			errMsg = fmt.Sprintf("twilio error code %s", code)
		}
	}

	h.applyDeliveryStatus(w, r, sid, status, errMsg)
}

// resendWebhook is the Resend event envelope.
type resendWebhook struct {
	Type string `json:"type"`
	Data struct {
		EmailID string `json:"email_id"`
		To      string `json:"to"`
		Subject string `json:"subject"`
		Reason  string `json:"reason"`
	} `json:"data"`
}

// HandleResendWebhook ingests Resend email delivery events.
func (h *Handlers) HandleResendWebhook(w http.ResponseWriter, r *http.Request) {
	if !h.allow(r, "delivery", h.limits.DeliveryPerMinute) {
		httputil.Error(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}
	if !h.requireBearer(w, r, h.secrets.ResendToken(), "resend") {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req resendWebhook
	if !httputil.Decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Data.EmailID) == "" {
		httputil.BadRequest(w, "data.email_id is required")
		return
	}

	status, ok := normalizeResendType(req.Type)
	if !ok {
		logger.Debug("resend event ignored", "type", req.Type, "email_id", req.Data.EmailID)
		httputil.OK(w, map[string]any{"status": "ignored"})
		return
	}

	errMsg := ""
	if status == domain.MessageFailed {
		errMsg = req.Data.Reason
		if errMsg == "" {
			errMsg = req.Type
		}
	}

	h.applyDeliveryStatus(w, r, req.Data.EmailID, status, errMsg)
}

// applyDeliveryStatus is the shared tail of both delivery webhooks: unknown
// correlation ids acknowledge with 200 so the provider stops retrying.
func (h *Handlers) applyDeliveryStatus(w http.ResponseWriter, r *http.Request, providerMessageID string, status domain.MessageStatus, errMsg string) {
	err := h.delivery.ApplyStatus(r.Context(), providerMessageID, status, errMsg)
	switch {
	case errors.Is(err, delivery.ErrNotFound):
		logger.Debug("delivery status for unknown message", "provider_message_id", providerMessageID)
		httputil.OK(w, map[string]any{"status": "ignored", "reason": "unknown_message"})
	case err != nil:
		httputil.InternalError(w, err)
	default:
		httputil.OK(w, map[string]any{"status": "ok"})
	}
}

// normalizeTwilioStatus maps Twilio's status vocabulary onto the internal
// terminal states. Intermediate statuses report ok=false and are ignored.
func normalizeTwilioStatus(s string) (domain.MessageStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "delivered", "read":
		return domain.MessageDelivered, true
	case "failed", "undelivered", "canceled":
		return domain.MessageFailed, true
	default:
		return "", false
	}
}

// normalizeResendType maps Resend event types onto the internal terminal
// states.
func normalizeResendType(t string) (domain.MessageStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "email.delivered":
		return domain.MessageDelivered, true
	case "email.bounced", "email.failed", "email.complained":
		return domain.MessageFailed, true
	default:
		return "", false
	}
}

// requireBearer verifies an Authorization: Bearer token and writes the
// error response on failure. An unconfigured server token is a 500
// configuration error, distinct from a probing caller's 401; both raise a
// one-time alert per failure class.
func (h *Handlers) requireBearer(w http.ResponseWriter, r *http.Request, token, class string) bool {
	if token == "" {
		if h.alerts == nil || h.alerts.FirstOccurrence(r.Context(), class+"-token-unconfigured") {
			logger.Error("webhook token is not configured, rejecting deliveries", "provider", class)
		}
		httputil.Error(w, http.StatusInternalServerError, "server configuration error")
		return false
	}
	if !bearerMatches(r, token) {
		if h.alerts == nil || h.alerts.FirstOccurrence(r.Context(), class+"-auth-failure") {
			logger.Warn("webhook auth failure", "provider", class)
		}
		httputil.Unauthorized(w, "invalid or missing bearer token")
		return false
	}
	return true
}

func bearerMatches(r *http.Request, token string) bool {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimPrefix(auth, prefix)), []byte(token)) == 1
}
