package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/referlabs/referral-engine/internal/domain"
	"github.com/referlabs/referral-engine/internal/pkg/httputil"
	"github.com/referlabs/referral-engine/internal/service/attribution"
	"github.com/referlabs/referral-engine/internal/service/referral"
)

// createReferralRequest is the referral-form submission. Attribution comes
// from a referral code (link/form flow) or an explicit ambassador id
// (manual selection); the code wins when both are present.
type createReferralRequest struct {
	ReferralCode  string `json:"referral_code,omitempty"`
	AmbassadorID  string `json:"ambassador_id,omitempty"`
	BusinessID    string `json:"business_id,omitempty"`
	ReferredName  string `json:"referred_name" validate:"required"`
	ReferredEmail string `json:"referred_email,omitempty" validate:"omitempty,email"`
	ReferredPhone string `json:"referred_phone,omitempty"`
	ConsentGiven  bool   `json:"consent_given"`
	Locale        string `json:"locale,omitempty"`
	CampaignID    string `json:"campaign_id,omitempty"`
}

// CreateReferral records a pending referral from the signup form.
func (h *Handlers) CreateReferral(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req createReferralRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if req.ReferredEmail == "" && req.ReferredPhone == "" {
		httputil.BadRequest(w, "referred_email or referred_phone is required")
		return
	}

	ctx := r.Context()
	amb, err := h.resolveAmbassador(r, req.ReferralCode, req.AmbassadorID)
	switch {
	case errors.Is(err, attribution.ErrBlankCode):
		httputil.BadRequest(w, "referral_code or ambassador_id is required")
		return
	case errors.Is(err, attribution.ErrNotFound):
		httputil.NotFound(w, "unknown referral code")
		return
	case err != nil:
		httputil.InternalError(w, err)
		return
	}
	if req.BusinessID != "" && req.BusinessID != amb.BusinessID {
		httputil.BadRequest(w, "ambassador does not belong to this business")
		return
	}

	ref, err := h.referrals.Create(ctx, referral.CreateInput{
		BusinessID:    amb.BusinessID,
		AmbassadorID:  amb.ID,
		ReferredName:  req.ReferredName,
		ReferredEmail: req.ReferredEmail,
		ReferredPhone: req.ReferredPhone,
		ConsentGiven:  req.ConsentGiven,
		Locale:        req.Locale,
		CampaignID:    req.CampaignID,
		CreatedBy:     "referral_form",
	})
	switch {
	case errors.Is(err, referral.ErrAmbassadorMismatch):
		httputil.BadRequest(w, "ambassador does not belong to this business")
		return
	case err != nil:
		httputil.InternalError(w, err)
		return
	}

	httputil.Created(w, ref)
}

func (h *Handlers) resolveAmbassador(r *http.Request, referralCode, ambassadorID string) (*domain.Ambassador, error) {
	if strings.TrimSpace(referralCode) != "" {
		return h.attribution.ByReferralCode(r.Context(), referralCode)
	}
	return h.attribution.ByID(r.Context(), ambassadorID)
}
