package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/referlabs/referral-engine/internal/pkg/httputil"
	"github.com/referlabs/referral-engine/internal/service/ambassador"
	"github.com/referlabs/referral-engine/internal/service/business"
)

// CreateAmbassador quick-adds an ambassador, generating referral/discount
// codes when none are supplied.
func (h *Handlers) CreateAmbassador(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req ambassador.CreateInput
	if !httputil.Decode(w, r, &req) {
		return
	}

	amb, err := h.ambassadors.Create(r.Context(), req)
	switch {
	case errors.Is(err, ambassador.ErrCodeTaken):
		httputil.Error(w, http.StatusConflict, "referral or discount code already in use")
		return
	case err != nil:
		httputil.BadRequest(w, err.Error())
		return
	}

	httputil.Created(w, amb)
}

// GetAmbassador returns an ambassador's codes, credits and status.
func (h *Handlers) GetAmbassador(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	businessID := r.URL.Query().Get("business_id")
	if businessID == "" {
		httputil.BadRequest(w, "business_id query parameter is required")
		return
	}

	amb, err := h.ambassadors.Get(r.Context(), businessID, id)
	switch {
	case errors.Is(err, ambassador.ErrNotFound):
		httputil.NotFound(w, "ambassador not found")
		return
	case err != nil:
		httputil.InternalError(w, err)
		return
	}

	httputil.OK(w, amb)
}

// CreateBusiness onboards a business with its landing URL and reward policy.
func (h *Handlers) CreateBusiness(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req business.CreateInput
	if !httputil.Decode(w, r, &req) {
		return
	}

	biz, err := h.businesses.Create(r.Context(), req)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	httputil.Created(w, biz)
}
