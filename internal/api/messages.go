package api

import (
	"net/http"

	"github.com/referlabs/referral-engine/internal/pkg/httputil"
	"github.com/referlabs/referral-engine/internal/service/delivery"
)

// RegisterCampaignMessage records an outbound message row so later
// provider delivery webhooks can correlate against it.
func (h *Handlers) RegisterCampaignMessage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req delivery.RegisterInput
	if !httputil.Decode(w, r, &req) {
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	m, err := h.delivery.Register(r.Context(), req)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.Created(w, m)
}
