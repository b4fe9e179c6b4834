package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/referlabs/referral-engine/internal/pkg/httputil"
	"github.com/referlabs/referral-engine/internal/service/eventlog"
)

const attributionWindowDays = 7

// GetAttributionHealth grades signup attribution over the trailing window.
// A low rate means signups are arriving without ambassador links, which
// usually points at a broken form or link integration.
func (h *Handlers) GetAttributionHealth(w http.ResponseWriter, r *http.Request) {
	signups, attributed, err := h.health.AttributionWindow(r.Context(), attributionWindowDays*24*time.Hour)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, eventlog.Health(attributionWindowDays, signups, attributed))
}

// ListEvents returns the newest events for a business.
func (h *Handlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	businessID := r.URL.Query().Get("business_id")
	if businessID == "" {
		httputil.BadRequest(w, "business_id query parameter is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	events, err := h.feed.Recent(r.Context(), businessID, limit)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"events": events, "count": len(events)})
}
