package httpapi

import (
	"github.com/danielgtaylor/huma/v2"
)

// RegisterRoutes wires the read-oriented REST surface of spec §6 onto api.
// The WebSocket upgrade endpoint is registered separately, directly on the
// underlying chi.Mux, since it is a raw http.Handler rather than a huma
// operation (see cmd/server).
func RegisterRoutes(api huma.API, h *Handler) {
	huma.Post(api, "/api/v2/quote/multi-dimensional", h.Quote)
	huma.Get(api, "/api/v2/risk/exposure", h.Exposure)
	huma.Get(api, "/api/v2/bridge-health/{bridge_id}", h.BridgeHealth)
	huma.Get(api, "/api/v2/risk/alerts", h.RiskAlerts)
	huma.Get(api, "/api/v2/tranches/apy", h.Tranches)
}
