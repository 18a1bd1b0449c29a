package www

import (
	"net/http"
)

func (h *Handlers) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	auditLog, _ := h.engine.DB().ListAuditLog(50)
	pending, _ := h.engine.DB().ListPendingOutbox(50)

	msgOK := false
	if c := h.engine.MsgClient(); c != nil {
		msgOK = c.IsConnected()
	}

	tracked := 0
	for _, active := range h.engine.TrackedMissions() {
		tracked += len(active)
	}

	data := map[string]any{
		"Page":          "diagnostics",
		"AuditLog":      auditLog,
		"PendingOutbox": pending,
		"Fleets":        h.engine.FleetConnected(),
		"MessagingOK":   msgOK,
		"CacheOK":       h.engine.Pool().CacheHealthy(),
		"TrackedCount":  tracked,
		"SSEClients":    h.eventHub.ClientCount(),
		"Authenticated": h.isAuthenticated(r),
	}
	h.render(w, "diagnostics.html", data)
}
