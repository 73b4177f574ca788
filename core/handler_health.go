package core

import "net/http"

// HealthHandler answers load balancer probes. It touches no dependency.
// Endpoint: GET /api/health
// Authenticated: No
func (a *App) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJsonOk(w, okHealth)
}
