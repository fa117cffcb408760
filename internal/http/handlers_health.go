package httpx

import (
	"io"
	"net/http"
)

const healthResponse = `{"status":"ok"}`

// healthHandler returns a simple 200 OK status for readiness/liveness checks.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.WriteString(w, healthResponse); err != nil {
		// Nothing more to do if the client connection is gone.
		return
	}
}

type backendsResponse struct {
	Backends map[string]string `json:"backends"`
}

// BackendsHandler serves GET /api/backends/status: one ping text per backend,
// or "error".
type BackendsHandler struct {
	Svc BackendStatusService
}

func (h *BackendsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	statuses := h.Svc.Status(r.Context())
	out := backendsResponse{Backends: make(map[string]string, len(statuses))}
	for _, st := range statuses {
		out.Backends[st.Name] = st.Status
	}
	WriteJSON(w, http.StatusOK, out)
}
