package httpx

import (
	"net/http"
)

type healthStatus struct {
	Status   string `json:"status"`
	Sessions *int   `json:"sessions,omitempty"`
}

// healthHandler answers readiness and liveness probes. When counter is set the
// number of live device sessions is reported alongside the status.
func healthHandler(counter func() int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			return
		}
		body := healthStatus{Status: "ok"}
		if counter != nil {
			n := counter()
			body.Sessions = &n
		}
		WriteJSON(w, http.StatusOK, body)
	}
}
