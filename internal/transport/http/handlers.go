package httptransport

import (
	"net/http"

	"gatekeeper/internal/admission/identity"
	"gatekeeper/pkg/platform/httputil"
)

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handlePing(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "pong"})
}

// handleWhoAmI echoes the resolved admission identity, useful when
// verifying policy and token wiring.
func handleWhoAmI(w http.ResponseWriter, r *http.Request) {
	role, id := identity.Resolve(r.Context())
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"role":     string(role),
		"identity": id.String(),
	})
}
