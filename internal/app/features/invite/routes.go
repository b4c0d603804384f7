// internal/app/features/invite/routes.go
package invite

import "github.com/go-chi/chi/v5"

// MountRoutes registers POST /invite. The admin token travels in the body,
// so no session middleware is involved.
func MountRoutes(r chi.Router, h *Handler) {
	r.Post("/invite", h.ServeInvite)
}
