// internal/app/features/user/routes.go
package user

import "github.com/go-chi/chi/v5"

// MountRoutes registers the account endpoints. The session middleware must
// already be installed on r so that handlers can see the caller.
func MountRoutes(r chi.Router, h *Handler) {
	r.Get("/self", h.ServeSelf)
	r.Get("/logout", h.ServeLogout)
	r.Post("/register", h.ServeRegister)
	r.Post("/login", h.ServeLogin)

	r.Route("/user", func(r chi.Router) {
		r.Get("/", h.ServeSelf)
		r.Get("/logout", h.ServeLogout)
		r.Get("/{idOrEmail}", h.ServeLookup)
		r.Post("/{action}", h.ServeAction)
	})
}
