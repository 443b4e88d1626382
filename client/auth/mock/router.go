package mock

import (
	"net/http"
)

// Handler routes HTTP requests to the mock backend endpoints; any path other
// than login and refresh is treated as a protected resource.
type Handler struct {
	Server *AuthenticationService
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case LoginPath:
		if h.Server.LoginHandler != nil {
			h.Server.LoginHandler(w, r)
		} else {
			h.Server.defaultLoginHandler(w, r)
		}
	case RefreshPath, LegacyRefreshPath:
		if h.Server.RefreshHandler != nil {
			h.Server.RefreshHandler(w, r)
		} else {
			h.Server.defaultRefreshHandler(w, r)
		}
	default:
		if h.Server.ResourceHandler != nil {
			h.Server.ResourceHandler(w, r)
		} else {
			h.Server.defaultResourceHandler(w, r)
		}
	}
}
