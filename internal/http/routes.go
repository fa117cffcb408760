package httpx

import (
	"log/slog"
	"net/http"

	domainauth "github.com/jobmatcher/jm-portal/internal/domain/auth"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Sessions SessionController    // Required
	Auth     AuthServiceInterface // Required
	Health   BackendStatusService // Optional; enables /api/backends/status
	// OAuthEnabled registers the redirect login endpoints.
	OAuthEnabled bool
	// AllowedOrigins are host patterns accepted for cross-origin websocket
	// upgrades and state-changing requests.
	AllowedOrigins []string
	CookieDomain   string
	Logger         *slog.Logger
}

// NewRouter creates and configures the portal's HTTP router.
func NewRouter(services RouterServices) http.Handler {
	if services.Sessions == nil || services.Auth == nil {
		panic("NewRouter requires Sessions and Auth")
	}
	mux := http.NewServeMux()

	authHandlers := &AuthHandlers{
		Svc:          services.Auth,
		Sessions:     services.Sessions,
		CookieDomain: services.CookieDomain,
		Logger:       services.Logger,
	}
	registerAuthRoutes(mux, authHandlers, services.OAuthEnabled)
	registerAPIRoutes(mux, services)
	registerPageRoutes(mux, services.Sessions)

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("/", &notFoundHandler{Sessions: services.Sessions})

	csrf := CSRFProtection(CSRFConfig{
		CookieDomain:   services.CookieDomain,
		TrustedOrigins: services.AllowedOrigins,
	})
	return csrf(mux)
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers, oauth bool) {
	mux.HandleFunc("POST /auth/login", h.Login(domainauth.RoleUser))
	mux.HandleFunc("POST /auth/agent/login", h.Login(domainauth.RoleAgent))
	mux.HandleFunc("POST /auth/admin/login", h.Login(domainauth.RoleAdmin))
	mux.HandleFunc("POST /auth/register", h.Register)
	mux.HandleFunc("POST /auth/logout", h.Logout)
	mux.HandleFunc("POST /auth/refresh", h.Refresh)
	mux.HandleFunc("GET /api/session", h.Session)
	if oauth {
		mux.HandleFunc("GET /auth/oauth/login", h.OAuthLogin)
		mux.HandleFunc("GET /auth/oauth/callback", h.OAuthCallback)
	}
}

func registerAPIRoutes(mux *http.ServeMux, services RouterServices) {
	mux.Handle("GET /api/navigation", &NavigationHandler{Sessions: services.Sessions})
	mux.Handle("GET /api/session/events", &SessionEventsHandler{
		Sessions:       services.Sessions,
		OriginPatterns: services.AllowedOrigins,
		Logger:         services.Logger,
	})
	if services.Health != nil {
		mux.Handle("GET /api/backends/status", &BackendsHandler{Svc: services.Health})
	}
}

// registerPageRoutes mounts the route table. Protected pages go through the
// access gate, then the role gate when the page names a minimum role.
func registerPageRoutes(mux *http.ServeMux, sessions SessionReader) {
	for _, p := range Pages() {
		var h http.Handler = &PageHandler{Page: p, Sessions: sessions}
		if p.MinRole != "" {
			h = RequireRole(sessions, p.MinRole)(h)
		}
		if p.Protected {
			h = RequireSession(sessions)(h)
		}

		if p.Path == "/" {
			mux.Handle("GET /{$}", h)
			continue
		}
		mux.Handle("GET "+p.Path, h)
		if p.Subtree {
			mux.Handle("GET "+p.Path+"/", h)
		}
	}
}
