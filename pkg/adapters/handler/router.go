package handler

import (
	"log/slog"
	"net/http"

	"github.com/wadjakorntonsri/shortlink/pkg/config"
	"github.com/wadjakorntonsri/shortlink/pkg/ports"
)

// NewRouter creates and configures the main application router.
// In open mode the API is public and Google login is not mounted.
func NewRouter(cfg *config.Config, registry ports.LinkRegistry, resolver ports.Resolver, l *slog.Logger) http.Handler {
	h := NewHTTPHandler(registry, resolver, cfg.BaseURL, l)
	identity := NewJWTIdentity(cfg.JWTSecret)
	mw := NewMiddleware(identity, l)

	mux := http.NewServeMux()

	// Public Routes
	mux.HandleFunc("GET /healthz", h.Health)
	mux.HandleFunc("GET /{short_code}", h.Redirect)

	// API Routes
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("POST /api/v1/links", h.Create)
	apiMux.HandleFunc("GET /api/v1/links", h.List)
	apiMux.HandleFunc("DELETE /api/v1/links/{short_code}", h.Delete)

	if cfg.IsOpen() {
		mux.Handle("/api/v1/", apiMux)
	} else {
		authHandler := NewAuthHandler(cfg, identity, l)
		mux.HandleFunc("GET /auth/google/login", authHandler.Login)
		mux.HandleFunc("GET /auth/google/callback", authHandler.Callback)
		mux.HandleFunc("GET /auth/logout", authHandler.Logout)

		mux.Handle("/api/v1/", mw.AuthMiddleware(apiMux))
	}

	return mw.RequestID(mw.LogRequest(mux))
}
