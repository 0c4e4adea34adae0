package handler

import (
	"context"
	"net/http"
	"os"

	"github.com/wadjakorntonsri/shortlink/pkg/adapters/handler"
	"github.com/wadjakorntonsri/shortlink/pkg/adapters/repository"
	"github.com/wadjakorntonsri/shortlink/pkg/config"
	"github.com/wadjakorntonsri/shortlink/pkg/core/services"
	"github.com/wadjakorntonsri/shortlink/pkg/logging"
)

var mux http.Handler

func init() {
	cfg := config.Load()
	logger := logging.New(cfg.IsProduction(), cfg.LogLevel, os.Stderr)

	// Note: On Vercel, local files are ephemeral; use a remote DATABASE_URL (Turso, Postgres, MongoDB)
	repo, err := repository.Open(context.Background(), cfg, logger)
	if err != nil {
		panic(err)
	}

	registry := services.NewLinkRegistry(repo, services.ParseMode(cfg.RegistryMode), services.WithLogger(logger))
	resolver := services.NewRedirectResolver(registry, nil)
	mux = handler.NewRouter(cfg, registry, resolver, logger)
}

// Handler is the entrypoint for Vercel
func Handler(w http.ResponseWriter, r *http.Request) {
	mux.ServeHTTP(w, r)
}
