// Package repository picks a storage adapter from a DATABASE_URL.
//
//	postgres://, postgresql://   GORM + PostgreSQL
//	mongodb://, mongodb+srv://   MongoDB
//	json:<path>                  single JSON document on disk
//	anything else                SQLite (libsql:// and wss:// go to Turso)
package repository

import (
	"context"
	"log/slog"
	"strings"

	"github.com/wadjakorntonsri/shortlink/pkg/adapters/repository/filestore"
	"github.com/wadjakorntonsri/shortlink/pkg/adapters/repository/mongodb"
	"github.com/wadjakorntonsri/shortlink/pkg/adapters/repository/postgres"
	"github.com/wadjakorntonsri/shortlink/pkg/adapters/repository/sqlite"
	"github.com/wadjakorntonsri/shortlink/pkg/config"
	"github.com/wadjakorntonsri/shortlink/pkg/ports"
)

const jsonScheme = "json:"

// Kind names the adapter Open would choose for dbURL.
func Kind(dbURL string) string {
	switch {
	case hasAnyPrefix(dbURL, "postgres://", "postgresql://"):
		return "postgres"
	case hasAnyPrefix(dbURL, "mongodb://", "mongodb+srv://"):
		return "mongodb"
	case strings.HasPrefix(dbURL, jsonScheme):
		return "json"
	default:
		return "sqlite"
	}
}

func Open(ctx context.Context, cfg *config.Config, l *slog.Logger) (ports.LinkRepository, error) {
	dbURL := cfg.DatabaseURL
	l.Info("opening link storage", "kind", Kind(dbURL))

	switch Kind(dbURL) {
	case "postgres":
		return opened(postgres.NewPostgresRepository(dbURL, l))
	case "mongodb":
		return opened(mongodb.NewMongoRepository(ctx, dbURL, cfg.MongoDatabase))
	case "json":
		return opened(filestore.Open(strings.TrimPrefix(dbURL, jsonScheme)))
	default:
		return opened(sqlite.NewSQLiteRepository(dbURL))
	}
}

// opened keeps a failed constructor's typed nil out of the interface.
func opened[R ports.LinkRepository](repo R, err error) (ports.LinkRepository, error) {
	if err != nil {
		return nil, err
	}
	return repo, nil
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
