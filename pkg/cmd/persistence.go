// Package cmd provides shared initialization for the warden binaries:
// persistence, event bus, KV store, action registry and the injected
// game-server capabilities.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/wardenhq/warden/pkg/persistence"
	"github.com/wardenhq/warden/pkg/persistence/file"
	"github.com/wardenhq/warden/pkg/persistence/postgresql"
)

// NewPersistence selects the persistence backend from the URL scheme.
// postgres:// and postgresql:// use PostgreSQL; anything else is treated as
// a filesystem root for the development file backend.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to initialize postgresql persistence: %w", err))
		}

		return p
	default:
		return file.NewPersistence(strings.TrimPrefix(databaseURL, "file://"))
	}
}
