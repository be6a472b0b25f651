package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Acurioustractor/actflow/pkg/persistence"
	"github.com/Acurioustractor/actflow/pkg/persistence/file"
	"github.com/Acurioustractor/actflow/pkg/persistence/postgresql"
)

// NewPersistence selects the storage backend from the database URL scheme:
// postgres:// for PostgreSQL, anything else is treated as a file path.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		persist, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgresql persistence: %w", err)
		}

		return persist, nil
	default:
		return file.NewPersistence(databaseURL), nil
	}
}
