package commands

import (
	"context"
	"fmt"

	"github.com/FranksOps/domscout/internal/config"
	"github.com/FranksOps/domscout/internal/storage"
	"github.com/FranksOps/domscout/internal/storage/csvbackend"
	"github.com/FranksOps/domscout/internal/storage/jsonbackend"
	"github.com/FranksOps/domscout/internal/storage/postgres"
	"github.com/FranksOps/domscout/internal/storage/sqlite"
	"github.com/FranksOps/domscout/internal/storage/textbackend"
)

// openBackend returns the result store selected by out.Backend.
func openBackend(ctx context.Context, out config.OutputConfig) (storage.Backend, error) {
	switch out.Backend {
	case config.BackendText:
		return textbackend.New(out.Path)
	case config.BackendCSV:
		return csvbackend.New(out.Path)
	case config.BackendJSON:
		return jsonbackend.New(out.Path)
	case config.BackendSQLite:
		return sqlite.New(out.Path)
	case config.BackendPostgres:
		return postgres.New(ctx, out.DSN, out.Table)
	}
	return nil, fmt.Errorf("unknown backend %q", out.Backend)
}
