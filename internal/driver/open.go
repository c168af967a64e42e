package driver

import (
	"context"
	"fmt"

	"github.com/agenthands/lineage/internal/config"
)

// Open connects to the backend selected in cfg.
func Open(ctx context.Context, cfg config.Config) (GraphDriver, error) {
	switch cfg.Store.Backend {
	case config.BackendSQLite, "":
		return NewSQLiteDriver(cfg.Store.Path)
	case config.BackendMemgraph:
		return NewMemgraphDriver(ctx, cfg.Memgraph.URI, cfg.Memgraph.User, cfg.Memgraph.Password)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
