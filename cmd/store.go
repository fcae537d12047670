package cmd

import (
	"context"

	"github.com/andrewckor/kip-ai/internal/config"
	"github.com/andrewckor/kip-ai/internal/convo"
	"github.com/andrewckor/kip-ai/internal/log"
)

// historyStore is a conversation store that can also enumerate the domains
// it holds. Both backends satisfy it.
type historyStore interface {
	convo.Store
	Domains(ctx context.Context) ([]string, error)
}

// openStore builds the configured storage backend. The returned closer is
// a no-op for the file backend.
func openStore(ctx context.Context, cfg *config.Config, logger log.Logger) (historyStore, func(), error) {
	switch cfg.StorageBackend {
	case config.StoragePostgres:
		store, err := convo.NewPostgresStore(ctx, cfg.PostgresURL(), logger)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		store, err := convo.NewFileStore(cfg.StorageDir, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}
}
