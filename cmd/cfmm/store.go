package main

import (
	"context"
	"fmt"

	"liquidityCurve/internal/config"
	"liquidityCurve/internal/model"
	"liquidityCurve/internal/storage/kv"
	"liquidityCurve/internal/storage/postgres"
)

// stateBackend is a pool state store that owns a connection.
type stateBackend interface {
	SavePool(ctx context.Context, state model.PoolState) error
	LoadPool(ctx context.Context, name string) (model.PoolState, error)
	Close() error
}

type pgBackend struct {
	*postgres.Store
}

func (b pgBackend) Close() error {
	b.Store.Close()
	return nil
}

// openStateStore returns nil for the "none" store.
func openStateStore(ctx context.Context, store, kvDir, dsn string) (stateBackend, error) {
	switch store {
	case config.StoreKV:
		s, err := kv.Open(kvDir)
		if err != nil {
			return nil, fmt.Errorf("open kv store: %w", err)
		}
		return s, nil
	case config.StorePostgres:
		s, err := postgres.NewStore(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := s.EnsureSchema(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return pgBackend{s}, nil
	default:
		return nil, nil
	}
}
