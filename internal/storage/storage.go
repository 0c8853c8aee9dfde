package storage

import (
	"context"
	"errors"

	"liquidityCurve/internal/model"
)

// ErrPoolNotFound is returned by StateStore.LoadPool for unknown names.
var ErrPoolNotFound = errors.New("pool snapshot not found")

// Storage defines a sink for operation receipts.
type Storage interface {
	PutReceipts(receipts []model.Receipt) error
}

// StateStore persists pool snapshots keyed by pool name.
type StateStore interface {
	SavePool(ctx context.Context, state model.PoolState) error
	LoadPool(ctx context.Context, name string) (model.PoolState, error)
}
