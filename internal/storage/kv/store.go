// Package kv stores pool snapshots in an embedded pebble database, encoded
// as msgpack.
package kv

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"reflect"

	"github.com/cockroachdb/pebble"
	"github.com/ugorji/go/codec"

	"liquidityCurve/internal/model"
	"liquidityCurve/internal/storage"
)

const (
	poolKeyPrefix = "pool/"
	bigIntExtTag  = 1
)

var ErrDBClosed = errors.New("database is closed")

// Store is a pebble-backed storage.StateStore.
type Store struct {
	db     *pebble.DB
	handle *codec.MsgpackHandle
}

var _ storage.StateStore = (*Store)(nil)

// Open opens or creates a store in dir.
func Open(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble %s: %w", dir, err)
	}
	h, err := newHandle()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, handle: h}, nil
}

func newHandle() (*codec.MsgpackHandle, error) {
	h := &codec.MsgpackHandle{}
	h.Canonical = true
	if err := h.SetBytesExt(reflect.TypeOf(big.Int{}), bigIntExtTag, bigIntExt{}); err != nil {
		return nil, fmt.Errorf("register big.Int extension: %w", err)
	}
	return h, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func poolKey(name string) []byte {
	return []byte(poolKeyPrefix + name)
}

// SavePool writes a snapshot under pool/<name>.
func (s *Store) SavePool(ctx context.Context, state model.PoolState) error {
	if s.db == nil {
		return ErrDBClosed
	}
	if state.Name == "" {
		return fmt.Errorf("pool name required")
	}
	var buf []byte
	if err := codec.NewEncoderBytes(&buf, s.handle).Encode(state); err != nil {
		return fmt.Errorf("encode pool %s: %w", state.Name, err)
	}
	return s.db.Set(poolKey(state.Name), buf, pebble.Sync)
}

// LoadPool reads the snapshot stored under pool/<name>.
func (s *Store) LoadPool(ctx context.Context, name string) (model.PoolState, error) {
	if s.db == nil {
		return model.PoolState{}, ErrDBClosed
	}
	val, closer, err := s.db.Get(poolKey(name))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return model.PoolState{}, fmt.Errorf("%w: %s", storage.ErrPoolNotFound, name)
		}
		return model.PoolState{}, err
	}
	defer closer.Close()

	var state model.PoolState
	if err := codec.NewDecoderBytes(val, s.handle).Decode(&state); err != nil {
		return model.PoolState{}, fmt.Errorf("decode pool %s: %w", name, err)
	}
	return state, nil
}

// PoolNames lists stored pools in key order.
func (s *Store) PoolNames(ctx context.Context) ([]string, error) {
	if s.db == nil {
		return nil, ErrDBClosed
	}
	prefix := []byte(poolKeyPrefix)
	upper := []byte(poolKeyPrefix)
	upper[len(upper)-1]++
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: upper})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var names []string
	for iter.First(); iter.Valid(); iter.Next() {
		names = append(names, string(iter.Key()[len(prefix):]))
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return names, nil
}

// DeletePool removes a snapshot. Missing keys are not an error.
func (s *Store) DeletePool(ctx context.Context, name string) error {
	if s.db == nil {
		return ErrDBClosed
	}
	return s.db.Delete(poolKey(name), pebble.Sync)
}

// bigIntExt encodes big.Int values with their gob form, which keeps the sign.
type bigIntExt struct{}

func (bigIntExt) WriteExt(v interface{}) []byte {
	var x *big.Int
	switch t := v.(type) {
	case *big.Int:
		x = t
	case big.Int:
		x = &t
	default:
		panic(fmt.Sprintf("kv: unsupported big.Int extension value %T", v))
	}
	b, err := x.GobEncode()
	if err != nil {
		panic(fmt.Sprintf("kv: encode big.Int: %v", err))
	}
	return b
}

func (bigIntExt) ReadExt(dst interface{}, src []byte) {
	x, ok := dst.(*big.Int)
	if !ok {
		panic(fmt.Sprintf("kv: unsupported big.Int extension target %T", dst))
	}
	if err := x.GobDecode(src); err != nil {
		panic(fmt.Sprintf("kv: decode big.Int: %v", err))
	}
}
