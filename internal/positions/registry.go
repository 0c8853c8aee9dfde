// Package positions tracks liquidity positions and their single-unit
// ownership tokens, including operator approvals.
package positions

import (
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"liquidityCurve/internal/journal"
	"liquidityCurve/internal/model"
)

var (
	ErrPositionNotFound      = errors.New("position not found")
	ErrNotOperator           = errors.New("not operator")
	ErrNotOwner              = errors.New("not owner")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
)

// Capability is what a caller may do with a position.
type Capability int

const (
	CapNone Capability = iota
	CapOwner
	CapApprovedOperator
)

func (c Capability) String() string {
	switch c {
	case CapOwner:
		return "owner"
	case CapApprovedOperator:
		return "operator"
	default:
		return "none"
	}
}

// Registry is not safe for concurrent use.
type Registry struct {
	positions map[model.PositionID]model.Position
	operators map[model.OperatorKey]struct{}
	nextID    model.PositionID
	journal   *journal.Journal
}

func New(j *journal.Journal) *Registry {
	return &Registry{
		positions: make(map[model.PositionID]model.Position),
		operators: make(map[model.OperatorKey]struct{}),
		journal:   j,
	}
}

// FromState restores a registry from persisted positions and operators.
func FromState(positions map[model.PositionID]model.Position, operators []model.OperatorKey, nextID model.PositionID, j *journal.Journal) (*Registry, error) {
	r := New(j)
	for id, p := range positions {
		if id >= nextID {
			return nil, fmt.Errorf("position %d not below next id %d", id, nextID)
		}
		r.positions[id] = p
	}
	for _, op := range operators {
		r.operators[op] = struct{}{}
	}
	r.nextID = nextID
	return r, nil
}

func (r *Registry) NextID() model.PositionID { return r.nextID }

func (r *Registry) Len() int { return len(r.positions) }

func (r *Registry) Get(id model.PositionID) (model.Position, error) {
	p, ok := r.positions[id]
	if !ok {
		return model.Position{}, fmt.Errorf("%w: %d", ErrPositionNotFound, id)
	}
	return p, nil
}

func (r *Registry) put(id model.PositionID, p model.Position) {
	old, existed := r.positions[id]
	r.journal.Append(func() {
		if existed {
			r.positions[id] = old
		} else {
			delete(r.positions, id)
		}
	})
	r.positions[id] = p
}

// Open stores a new position with zero liquidity and returns its id.
func (r *Registry) Open(lower, upper model.TickIndex, owner common.Address, feeGrowthInside model.XY) model.PositionID {
	id := r.nextID
	r.journal.Append(func() { r.nextID = id })
	r.nextID++
	r.put(id, model.Position{
		Lower:               lower,
		Upper:               upper,
		Liquidity:           new(big.Int),
		FeeGrowthInsideLast: feeGrowthInside,
		Owner:               owner,
	})
	return id
}

// Update replaces a position's liquidity and fee snapshot.
func (r *Registry) Update(id model.PositionID, liquidity *big.Int, feeGrowthInside model.XY) error {
	p, err := r.Get(id)
	if err != nil {
		return err
	}
	if liquidity.Sign() < 0 {
		return fmt.Errorf("%w: position %d would hold %s", ErrInsufficientLiquidity, id, liquidity)
	}
	p.Liquidity = liquidity
	p.FeeGrowthInsideLast = feeGrowthInside
	r.put(id, p)
	return nil
}

// Delete removes a position.
func (r *Registry) Delete(id model.PositionID) error {
	old, ok := r.positions[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrPositionNotFound, id)
	}
	r.journal.Append(func() { r.positions[id] = old })
	delete(r.positions, id)
	return nil
}

// CapabilityOf reports what caller may do with the given owner's token.
func (r *Registry) CapabilityOf(caller, owner common.Address, id model.PositionID) Capability {
	if caller == owner {
		return CapOwner
	}
	if _, ok := r.operators[model.OperatorKey{Owner: owner, Operator: caller, TokenID: id}]; ok {
		return CapApprovedOperator
	}
	return CapNone
}

// Transfer applies a batch of single-unit ownership transfers.
func (r *Registry) Transfer(caller common.Address, batches []model.TransferBatch) error {
	for _, b := range batches {
		for _, tx := range b.Txs {
			if r.CapabilityOf(caller, b.From, tx.TokenID) == CapNone {
				return fmt.Errorf("%w: %s for token %d of %s", ErrNotOperator, caller.Hex(), tx.TokenID, b.From.Hex())
			}
			p, err := r.Get(tx.TokenID)
			if err != nil {
				return err
			}
			if tx.Amount == 0 {
				continue
			}
			if tx.Amount > 1 || p.Owner != b.From {
				return fmt.Errorf("%w: %s holds token %d, requested %d", ErrInsufficientBalance, b.From.Hex(), tx.TokenID, tx.Amount)
			}
			p.Owner = tx.To
			r.put(tx.TokenID, p)
		}
	}
	return nil
}

// UpdateOperators adds or removes operators; only owners may do so.
func (r *Registry) UpdateOperators(caller common.Address, updates []model.OperatorUpdate) error {
	for _, u := range updates {
		if u.Owner != caller {
			return fmt.Errorf("%w: %s cannot manage operators of %s", ErrNotOwner, caller.Hex(), u.Owner.Hex())
		}
		key := u.OperatorKey
		_, had := r.operators[key]
		r.journal.Append(func() {
			if had {
				r.operators[key] = struct{}{}
			} else {
				delete(r.operators, key)
			}
		})
		if u.Add {
			r.operators[key] = struct{}{}
		} else {
			delete(r.operators, key)
		}
	}
	return nil
}

// BalanceOf answers balance requests; unknown tokens report zero.
func (r *Registry) BalanceOf(reqs []model.BalanceRequest) []model.BalanceResponse {
	out := make([]model.BalanceResponse, 0, len(reqs))
	for _, req := range reqs {
		var bal uint64
		if p, ok := r.positions[req.TokenID]; ok && p.Owner == req.Owner {
			bal = 1
		}
		out = append(out, model.BalanceResponse{Request: req, Balance: bal})
	}
	return out
}

// IDs returns position ids in ascending order.
func (r *Registry) IDs() []model.PositionID {
	out := make([]model.PositionID, 0, len(r.positions))
	for id := range r.positions {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// State returns copies of positions and operators for persistence.
func (r *Registry) State() (map[model.PositionID]model.Position, []model.OperatorKey) {
	pos := make(map[model.PositionID]model.Position, len(r.positions))
	for id, p := range r.positions {
		pos[id] = p
	}
	ops := make([]model.OperatorKey, 0, len(r.operators))
	for k := range r.operators {
		ops = append(ops, k)
	}
	sort.Slice(ops, func(i, j int) bool {
		a, b := ops[i], ops[j]
		if a.TokenID != b.TokenID {
			return a.TokenID < b.TokenID
		}
		if c := a.Owner.Cmp(b.Owner); c != 0 {
			return c < 0
		}
		return a.Operator.Cmp(b.Operator) < 0
	})
	return pos, ops
}
