// Package ticks keeps a pool's initialized ticks as an index-keyed arena
// linked through explicit Prev/Next indices. The two sentinel ticks at
// MinTick and MaxTick always exist.
package ticks

import (
	"errors"
	"fmt"
	"math/big"
	"sort"

	"liquidityCurve/internal/journal"
	"liquidityCurve/internal/model"
	"liquidityCurve/internal/tickmath"
)

var (
	ErrInvalidWitness     = errors.New("invalid witness")
	ErrTickNotInitialized = errors.New("tick not initialized")
	ErrCorruptChain       = errors.New("corrupt tick chain")
)

// Globals are the pool-wide accumulators at the current time.
type Globals struct {
	Now                 int64
	TickCumulative      *big.Int
	FeeGrowth           model.XY
	SecondsPerLiquidity *big.Int
}

// Registry is not safe for concurrent use.
type Registry struct {
	ticks   map[model.TickIndex]model.Tick
	ladder  *tickmath.Ladder
	journal *journal.Journal
}

// New returns a registry holding only the sentinels.
func New(ladder *tickmath.Ladder, j *journal.Journal) *Registry {
	r := &Registry{
		ticks:   make(map[model.TickIndex]model.Tick),
		ladder:  ladder,
		journal: j,
	}
	r.ticks[model.MinTick] = r.blank(model.MinTick, model.MinTick-1, model.MaxTick)
	r.ticks[model.MaxTick] = r.blank(model.MaxTick, model.MinTick, model.MaxTick+1)
	return r
}

// FromState rebuilds a registry from persisted ticks and checks the chain.
func FromState(ticks map[model.TickIndex]model.Tick, ladder *tickmath.Ladder, j *journal.Journal) (*Registry, error) {
	r := &Registry{
		ticks:   make(map[model.TickIndex]model.Tick, len(ticks)),
		ladder:  ladder,
		journal: j,
	}
	for idx, t := range ticks {
		r.ticks[idx] = t
	}
	if err := r.CheckChain(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) blank(index, prev, next model.TickIndex) model.Tick {
	return model.Tick{
		Prev:                       prev,
		Next:                       next,
		LiquidityNet:               new(big.Int),
		TickCumulativeOutside:      new(big.Int),
		FeeGrowthOutside:           model.ZeroXY(),
		SecondsPerLiquidityOutside: new(big.Int),
		SqrtPrice:                  r.ladder.MustSqrtPriceAtTick(int32(index)),
	}
}

func (r *Registry) put(index model.TickIndex, t model.Tick) {
	old, existed := r.ticks[index]
	r.journal.Append(func() {
		if existed {
			r.ticks[index] = old
		} else {
			delete(r.ticks, index)
		}
	})
	r.ticks[index] = t
}

func (r *Registry) remove(index model.TickIndex) {
	old := r.ticks[index]
	r.journal.Append(func() { r.ticks[index] = old })
	delete(r.ticks, index)
}

// Get returns the tick at index.
func (r *Registry) Get(index model.TickIndex) (model.Tick, bool) {
	t, ok := r.ticks[index]
	return t, ok
}

// MustGet returns the tick at index or ErrTickNotInitialized.
func (r *Registry) MustGet(index model.TickIndex) (model.Tick, error) {
	t, ok := r.ticks[index]
	if !ok {
		return model.Tick{}, fmt.Errorf("%w: %d", ErrTickNotInitialized, index)
	}
	return t, nil
}

func (r *Registry) Len() int { return len(r.ticks) }

// Init initializes index if needed, linking it after scanning forward from
// witness. Outside accumulators start from the globals when the tick is at
// or below the current tick, from zero otherwise.
func (r *Registry) Init(index, witness, cur model.TickIndex, g Globals) (bool, error) {
	if _, ok := r.ticks[index]; ok {
		return false, nil
	}
	w, ok := r.ticks[witness]
	if !ok || witness > index {
		return false, fmt.Errorf("%w: witness %d for tick %d", ErrInvalidWitness, witness, index)
	}

	prev, next := witness, w.Next
	for next < index {
		prev = next
		nt, ok := r.ticks[next]
		if !ok {
			return false, fmt.Errorf("%w: dangling next %d", ErrCorruptChain, next)
		}
		next = nt.Next
	}

	t := r.blank(index, prev, next)
	if index <= cur {
		t.SecondsOutside = g.Now
		t.TickCumulativeOutside = new(big.Int).Set(g.TickCumulative)
		t.FeeGrowthOutside = model.XY{X: new(big.Int).Set(g.FeeGrowth.X), Y: new(big.Int).Set(g.FeeGrowth.Y)}
		t.SecondsPerLiquidityOutside = new(big.Int).Set(g.SecondsPerLiquidity)
	}

	pt := r.ticks[prev]
	pt.Next = index
	r.put(prev, pt)
	nt := r.ticks[next]
	nt.Prev = index
	r.put(next, nt)
	r.put(index, t)
	return true, nil
}

// AddPosition increments the tick's position count.
func (r *Registry) AddPosition(index model.TickIndex) error {
	t, err := r.MustGet(index)
	if err != nil {
		return err
	}
	t.NPositions++
	r.put(index, t)
	return nil
}

// ReleasePosition decrements the position count and garbage-collects the
// tick when it reaches zero. It reports whether the tick was removed.
func (r *Registry) ReleasePosition(index model.TickIndex) (bool, error) {
	t, err := r.MustGet(index)
	if err != nil {
		return false, err
	}
	if t.NPositions == 0 {
		return false, fmt.Errorf("%w: tick %d has no positions", ErrCorruptChain, index)
	}
	t.NPositions--
	if t.NPositions > 0 || index.IsSentinel() {
		r.put(index, t)
		return false, nil
	}
	if t.LiquidityNet.Sign() != 0 {
		return false, fmt.Errorf("%w: tick %d released with liquidity net %s", ErrCorruptChain, index, t.LiquidityNet)
	}

	pt := r.ticks[t.Prev]
	pt.Next = t.Next
	r.put(t.Prev, pt)
	nt := r.ticks[t.Next]
	nt.Prev = t.Prev
	r.put(t.Next, nt)
	r.remove(index)
	return true, nil
}

// AddLiquidityNet adds delta to the tick's liquidity net.
func (r *Registry) AddLiquidityNet(index model.TickIndex, delta *big.Int) error {
	t, err := r.MustGet(index)
	if err != nil {
		return err
	}
	t.LiquidityNet = new(big.Int).Add(t.LiquidityNet, delta)
	r.put(index, t)
	return nil
}

// Cross flips every outside accumulator of index to global - outside.
func (r *Registry) Cross(index model.TickIndex, g Globals) (model.Tick, error) {
	t, err := r.MustGet(index)
	if err != nil {
		return model.Tick{}, err
	}
	t.SecondsOutside = g.Now - t.SecondsOutside
	t.TickCumulativeOutside = new(big.Int).Sub(g.TickCumulative, t.TickCumulativeOutside)
	t.FeeGrowthOutside = g.FeeGrowth.Sub(t.FeeGrowthOutside)
	t.SecondsPerLiquidityOutside = new(big.Int).Sub(g.SecondsPerLiquidity, t.SecondsPerLiquidityOutside)
	r.put(index, t)
	return t, nil
}

// Ascending returns initialized indices in chain order.
func (r *Registry) Ascending() []model.TickIndex {
	out := make([]model.TickIndex, 0, len(r.ticks))
	for idx := range r.ticks {
		out = append(out, idx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// State returns a copy of the tick map for persistence.
func (r *Registry) State() map[model.TickIndex]model.Tick {
	out := make(map[model.TickIndex]model.Tick, len(r.ticks))
	for idx, t := range r.ticks {
		out[idx] = t
	}
	return out
}

// CheckChain verifies that initialized ticks form a single ascending chain
// between the sentinels.
func (r *Registry) CheckChain() error {
	for _, s := range []model.TickIndex{model.MinTick, model.MaxTick} {
		if _, ok := r.ticks[s]; !ok {
			return fmt.Errorf("%w: missing sentinel %d", ErrCorruptChain, s)
		}
	}
	sorted := r.Ascending()
	for i, idx := range sorted {
		t := r.ticks[idx]
		wantPrev, wantNext := model.MinTick-1, model.MaxTick+1
		if i > 0 {
			wantPrev = sorted[i-1]
		}
		if i < len(sorted)-1 {
			wantNext = sorted[i+1]
		}
		if t.Prev != wantPrev || t.Next != wantNext {
			return fmt.Errorf("%w: tick %d links (%d, %d), want (%d, %d)", ErrCorruptChain, idx, t.Prev, t.Next, wantPrev, wantNext)
		}
	}
	return nil
}
