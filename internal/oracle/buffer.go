// Package oracle implements the cumulative tick and seconds-per-liquidity
// ring buffer. Logical indices First..Last map onto an arena of
// ReservedLength slots.
package oracle

import (
	"errors"
	"fmt"
	"math/big"
	"sort"

	"liquidityCurve/internal/fixedpoint"
	"liquidityCurve/internal/journal"
	"liquidityCurve/internal/model"
)

// MaxReservedLength caps the arena size.
const MaxReservedLength = 1 << 16

var (
	ErrTimestampTooOld   = errors.New("timestamp too old")
	ErrTimestampInFuture = errors.New("timestamp in future")
	ErrReservedLength    = errors.New("invalid reserved length")
	ErrCorruptBuffer     = errors.New("corrupt cumulatives buffer")
)

// Buffer is not safe for concurrent use.
type Buffer struct {
	arena    []model.TimedCumulatives
	first    uint64
	last     uint64
	reserved uint64
	journal  *journal.Journal
}

// New starts a buffer with a single slot at time now.
func New(now int64, curTick model.TickIndex, reserved uint64, j *journal.Journal) (*Buffer, error) {
	if reserved == 0 || reserved > MaxReservedLength {
		return nil, fmt.Errorf("%w: %d", ErrReservedLength, reserved)
	}
	b := &Buffer{
		arena:    make([]model.TimedCumulatives, reserved),
		reserved: reserved,
		journal:  j,
	}
	b.arena[0] = model.TimedCumulatives{
		Time: now,
		Tick: model.TickCumulative{Sum: new(big.Int), BlockStartValue: curTick},
		Spl:  model.SplCumulative{Sum: new(big.Int), BlockStartLiquidityValue: new(big.Int)},
	}
	return b, nil
}

// FromState restores a buffer and validates its invariants.
func FromState(s model.CumulativesBuffer, j *journal.Journal) (*Buffer, error) {
	if s.ReservedLength == 0 || s.ReservedLength > MaxReservedLength {
		return nil, fmt.Errorf("%w: %d", ErrReservedLength, s.ReservedLength)
	}
	if s.Last < s.First || uint64(len(s.Slots)) != s.Last-s.First+1 || s.Last-s.First+1 > s.ReservedLength {
		return nil, fmt.Errorf("%w: first=%d last=%d slots=%d reserved=%d", ErrCorruptBuffer, s.First, s.Last, len(s.Slots), s.ReservedLength)
	}
	b := &Buffer{
		arena:    make([]model.TimedCumulatives, s.ReservedLength),
		first:    s.First,
		last:     s.Last,
		reserved: s.ReservedLength,
		journal:  j,
	}
	for i, slot := range s.Slots {
		if i > 0 && slot.Time <= s.Slots[i-1].Time {
			return nil, fmt.Errorf("%w: non-increasing time at %d", ErrCorruptBuffer, s.First+uint64(i))
		}
		b.arena[(s.First+uint64(i))%s.ReservedLength] = slot
	}
	return b, nil
}

// State returns the persisted form with slots in logical order.
func (b *Buffer) State() model.CumulativesBuffer {
	slots := make([]model.TimedCumulatives, 0, b.Len())
	for k := b.first; k <= b.last; k++ {
		slots = append(slots, b.Slot(k))
	}
	return model.CumulativesBuffer{
		Slots:          slots,
		First:          b.first,
		Last:           b.last,
		ReservedLength: b.reserved,
	}
}

func (b *Buffer) First() uint64 { return b.first }
func (b *Buffer) Last() uint64 { return b.last }
func (b *Buffer) ReservedLength() uint64 { return b.reserved }
func (b *Buffer) Len() uint64 { return b.last - b.first + 1 }

// Slot returns the slot at logical index k.
func (b *Buffer) Slot(k uint64) model.TimedCumulatives {
	return b.arena[k%b.reserved]
}

// Record appends an observation for time now. It is a no-op when a slot
// for now (or later) already exists.
func (b *Buffer) Record(now int64, curTick model.TickIndex, liquidity *big.Int) bool {
	last := b.Slot(b.last)
	if now <= last.Time {
		return false
	}
	next := model.TimedCumulatives{
		Time: now,
		Tick: model.TickCumulative{
			Sum:             tickSum(last, now),
			BlockStartValue: curTick,
		},
		Spl: model.SplCumulative{
			Sum:                      splSum(last, now),
			BlockStartLiquidityValue: new(big.Int).Set(liquidity),
		},
	}

	oldFirst, oldLast := b.first, b.last
	if b.Len() >= b.reserved {
		b.first++
	}
	b.last++
	pos := b.last % b.reserved
	oldSlot := b.arena[pos]
	b.journal.Append(func() {
		b.arena[pos] = oldSlot
		b.first, b.last = oldFirst, oldLast
	})
	b.arena[pos] = next
	return true
}

// Grow reserves n more slots.
func (b *Buffer) Grow(n uint64) error {
	if n == 0 {
		return nil
	}
	newLen := b.reserved + n
	if newLen > MaxReservedLength || newLen < b.reserved {
		return fmt.Errorf("%w: %d + %d exceeds %d", ErrReservedLength, b.reserved, n, MaxReservedLength)
	}
	arena := make([]model.TimedCumulatives, newLen)
	for k := b.first; k <= b.last; k++ {
		arena[k%newLen] = b.Slot(k)
	}
	oldArena, oldReserved := b.arena, b.reserved
	b.journal.Append(func() { b.arena, b.reserved = oldArena, oldReserved })
	b.arena, b.reserved = arena, newLen
	return nil
}

// ValueAt extrapolates the cumulatives to time t without bounds checks
// against the current time.
func (b *Buffer) ValueAt(t int64) (model.CumulativesValue, error) {
	if t < b.Slot(b.first).Time {
		return model.CumulativesValue{}, fmt.Errorf("%w: %d before %d", ErrTimestampTooOld, t, b.Slot(b.first).Time)
	}
	// greatest logical index whose time is <= t
	n := int(b.Len())
	i := sort.Search(n, func(i int) bool { return b.Slot(b.first+uint64(i)).Time > t }) - 1
	slot := b.Slot(b.first + uint64(i))
	return model.CumulativesValue{
		TickCumulative:                tickSum(slot, t),
		SecondsPerLiquidityCumulative: splSum(slot, t),
	}, nil
}

// Observe returns cumulatives at each timestamp, which must lie between
// the oldest slot and now.
func (b *Buffer) Observe(timestamps []int64, now int64) ([]model.CumulativesValue, error) {
	out := make([]model.CumulativesValue, 0, len(timestamps))
	for _, t := range timestamps {
		if t > now {
			return nil, fmt.Errorf("%w: %d after %d", ErrTimestampInFuture, t, now)
		}
		v, err := b.ValueAt(t)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// CheckInvariants verifies strictly increasing times and the length bound.
func (b *Buffer) CheckInvariants() error {
	if b.last < b.first || b.Len() > b.reserved {
		return fmt.Errorf("%w: first=%d last=%d reserved=%d", ErrCorruptBuffer, b.first, b.last, b.reserved)
	}
	for k := b.first + 1; k <= b.last; k++ {
		prev, cur := b.Slot(k-1), b.Slot(k)
		if cur.Time <= prev.Time {
			return fmt.Errorf("%w: time not increasing at %d", ErrCorruptBuffer, k)
		}
		if cur.Tick.Sum.Cmp(tickSum(prev, cur.Time)) != 0 || cur.Spl.Sum.Cmp(splSum(prev, cur.Time)) != 0 {
			return fmt.Errorf("%w: sums do not follow from slot %d", ErrCorruptBuffer, k-1)
		}
	}
	return nil
}

func tickSum(s model.TimedCumulatives, t int64) *big.Int {
	dt := big.NewInt(t - s.Time)
	inc := dt.Mul(dt, big.NewInt(int64(s.Tick.BlockStartValue)))
	return inc.Add(inc, s.Tick.Sum)
}

func splSum(s model.TimedCumulatives, t int64) *big.Int {
	l := s.Spl.BlockStartLiquidityValue
	if fixedpoint.IsZero(l) {
		return new(big.Int).Set(s.Spl.Sum)
	}
	dt := fixedpoint.ShiftLeft(big.NewInt(t-s.Time), fixedpoint.AccumulatorBits)
	inc := fixedpoint.FloorDiv(dt, l)
	return inc.Add(inc, s.Spl.Sum)
}
