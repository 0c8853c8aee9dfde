package cfmm

import (
	"errors"
	"fmt"

	"liquidityCurve/internal/oracle"
	"liquidityCurve/internal/positions"
	"liquidityCurve/internal/ticks"
	"liquidityCurve/internal/tickmath"
)

var (
	ErrExpired                  = errors.New("deadline expired")
	ErrFeaturePaused            = errors.New("feature paused")
	ErrTicksOutOfOrder          = errors.New("ticks out of order")
	ErrTickNotMultipleOfSpacing = errors.New("tick not a multiple of spacing")
	ErrSlippageExceeded         = errors.New("slippage exceeded")
	ErrNegativeLiquidity        = errors.New("negative liquidity delta")
	ErrRangeReversed            = errors.New("range reversed")
	ErrInvalidConfig            = errors.New("invalid pool config")
	ErrInvariant                = errors.New("internal invariant violated")

	ErrTickOutOfRange        = tickmath.ErrTickOutOfRange
	ErrInvalidWitness        = ticks.ErrInvalidWitness
	ErrTickNotInitialized    = ticks.ErrTickNotInitialized
	ErrPositionNotFound      = positions.ErrPositionNotFound
	ErrInsufficientLiquidity = positions.ErrInsufficientLiquidity
	ErrNotOperator           = positions.ErrNotOperator
	ErrNotOwner              = positions.ErrNotOwner
	ErrInsufficientBalance   = positions.ErrInsufficientBalance
	ErrTimestampTooOld       = oracle.ErrTimestampTooOld
	ErrTimestampInFuture     = oracle.ErrTimestampInFuture
	ErrReservedLength        = oracle.ErrReservedLength
)

// OpError carries the pool and operation a failure happened in.
type OpError struct {
	Pool string
	Op   string
	Err  error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("pool %s: %s: %v", e.Pool, e.Op, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }
