package model

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// PoolStateVersion is bumped on incompatible changes to PoolState.
const PoolStateVersion = 1

// Constants are fixed at pool creation.
type Constants struct {
	FeeBps      uint64         `json:"fee_bps"`
	DevFeeBps   uint64         `json:"dev_fee_bps"`
	TokenX      common.Address `json:"token_x"`
	TokenY      common.Address `json:"token_y"`
	TickSpacing uint32         `json:"tick_spacing"`
}

// Feature is a pausable entrypoint.
type Feature uint8

const (
	FeatureSetPosition Feature = 1 << iota
	FeatureUpdatePosition
	FeatureSwapXY
	FeatureSwapYX
)

var featureNames = []struct {
	f    Feature
	name string
}{
	{FeatureSetPosition, "set_position"},
	{FeatureUpdatePosition, "update_position"},
	{FeatureSwapXY, "x_to_y"},
	{FeatureSwapYX, "y_to_x"},
}

// Has reports whether all bits of g are set in f.
func (f Feature) Has(g Feature) bool { return f&g == g }

func (f Feature) String() string {
	var parts []string
	for _, n := range featureNames {
		if f.Has(n.f) {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// ParseFeature maps a feature name to its bit.
func ParseFeature(name string) (Feature, bool) {
	for _, n := range featureNames {
		if n.name == name {
			return n.f, true
		}
	}
	return 0, false
}

// PoolState is the persisted, versioned record of a pool.
type PoolState struct {
	Version        int                     `json:"version"`
	Name           string                  `json:"name"`
	Address        common.Address          `json:"address"`
	Constants      Constants               `json:"constants"`
	Liquidity      *big.Int                `json:"liquidity"`
	SqrtPrice      *big.Int                `json:"sqrt_price"`
	CurTickIndex   TickIndex               `json:"cur_tick_index"`
	CurTickWitness TickIndex               `json:"cur_tick_witness"`
	FeeGrowth      XY                      `json:"fee_growth"`
	NewPositionID  PositionID              `json:"new_position_id"`
	Ticks          map[TickIndex]Tick      `json:"ticks"`
	Positions      map[PositionID]Position `json:"positions"`
	Operators      []OperatorKey           `json:"operators"`
	Cumulatives    CumulativesBuffer       `json:"cumulatives"`
	DevFees        XY                      `json:"dev_fees"`
	Paused         Feature                 `json:"paused"`
	CreatedAt      int64                   `json:"created_at"`
}
