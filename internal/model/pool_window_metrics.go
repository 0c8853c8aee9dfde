package model

import "time"

// PoolWindowMetrics stores aggregated swap metrics for a pool window.
// Reserves are the virtual reserves implied by the liquidity and price of
// the window's last swap.
type PoolWindowMetrics struct {
	Pool           string    `json:"pool"`
	WindowSizeSecs int64     `json:"window_size_seconds"`
	WindowStart    time.Time `json:"window_start"`
	WindowEnd      time.Time `json:"window_end"`
	SwapCount      uint64    `json:"swap_count"`
	VolumeX        string    `json:"volume_x"`
	VolumeY        string    `json:"volume_y"`
	FeeX           string    `json:"fee_x"`
	FeeY           string    `json:"fee_y"`
	ReserveX       *string   `json:"reserve_x,omitempty"`
	ReserveY       *string   `json:"reserve_y,omitempty"`
	FeeRateX       *string   `json:"fee_rate_x,omitempty"`
	FeeRateY       *string   `json:"fee_rate_y,omitempty"`
	APR            *string   `json:"apr,omitempty"`
	LastTick       int32     `json:"last_tick"`
	LastSqrtPrice  string    `json:"last_sqrt_price"`
}
