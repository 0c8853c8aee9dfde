package model

// Event names emitted by a pool.
const (
	EventSwap                = "Swap"
	EventPositionSet         = "PositionSet"
	EventPositionUpdated     = "PositionUpdated"
	EventPositionTransferred = "PositionTransferred"
)

// SwapEventData is the decoded Swap event payload.
type SwapEventData struct {
	Sender       string `json:"sender"`
	Receiver     string `json:"receiver"`
	XToY         bool   `json:"x_to_y"`
	AmountIn     string `json:"amount_in"`
	AmountOut    string `json:"amount_out"`
	Fee          string `json:"fee"`
	SqrtPriceX80 string `json:"sqrt_price_x80"`
	Liquidity    string `json:"liquidity"`
	Tick         int32  `json:"tick"`
}

// PositionSetEventData is the decoded PositionSet event payload.
type PositionSetEventData struct {
	PositionID uint64 `json:"position_id"`
	Owner      string `json:"owner"`
	TickLower  int32  `json:"tick_lower"`
	TickUpper  int32  `json:"tick_upper"`
	Liquidity  string `json:"liquidity"`
	AmountX    string `json:"amount_x"`
	AmountY    string `json:"amount_y"`
}

// PositionUpdatedEventData is the decoded PositionUpdated event payload.
// Amounts are signed: positive flows into the pool.
type PositionUpdatedEventData struct {
	PositionID     uint64 `json:"position_id"`
	Owner          string `json:"owner"`
	LiquidityDelta string `json:"liquidity_delta"`
	AmountX        string `json:"amount_x"`
	AmountY        string `json:"amount_y"`
	FeeX           string `json:"fee_x"`
	FeeY           string `json:"fee_y"`
}

// PositionTransferredEventData is the decoded PositionTransferred event payload.
type PositionTransferredEventData struct {
	From       string `json:"from"`
	To         string `json:"to"`
	PositionID uint64 `json:"position_id"`
}
