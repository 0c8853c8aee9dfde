package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// PositionID doubles as the position's token id.
type PositionID uint64

// Position is liquidity provided over [Lower, Upper).
type Position struct {
	Lower               TickIndex      `json:"lower_tick_index"`
	Upper               TickIndex      `json:"upper_tick_index"`
	Liquidity           *big.Int       `json:"liquidity"`
	FeeGrowthInsideLast XY             `json:"fee_growth_inside_last"`
	Owner               common.Address `json:"owner"`
}

// OperatorKey grants Operator the right to move Owner's TokenID.
type OperatorKey struct {
	Owner    common.Address `json:"owner"`
	Operator common.Address `json:"operator"`
	TokenID  PositionID     `json:"token_id"`
}

// OperatorUpdate adds or removes an operator.
type OperatorUpdate struct {
	Add bool `json:"add"`
	OperatorKey
}

// TransferDestination is one leg of a position transfer batch.
type TransferDestination struct {
	To      common.Address `json:"to"`
	TokenID PositionID     `json:"token_id"`
	Amount  uint64         `json:"amount"`
}

// TransferBatch moves positions out of From.
type TransferBatch struct {
	From common.Address        `json:"from"`
	Txs  []TransferDestination `json:"txs"`
}

// BalanceRequest asks for Owner's balance of TokenID.
type BalanceRequest struct {
	Owner   common.Address `json:"owner"`
	TokenID PositionID     `json:"token_id"`
}

// BalanceResponse is always 0 or 1.
type BalanceResponse struct {
	Request BalanceRequest `json:"request"`
	Balance uint64         `json:"balance"`
}

// Transfer is a fungible token movement executed by the host ledger.
type Transfer struct {
	Token  common.Address `json:"token"`
	From   common.Address `json:"from"`
	To     common.Address `json:"to"`
	Amount *big.Int       `json:"amount"`
}
