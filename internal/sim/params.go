package sim

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"liquidityCurve/internal/model"
)

type mintParams struct {
	Token  string         `json:"token"`
	To     common.Address `json:"to"`
	Amount *big.Int       `json:"amount"`
}

type transferParams struct {
	Batches []model.TransferBatch `json:"batches"`
}

type operatorsParams struct {
	Updates []model.OperatorUpdate `json:"updates"`
}

type observeParams struct {
	Timestamps []int64 `json:"timestamps"`
}

type snapshotParams struct {
	Lower model.TickIndex `json:"lower_tick_index"`
	Upper model.TickIndex `json:"upper_tick_index"`
}

type increaseParams struct {
	Count uint64 `json:"count"`
}

type claimParams struct {
	To common.Address `json:"to"`
}

type pausedParams struct {
	Features []string `json:"features"`
}

// decodeParams strictly decodes a record's params. Missing params leave
// dst at its zero value.
func decodeParams(raw json.RawMessage, dst interface{}) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode params: %w", err)
	}
	return nil
}

// ParseAddress converts a hex string into common.Address.
func ParseAddress(input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid address: %q", input)
	}
	return common.HexToAddress(input), nil
}

// resolveToken accepts "x", "y" or a token address.
func resolveToken(consts model.Constants, token string) (common.Address, error) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "x":
		return consts.TokenX, nil
	case "y":
		return consts.TokenY, nil
	}
	return ParseAddress(token)
}

func parseFeatures(names []string) (model.Feature, error) {
	var f model.Feature
	for _, name := range names {
		bit, ok := model.ParseFeature(strings.TrimSpace(name))
		if !ok {
			return 0, fmt.Errorf("unknown feature %q", name)
		}
		f |= bit
	}
	return f, nil
}
