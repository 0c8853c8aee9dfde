package events

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"liquidityCurve/internal/model"
)

// Encoder turns pool event payloads into EVM-style logs.
type Encoder struct {
	poolABI abi.ABI
}

// NewEncoder builds an encoder over the pool events ABI.
func NewEncoder() (*Encoder, error) {
	poolABI, err := PoolEventsABI()
	if err != nil {
		return nil, err
	}
	return &Encoder{poolABI: poolABI}, nil
}

// Encode packs one event. The caller fills the replay position fields
// (Pool, Seq, LogIndex, Timestamp) of the returned record.
func (e *Encoder) Encode(address common.Address, name string, data interface{}) (model.LogRecord, error) {
	var (
		indexed []interface{}
		values  []interface{}
	)
	switch d := data.(type) {
	case model.SwapEventData:
		nums, err := parseBigs(d.AmountIn, d.AmountOut, d.Fee, d.SqrtPriceX80, d.Liquidity)
		if err != nil {
			return model.LogRecord{}, fmt.Errorf("swap: %w", err)
		}
		indexed = []interface{}{common.HexToAddress(d.Sender), common.HexToAddress(d.Receiver)}
		values = []interface{}{d.XToY, nums[0], nums[1], nums[2], nums[3], nums[4], big.NewInt(int64(d.Tick))}
	case model.PositionSetEventData:
		nums, err := parseBigs(d.Liquidity, d.AmountX, d.AmountY)
		if err != nil {
			return model.LogRecord{}, fmt.Errorf("position set: %w", err)
		}
		indexed = []interface{}{new(big.Int).SetUint64(d.PositionID), common.HexToAddress(d.Owner)}
		values = []interface{}{big.NewInt(int64(d.TickLower)), big.NewInt(int64(d.TickUpper)), nums[0], nums[1], nums[2]}
	case model.PositionUpdatedEventData:
		nums, err := parseBigs(d.LiquidityDelta, d.AmountX, d.AmountY, d.FeeX, d.FeeY)
		if err != nil {
			return model.LogRecord{}, fmt.Errorf("position updated: %w", err)
		}
		indexed = []interface{}{new(big.Int).SetUint64(d.PositionID), common.HexToAddress(d.Owner)}
		values = []interface{}{nums[0], nums[1], nums[2], nums[3], nums[4]}
	case model.PositionTransferredEventData:
		indexed = []interface{}{common.HexToAddress(d.From), common.HexToAddress(d.To), new(big.Int).SetUint64(d.PositionID)}
	default:
		return model.LogRecord{}, fmt.Errorf("unsupported event payload %T", data)
	}

	event, ok := e.poolABI.Events[name]
	if !ok {
		return model.LogRecord{}, fmt.Errorf("unsupported event name: %s", name)
	}
	topics, err := makeTopics(event, indexed)
	if err != nil {
		return model.LogRecord{}, err
	}
	packed, err := event.Inputs.NonIndexed().Pack(values...)
	if err != nil {
		return model.LogRecord{}, fmt.Errorf("pack %s: %w", name, err)
	}
	return model.LogRecord{
		Address: address.Hex(),
		Topics:  topics,
		Data:    hexutil.Encode(packed),
	}, nil
}

func makeTopics(event abi.Event, indexed []interface{}) ([]string, error) {
	if want := len(indexedArguments(event.Inputs)); want != len(indexed) {
		return nil, fmt.Errorf("%s: expected %d indexed values, got %d", event.Name, want, len(indexed))
	}
	query := make([][]interface{}, 0, len(indexed))
	for _, v := range indexed {
		query = append(query, []interface{}{v})
	}
	hashes, err := abi.MakeTopics(query...)
	if err != nil {
		return nil, fmt.Errorf("topics %s: %w", event.Name, err)
	}
	topics := make([]string, 0, len(hashes)+1)
	topics = append(topics, event.ID.Hex())
	for _, h := range hashes {
		topics = append(topics, h[0].Hex())
	}
	return topics, nil
}

func parseBigs(values ...string) ([]*big.Int, error) {
	out := make([]*big.Int, 0, len(values))
	for _, s := range values {
		n, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, fmt.Errorf("invalid integer %q", s)
		}
		out = append(out, n)
	}
	return out, nil
}
