package events

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"liquidityCurve/internal/model"
)

// Decoder converts pool logs back into typed events.
type Decoder struct {
	poolABI     abi.ABI
	topicToName map[string]string
}

// NewDecoder builds a decoder over the pool events ABI.
func NewDecoder() (*Decoder, error) {
	poolABI, err := PoolEventsABI()
	if err != nil {
		return nil, err
	}
	topicToName := make(map[string]string, len(poolABI.Events))
	for name, event := range poolABI.Events {
		topicToName[strings.ToLower(event.ID.Hex())] = name
	}
	return &Decoder{poolABI: poolABI, topicToName: topicToName}, nil
}

// CanDecode checks if the topic0 is supported.
func (d *Decoder) CanDecode(topic0 string) bool {
	if topic0 == "" {
		return false
	}
	_, ok := d.topicToName[strings.ToLower(topic0)]
	return ok
}

// Decode converts a LogRecord into a TypedEvent.
func (d *Decoder) Decode(log model.LogRecord) (*model.TypedEvent, error) {
	if len(log.Topics) == 0 {
		return nil, fmt.Errorf("missing topics")
	}
	name, ok := d.topicToName[strings.ToLower(log.Topics[0])]
	if !ok {
		return nil, fmt.Errorf("unsupported topic0: %s", log.Topics[0])
	}

	var (
		decoded interface{}
		err     error
	)
	switch name {
	case model.EventSwap:
		decoded, err = d.decodeSwap(log)
	case model.EventPositionSet:
		decoded, err = d.decodePositionSet(log)
	case model.EventPositionUpdated:
		decoded, err = d.decodePositionUpdated(log)
	case model.EventPositionTransferred:
		decoded, err = d.decodePositionTransferred(log)
	default:
		return nil, fmt.Errorf("unsupported event name: %s", name)
	}
	if err != nil {
		return nil, err
	}
	return &model.TypedEvent{
		Pool:      log.Pool,
		Seq:       log.Seq,
		LogIndex:  log.LogIndex,
		Address:   log.Address,
		EventName: name,
		Timestamp: log.Timestamp,
		Decoded:   decoded,
	}, nil
}

func (d *Decoder) decodeSwap(log model.LogRecord) (model.SwapEventData, error) {
	event := d.poolABI.Events[model.EventSwap]
	var indexed struct {
		Sender   common.Address
		Receiver common.Address
	}
	values, err := d.unpack(event, log, &indexed, 7)
	if err != nil {
		return model.SwapEventData{}, err
	}
	xToY, ok := values[0].(bool)
	if !ok {
		return model.SwapEventData{}, fmt.Errorf("unsupported bool type %T", values[0])
	}
	nums, err := asBigInts(values[1:])
	if err != nil {
		return model.SwapEventData{}, err
	}
	tick, err := int24FromBig(nums[5])
	if err != nil {
		return model.SwapEventData{}, err
	}
	return model.SwapEventData{
		Sender:       indexed.Sender.Hex(),
		Receiver:     indexed.Receiver.Hex(),
		XToY:         xToY,
		AmountIn:     nums[0].String(),
		AmountOut:    nums[1].String(),
		Fee:          nums[2].String(),
		SqrtPriceX80: nums[3].String(),
		Liquidity:    nums[4].String(),
		Tick:         tick,
	}, nil
}

func (d *Decoder) decodePositionSet(log model.LogRecord) (model.PositionSetEventData, error) {
	event := d.poolABI.Events[model.EventPositionSet]
	var indexed struct {
		PositionId *big.Int
		Owner      common.Address
	}
	values, err := d.unpack(event, log, &indexed, 5)
	if err != nil {
		return model.PositionSetEventData{}, err
	}
	nums, err := asBigInts(values)
	if err != nil {
		return model.PositionSetEventData{}, err
	}
	lower, err := int24FromBig(nums[0])
	if err != nil {
		return model.PositionSetEventData{}, err
	}
	upper, err := int24FromBig(nums[1])
	if err != nil {
		return model.PositionSetEventData{}, err
	}
	return model.PositionSetEventData{
		PositionID: indexed.PositionId.Uint64(),
		Owner:      indexed.Owner.Hex(),
		TickLower:  lower,
		TickUpper:  upper,
		Liquidity:  nums[2].String(),
		AmountX:    nums[3].String(),
		AmountY:    nums[4].String(),
	}, nil
}

func (d *Decoder) decodePositionUpdated(log model.LogRecord) (model.PositionUpdatedEventData, error) {
	event := d.poolABI.Events[model.EventPositionUpdated]
	var indexed struct {
		PositionId *big.Int
		Owner      common.Address
	}
	values, err := d.unpack(event, log, &indexed, 5)
	if err != nil {
		return model.PositionUpdatedEventData{}, err
	}
	nums, err := asBigInts(values)
	if err != nil {
		return model.PositionUpdatedEventData{}, err
	}
	return model.PositionUpdatedEventData{
		PositionID:     indexed.PositionId.Uint64(),
		Owner:          indexed.Owner.Hex(),
		LiquidityDelta: nums[0].String(),
		AmountX:        nums[1].String(),
		AmountY:        nums[2].String(),
		FeeX:           nums[3].String(),
		FeeY:           nums[4].String(),
	}, nil
}

func (d *Decoder) decodePositionTransferred(log model.LogRecord) (model.PositionTransferredEventData, error) {
	event := d.poolABI.Events[model.EventPositionTransferred]
	var indexed struct {
		From       common.Address
		To         common.Address
		PositionId *big.Int
	}
	if _, err := d.unpack(event, log, &indexed, 0); err != nil {
		return model.PositionTransferredEventData{}, err
	}
	return model.PositionTransferredEventData{
		From:       indexed.From.Hex(),
		To:         indexed.To.Hex(),
		PositionID: indexed.PositionId.Uint64(),
	}, nil
}

// unpack parses indexed topics into out and returns the non-indexed values,
// checking there are exactly want of them.
func (d *Decoder) unpack(event abi.Event, log model.LogRecord, out interface{}, want int) ([]interface{}, error) {
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return nil, err
	}
	if err := abi.ParseTopics(out, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return nil, fmt.Errorf("parse topics: %w", err)
	}
	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return nil, err
	}
	if len(values) != want {
		return nil, fmt.Errorf("unexpected %s values: %d", event.Name, len(values))
	}
	return values, nil
}

func parseIndexedTopics(event abi.Event, topics []string) ([]common.Hash, error) {
	indexedCount := len(indexedArguments(event.Inputs))
	if len(topics) != indexedCount+1 {
		return nil, fmt.Errorf("expected %d topics, got %d", indexedCount+1, len(topics))
	}
	out := make([]common.Hash, 0, indexedCount)
	for _, topic := range topics[1:] {
		data, err := hexutil.Decode(topic)
		if err != nil {
			return nil, fmt.Errorf("invalid topic: %w", err)
		}
		if len(data) > 32 {
			return nil, fmt.Errorf("topic length %d", len(data))
		}
		out = append(out, common.BytesToHash(data))
	}
	return out, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func unpackNonIndexed(event abi.Event, dataHex string) ([]interface{}, error) {
	data, err := hexutil.Decode(dataHex)
	if err != nil {
		return nil, fmt.Errorf("invalid data: %w", err)
	}
	values, err := event.Inputs.NonIndexed().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", event.Name, err)
	}
	return values, nil
}

func asBigInts(values []interface{}) ([]*big.Int, error) {
	out := make([]*big.Int, 0, len(values))
	for _, v := range values {
		n, ok := v.(*big.Int)
		if !ok {
			return nil, fmt.Errorf("unsupported integer type %T", v)
		}
		out = append(out, new(big.Int).Set(n))
	}
	return out, nil
}

func int24FromBig(value *big.Int) (int32, error) {
	min := big.NewInt(-1 << 23)
	max := big.NewInt((1 << 23) - 1)
	if value.Cmp(min) < 0 || value.Cmp(max) > 0 {
		return 0, fmt.Errorf("int24 overflow: %s", value.String())
	}
	return int32(value.Int64()), nil
}
