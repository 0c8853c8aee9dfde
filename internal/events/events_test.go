package events

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"liquidityCurve/internal/model"
)

func TestEncodeDecodeSwap(t *testing.T) {
	enc, err := NewEncoder()
	if err != nil {
		t.Fatalf("encoder: %v", err)
	}
	dec, err := NewDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	pool := common.HexToAddress("0x1111111111111111111111111111111111111111")
	sender := common.HexToAddress("0x2222222222222222222222222222222222222222")
	receiver := common.HexToAddress("0x3333333333333333333333333333333333333333")
	in := model.SwapEventData{
		Sender:       sender.Hex(),
		Receiver:     receiver.Hex(),
		XToY:         true,
		AmountIn:     "1000",
		AmountOut:    "996",
		Fee:          "3",
		SqrtPriceX80: "1208925819614629174706176",
		Liquidity:    "10000000",
		Tick:         -1048575,
	}

	log, err := enc.Encode(pool, model.EventSwap, in)
	if err != nil {
		t.Fatalf("encode swap: %v", err)
	}
	if len(log.Topics) != 3 {
		t.Fatalf("topics: %d", len(log.Topics))
	}
	if !dec.CanDecode(log.Topics[0]) {
		t.Fatalf("topic0 not recognised: %s", log.Topics[0])
	}
	log.Pool, log.Seq, log.LogIndex, log.Timestamp = "test", 7, 1, 1700000000

	event, err := dec.Decode(log)
	if err != nil {
		t.Fatalf("decode swap: %v", err)
	}
	swap, ok := event.Decoded.(model.SwapEventData)
	if !ok {
		t.Fatalf("decoded type mismatch: %T", event.Decoded)
	}
	if swap != in {
		t.Fatalf("swap mismatch: %+v", swap)
	}
	if event.Pool != "test" || event.Seq != 7 || event.EventName != model.EventSwap || event.Address != pool.Hex() {
		t.Fatalf("event position mismatch: %+v", event)
	}
}

func TestEncodeDecodePositionEvents(t *testing.T) {
	enc, err := NewEncoder()
	if err != nil {
		t.Fatalf("encoder: %v", err)
	}
	dec, err := NewDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	pool := common.HexToAddress("0x9999999999999999999999999999999999999999")
	owner := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	other := common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")

	set := model.PositionSetEventData{
		PositionID: 4,
		Owner:      owner.Hex(),
		TickLower:  -120,
		TickUpper:  120,
		Liquidity:  "5000",
		AmountX:    "100",
		AmountY:    "200",
	}
	updated := model.PositionUpdatedEventData{
		PositionID:     4,
		Owner:          owner.Hex(),
		LiquidityDelta: "-5000",
		AmountX:        "-99",
		AmountY:        "-199",
		FeeX:           "3",
		FeeY:           "0",
	}
	moved := model.PositionTransferredEventData{From: owner.Hex(), To: other.Hex(), PositionID: 4}

	cases := []struct {
		name string
		data interface{}
	}{
		{model.EventPositionSet, set},
		{model.EventPositionUpdated, updated},
		{model.EventPositionTransferred, moved},
	}
	for _, tc := range cases {
		log, err := enc.Encode(pool, tc.name, tc.data)
		if err != nil {
			t.Fatalf("encode %s: %v", tc.name, err)
		}
		event, err := dec.Decode(log)
		if err != nil {
			t.Fatalf("decode %s: %v", tc.name, err)
		}
		if event.EventName != tc.name {
			t.Fatalf("name mismatch: %s != %s", event.EventName, tc.name)
		}
		if event.Decoded != tc.data {
			t.Fatalf("%s mismatch: %+v", tc.name, event.Decoded)
		}
	}
}

func TestEncodeRejectsBadPayload(t *testing.T) {
	enc, err := NewEncoder()
	if err != nil {
		t.Fatalf("encoder: %v", err)
	}
	pool := common.HexToAddress("0x1111111111111111111111111111111111111111")
	if _, err := enc.Encode(pool, model.EventSwap, struct{}{}); err == nil {
		t.Fatalf("expected error for unknown payload")
	}
	bad := model.PositionSetEventData{Liquidity: "lots", AmountX: "1", AmountY: "1"}
	if _, err := enc.Encode(pool, model.EventPositionSet, bad); err == nil {
		t.Fatalf("expected error for non-numeric amount")
	}
}

func TestDecodeRejectsUnknownTopic(t *testing.T) {
	dec, err := NewDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}
	log := model.LogRecord{Topics: []string{"0x" + "ab"}, Data: "0x"}
	if dec.CanDecode(log.Topics[0]) {
		t.Fatalf("unexpected topic support")
	}
	if _, err := dec.Decode(log); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := dec.Decode(model.LogRecord{}); err == nil {
		t.Fatalf("expected error for missing topics")
	}
}
