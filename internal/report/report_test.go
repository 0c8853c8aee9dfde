package report

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"liquidityCurve/internal/events"
	"liquidityCurve/internal/model"
)

const unitPrice = "1208925819614629174706176" // 2^80

func TestWindowStart(t *testing.T) {
	cases := []struct {
		ts, win, want int64
	}{
		{0, 3600, 0},
		{3599, 3600, 0},
		{3600, 3600, 3600},
		{-1, 3600, -3600},
		{-3600, 3600, -3600},
	}
	for _, c := range cases {
		if got := windowStart(c.ts, c.win); got != c.want {
			t.Fatalf("windowStart(%d, %d) = %d, want %d", c.ts, c.win, got, c.want)
		}
	}
}

func TestFormatTokenAmount(t *testing.T) {
	if got := formatTokenAmount(big.NewInt(1234567), 6); got != "1.234567" {
		t.Fatalf("format: %s", got)
	}
	if got := formatTokenAmount(big.NewInt(-5), 2); got != "-0.05" {
		t.Fatalf("format negative: %s", got)
	}
	if got := formatTokenAmount(nil, 6); got != "0" {
		t.Fatalf("format nil: %s", got)
	}
}

func TestVirtualReservesAtUnitPrice(t *testing.T) {
	price, _ := new(big.Int).SetString(unitPrice, 10)
	x, y := virtualReserves(big.NewInt(1_000_000), price)
	if x.Int64() != 1_000_000 || y.Int64() != 1_000_000 {
		t.Fatalf("reserves: x=%s y=%s", x, y)
	}
	if x, y := virtualReserves(big.NewInt(0), price); x != nil || y != nil {
		t.Fatalf("zero liquidity should have no reserves")
	}
}

func TestComputeAPR(t *testing.T) {
	rateX := "0.000003"
	rateY := "0.000005"
	apr := computeAPR(&rateX, &rateY, 3600)
	if apr == nil || *apr != "0.035040000000000000" {
		t.Fatalf("apr: %v", apr)
	}
	if computeAPR(nil, nil, 3600) != nil {
		t.Fatalf("apr without rates should be nil")
	}
}

func TestAccumulatorTracksLastSwap(t *testing.T) {
	acc := NewAccumulator("a", 0, 3600)
	first := model.SwapEventData{XToY: true, AmountIn: "1000", AmountOut: "996", Fee: "3", SqrtPriceX80: "100", Liquidity: "7", Tick: -2}
	second := model.SwapEventData{XToY: false, AmountIn: "500", AmountOut: "497", Fee: "2", SqrtPriceX80: "101", Liquidity: "8", Tick: -1}

	if err := acc.AddSwap(model.TypedEvent{Timestamp: 20, Seq: 5}, second); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := acc.AddSwap(model.TypedEvent{Timestamp: 10, Seq: 3}, first); err != nil {
		t.Fatalf("add: %v", err)
	}
	if acc.SwapCount != 2 {
		t.Fatalf("swap count: %d", acc.SwapCount)
	}
	if acc.VolumeX.Int64() != 1497 || acc.VolumeY.Int64() != 1496 {
		t.Fatalf("volume: x=%s y=%s", acc.VolumeX, acc.VolumeY)
	}
	if acc.FeeX.Int64() != 3 || acc.FeeY.Int64() != 2 {
		t.Fatalf("fees: x=%s y=%s", acc.FeeX, acc.FeeY)
	}
	if acc.LastTick != -1 || acc.LastLiquidity.Int64() != 8 {
		t.Fatalf("last swap not kept: tick=%d L=%s", acc.LastTick, acc.LastLiquidity)
	}

	bad := first
	bad.Fee = "x"
	if err := acc.AddSwap(model.TypedEvent{Timestamp: 30}, bad); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestAggregatorRollsWindows(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "receipts.jsonl")
	writeReceipts(t, input, []model.Receipt{
		swapReceipt(t, "a", 1, 100, swapData(true, "1000", "996", "3")),
		positionReceipt(t, "a", 2, 150),
		swapReceipt(t, "b", 1, 160, swapData(true, "2000", "1990", "6")),
		swapReceipt(t, "a", 3, 200, swapData(false, "2000", "1994", "5")),
		{Seq: 4, Pool: "a", Op: model.OpSwapXY, Time: 300, Status: model.StatusFailed, Error: "past deadline"},
		swapReceipt(t, "a", 5, 4000, swapData(true, "10", "9", "1")),
	})

	var out bytes.Buffer
	state := &FileStateStore{Path: filepath.Join(dir, "state.json"), WindowSeconds: 3600}
	registry := NewTokenRegistry(map[string]PoolTokens{
		"b": {X: model.TokenMeta{Decimals: 3}, Y: model.TokenMeta{Decimals: 3}},
	})
	agg, err := NewAggregator(Config{WindowSeconds: 3600, BatchSize: 10, StateStore: state, Tokens: registry}, NewJSONSink(&out), nil)
	if err != nil {
		t.Fatalf("aggregator: %v", err)
	}
	if err := agg.Run(context.Background(), input); err != nil {
		t.Fatalf("run: %v", err)
	}

	rows := readMetrics(t, out.Bytes())
	if len(rows) != 3 {
		t.Fatalf("expected 3 windows, got %d", len(rows))
	}

	first := findWindow(t, rows, "a", 0)
	if first.SwapCount != 2 {
		t.Fatalf("swap count: %d", first.SwapCount)
	}
	if first.VolumeX != "2994" || first.VolumeY != "2996" {
		t.Fatalf("volume: x=%s y=%s", first.VolumeX, first.VolumeY)
	}
	if first.FeeX != "3" || first.FeeY != "5" {
		t.Fatalf("fees: x=%s y=%s", first.FeeX, first.FeeY)
	}
	if first.ReserveX == nil || *first.ReserveX != "1000000" {
		t.Fatalf("reserve x: %v", first.ReserveX)
	}
	if first.FeeRateX == nil || *first.FeeRateX != "0.000003000000000000" {
		t.Fatalf("fee rate x: %v", first.FeeRateX)
	}
	if first.APR == nil || *first.APR != "0.035040000000000000" {
		t.Fatalf("apr: %v", first.APR)
	}

	second := findWindow(t, rows, "a", 3600)
	if second.SwapCount != 1 || second.FeeX != "1" {
		t.Fatalf("second window: %+v", second)
	}

	scaled := findWindow(t, rows, "b", 0)
	if scaled.VolumeX != "2.000" || scaled.FeeX != "0.006" {
		t.Fatalf("decimals not applied: %+v", scaled)
	}

	last, ok, err := state.Load(context.Background())
	if err != nil || !ok || last != -1 {
		t.Fatalf("state should stop below the earliest open window: last=%d ok=%v err=%v", last, ok, err)
	}

	out.Reset()
	again, err := NewAggregator(Config{WindowSeconds: 3600, StateStore: state, Tokens: registry}, NewJSONSink(&out), nil)
	if err != nil {
		t.Fatalf("aggregator: %v", err)
	}
	if err := again.Run(context.Background(), input); err != nil {
		t.Fatalf("rerun: %v", err)
	}
	rerun := readMetrics(t, out.Bytes())
	if len(rerun) != 3 || findWindow(t, rerun, "a", 0).VolumeX != first.VolumeX {
		t.Fatalf("rerun should rebuild the same windows: %+v", rerun)
	}

	out.Reset()
	partial, err := NewAggregator(Config{WindowSeconds: 3600, RecomputeFrom: 3600}, NewJSONSink(&out), nil)
	if err != nil {
		t.Fatalf("aggregator: %v", err)
	}
	if err := partial.Run(context.Background(), input); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	rows = readMetrics(t, out.Bytes())
	if len(rows) != 1 || rows[0].Pool != "a" || rows[0].WindowStart.Unix() != 3600 {
		t.Fatalf("recompute from 3600: %+v", rows)
	}
}

func TestAggregatorRequiresWindow(t *testing.T) {
	agg, err := NewAggregator(Config{}, NewJSONSink(&bytes.Buffer{}), nil)
	if err != nil {
		t.Fatalf("aggregator: %v", err)
	}
	if err := agg.Run(context.Background(), "unused"); err == nil {
		t.Fatalf("expected window error")
	}
}

func swapData(xToY bool, in, out, fee string) model.SwapEventData {
	return model.SwapEventData{
		Sender:       common.HexToAddress("0x2222222222222222222222222222222222222222").Hex(),
		Receiver:     common.HexToAddress("0x3333333333333333333333333333333333333333").Hex(),
		XToY:         xToY,
		AmountIn:     in,
		AmountOut:    out,
		Fee:          fee,
		SqrtPriceX80: unitPrice,
		Liquidity:    "1000000",
		Tick:         0,
	}
}

func swapReceipt(t *testing.T, pool string, seq uint64, ts int64, data model.SwapEventData) model.Receipt {
	t.Helper()
	op := model.OpSwapXY
	if !data.XToY {
		op = model.OpSwapYX
	}
	return receiptWith(t, pool, seq, ts, op, model.EventSwap, data)
}

func positionReceipt(t *testing.T, pool string, seq uint64, ts int64) model.Receipt {
	t.Helper()
	data := model.PositionSetEventData{
		PositionID: 0,
		Owner:      common.HexToAddress("0x4444444444444444444444444444444444444444").Hex(),
		TickLower:  -10,
		TickUpper:  10,
		Liquidity:  "100",
		AmountX:    "1",
		AmountY:    "1",
	}
	return receiptWith(t, pool, seq, ts, model.OpSetPosition, model.EventPositionSet, data)
}

func receiptWith(t *testing.T, pool string, seq uint64, ts int64, op, name string, data interface{}) model.Receipt {
	t.Helper()
	enc, err := events.NewEncoder()
	if err != nil {
		t.Fatalf("encoder: %v", err)
	}
	log, err := enc.Encode(common.HexToAddress("0x1111111111111111111111111111111111111111"), name, data)
	if err != nil {
		t.Fatalf("encode %s: %v", name, err)
	}
	log.Pool, log.Seq, log.Timestamp = pool, seq, ts
	return model.Receipt{Seq: seq, Pool: pool, Op: op, Time: ts, Status: model.StatusApplied, Logs: []model.LogRecord{log}}
}

func writeReceipts(t *testing.T, path string, receipts []model.Receipt) {
	t.Helper()
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range receipts {
		if err := enc.Encode(r); err != nil {
			t.Fatalf("encode receipt: %v", err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write receipts: %v", err)
	}
}

func readMetrics(t *testing.T, data []byte) []model.PoolWindowMetrics {
	t.Helper()
	var rows []model.PoolWindowMetrics
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		var m model.PoolWindowMetrics
		if err := json.Unmarshal(scanner.Bytes(), &m); err != nil {
			t.Fatalf("decode metrics: %v", err)
		}
		rows = append(rows, m)
	}
	return rows
}

func findWindow(t *testing.T, rows []model.PoolWindowMetrics, pool string, start int64) model.PoolWindowMetrics {
	t.Helper()
	for _, r := range rows {
		if r.Pool == pool && r.WindowStart.Unix() == start {
			return r
		}
	}
	t.Fatalf("window %s@%d not found", pool, start)
	return model.PoolWindowMetrics{}
}

func TestFileStateStoreRejectsOtherWindow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	hourly := &FileStateStore{Path: path, WindowSeconds: 3600}
	if err := hourly.Save(context.Background(), 7199); err != nil {
		t.Fatalf("save: %v", err)
	}
	ts, ok, err := hourly.Load(context.Background())
	if err != nil || !ok || ts != 7199 {
		t.Fatalf("load: ts=%d ok=%v err=%v", ts, ok, err)
	}

	daily := &FileStateStore{Path: path, WindowSeconds: 86400}
	if _, _, err := daily.Load(context.Background()); err == nil {
		t.Fatalf("expected window mismatch error")
	}
}
