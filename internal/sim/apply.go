package sim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"liquidityCurve/internal/cfmm"
	"liquidityCurve/internal/model"
	"liquidityCurve/internal/tokens"
)

// errNotAdmin rejects admin operations from other senders.
var errNotAdmin = errors.New("sender is not the replay admin")

type outcome struct {
	result interface{}
	events []cfmm.Event
}

// poolWorker owns one pool and its token ledger during a replay.
type poolWorker struct {
	pool   *cfmm.Pool
	ledger *tokens.Ledger
	clock  *cfmm.ManualClock
	admin  common.Address
}

func (w *poolWorker) apply(ctx context.Context, rec model.OperationRecord) (outcome, error) {
	sender, err := ParseAddress(rec.Sender)
	if err != nil {
		return outcome{}, err
	}
	w.clock.Set(rec.Time)

	switch rec.Op {
	case model.OpSetPosition:
		var p cfmm.SetPositionParams
		if err := decodeParams(rec.Params, &p); err != nil {
			return outcome{}, err
		}
		res, err := w.pool.SetPosition(ctx, sender, p)
		return outcome{result: res, events: res.Events}, err

	case model.OpUpdatePosition:
		var p cfmm.UpdatePositionParams
		if err := decodeParams(rec.Params, &p); err != nil {
			return outcome{}, err
		}
		res, err := w.pool.UpdatePosition(ctx, sender, p)
		return outcome{result: res, events: res.Events}, err

	case model.OpSwapXY, model.OpSwapYX:
		var p cfmm.SwapParams
		if err := decodeParams(rec.Params, &p); err != nil {
			return outcome{}, err
		}
		swap := w.pool.SwapXY
		if rec.Op == model.OpSwapYX {
			swap = w.pool.SwapYX
		}
		res, err := swap(ctx, sender, p)
		return outcome{result: res, events: res.Events}, err

	case model.OpTransfer:
		var p transferParams
		if err := decodeParams(rec.Params, &p); err != nil {
			return outcome{}, err
		}
		evs, err := w.pool.Transfer(ctx, sender, p.Batches)
		return outcome{events: evs}, err

	case model.OpUpdateOperators:
		var p operatorsParams
		if err := decodeParams(rec.Params, &p); err != nil {
			return outcome{}, err
		}
		return outcome{}, w.pool.UpdateOperators(ctx, sender, p.Updates)

	case model.OpIncreaseObservationCount:
		var p increaseParams
		if err := decodeParams(rec.Params, &p); err != nil {
			return outcome{}, err
		}
		return outcome{}, w.pool.IncreaseObservationCount(ctx, p.Count)

	case model.OpObserve:
		var p observeParams
		if err := decodeParams(rec.Params, &p); err != nil {
			return outcome{}, err
		}
		vals, err := w.pool.Observe(ctx, p.Timestamps)
		return outcome{result: vals}, err

	case model.OpSnapshotInside:
		var p snapshotParams
		if err := decodeParams(rec.Params, &p); err != nil {
			return outcome{}, err
		}
		snap, err := w.pool.SnapshotCumulativesInside(ctx, p.Lower, p.Upper, nil)
		return outcome{result: snap}, err

	case model.OpClaimDevFees:
		if err := w.requireAdmin(sender); err != nil {
			return outcome{}, err
		}
		var p claimParams
		if err := decodeParams(rec.Params, &p); err != nil {
			return outcome{}, err
		}
		if p.To == (common.Address{}) {
			p.To = sender
		}
		claimed, err := w.pool.ClaimDevFees(ctx, p.To)
		return outcome{result: claimed}, err

	case model.OpSetPaused:
		if err := w.requireAdmin(sender); err != nil {
			return outcome{}, err
		}
		var p pausedParams
		if err := decodeParams(rec.Params, &p); err != nil {
			return outcome{}, err
		}
		f, err := parseFeatures(p.Features)
		if err != nil {
			return outcome{}, err
		}
		w.pool.SetPaused(f)
		return outcome{result: f.String()}, nil

	case model.OpMint:
		if err := w.requireAdmin(sender); err != nil {
			return outcome{}, err
		}
		var p mintParams
		if err := decodeParams(rec.Params, &p); err != nil {
			return outcome{}, err
		}
		token, err := resolveToken(w.pool.Constants(), p.Token)
		if err != nil {
			return outcome{}, err
		}
		if p.To == (common.Address{}) {
			p.To = sender
		}
		return outcome{}, w.ledger.Mint(token, p.To, p.Amount)

	default:
		return outcome{}, fmt.Errorf("unsupported op %q", rec.Op)
	}
}

func (w *poolWorker) requireAdmin(sender common.Address) error {
	if w.admin == (common.Address{}) || w.admin == sender {
		return nil
	}
	return fmt.Errorf("%w: %s", errNotAdmin, sender.Hex())
}

// buildReceipt records the outcome of one record. Events are only encoded
// for applied operations.
func (r *Runner) buildReceipt(pool common.Address, rec model.OperationRecord, out outcome, opErr error) (model.Receipt, error) {
	receipt := model.Receipt{
		Seq:    rec.Seq,
		Pool:   rec.Pool,
		Op:     rec.Op,
		Sender: rec.Sender,
		Time:   rec.Time,
		Status: model.StatusApplied,
	}
	if opErr != nil {
		receipt.Status = model.StatusFailed
		receipt.Error = opErr.Error()
		return receipt, nil
	}
	if out.result != nil {
		data, err := json.Marshal(out.result)
		if err != nil {
			return model.Receipt{}, fmt.Errorf("marshal result %d: %w", rec.Seq, err)
		}
		receipt.Result = data
	}
	for i, ev := range out.events {
		log, err := r.encoder.Encode(pool, ev.Name, ev.Data)
		if err != nil {
			return model.Receipt{}, fmt.Errorf("encode %s for record %d: %w", ev.Name, rec.Seq, err)
		}
		log.Pool = rec.Pool
		log.Seq = rec.Seq
		log.LogIndex = uint64(i)
		log.Timestamp = rec.Time
		receipt.Logs = append(receipt.Logs, log)
	}
	return receipt, nil
}
