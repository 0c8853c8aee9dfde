package sim

import (
	"fmt"

	"liquidityCurve/internal/model"
)

// SeqRange is an inclusive range of record positions within one pool.
type SeqRange struct {
	From int
	To   int
}

// SplitBatches splits n records into consecutive ranges of at most
// batchSize.
func SplitBatches(n, batchSize int) ([]SeqRange, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if n < 0 {
		return nil, fmt.Errorf("record count must not be negative")
	}

	ranges := make([]SeqRange, 0, (n+batchSize-1)/batchSize)
	for start := 0; start < n; start += batchSize {
		end := start + batchSize - 1
		if end >= n {
			end = n - 1
		}
		ranges = append(ranges, SeqRange{From: start, To: end})
	}
	return ranges, nil
}

// groupByPool splits records per pool, keeping input order, and checks
// that sequence numbers strictly increase within each pool.
func groupByPool(records []model.OperationRecord) (map[string][]model.OperationRecord, []string, error) {
	groups := make(map[string][]model.OperationRecord)
	var order []string
	for _, rec := range records {
		if rec.Pool == "" {
			return nil, nil, fmt.Errorf("record %d: pool is required", rec.Seq)
		}
		prev, ok := groups[rec.Pool]
		if !ok {
			order = append(order, rec.Pool)
		} else if last := prev[len(prev)-1]; rec.Seq <= last.Seq {
			return nil, nil, fmt.Errorf("pool %s: seq %d after %d", rec.Pool, rec.Seq, last.Seq)
		}
		groups[rec.Pool] = append(prev, rec)
	}
	return groups, order, nil
}
