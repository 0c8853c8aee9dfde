package model

import "encoding/json"

// Operation names accepted by the replay runner.
const (
	OpSetPosition              = "set_position"
	OpUpdatePosition           = "update_position"
	OpSwapXY                   = "x_to_y"
	OpSwapYX                   = "y_to_x"
	OpTransfer                 = "transfer"
	OpUpdateOperators          = "update_operators"
	OpIncreaseObservationCount = "increase_observation_count"
	OpObserve                  = "observe"
	OpSnapshotInside           = "snapshot_cumulatives_inside"
	OpClaimDevFees             = "claim_dev_fees"
	OpSetPaused                = "set_paused"
	OpMint                     = "mint"
)

// OperationRecord is one line of a replay input file.
type OperationRecord struct {
	Seq    uint64          `json:"seq"`
	Pool   string          `json:"pool"`
	Op     string          `json:"op"`
	Sender string          `json:"sender"`
	Time   int64           `json:"time"`
	Params json.RawMessage `json:"params"`
}

// Receipt status values.
const (
	StatusApplied = "applied"
	StatusFailed  = "failed"
)

// Receipt is the outcome of an applied OperationRecord.
type Receipt struct {
	Seq    uint64          `json:"seq"`
	Pool   string          `json:"pool"`
	Op     string          `json:"op"`
	Sender string          `json:"sender"`
	Time   int64           `json:"time"`
	Status string          `json:"status"`
	Error  string          `json:"error,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Logs   []LogRecord     `json:"logs,omitempty"`
}
