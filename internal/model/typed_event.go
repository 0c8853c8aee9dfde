package model

// TypedEvent is a decoded pool event enriched with its replay position.
type TypedEvent struct {
	Pool      string      `json:"pool"`
	Seq       uint64      `json:"seq"`
	LogIndex  uint64      `json:"log_index"`
	Address   string      `json:"address"`
	EventName string      `json:"event_name"`
	Timestamp int64       `json:"timestamp"`
	Decoded   interface{} `json:"decoded"`
}
