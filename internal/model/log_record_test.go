package model

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestLogRecordJSONRoundTrip(t *testing.T) {
	original := LogRecord{
		Pool:      "xtz-usd",
		Seq:       36,
		LogIndex:  2,
		Address:   "0x1111111111111111111111111111111111111111",
		Topics:    []string{"0xaaa", "0xbbb"},
		Data:      "0xdeadbeef",
		Timestamp: 1700000000,
	}

	b, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded LogRecord
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if !reflect.DeepEqual(original, decoded) {
		t.Fatalf("round-trip mismatch: %+v != %+v", original, decoded)
	}
}

func TestFeatureString(t *testing.T) {
	f := FeatureSwapXY | FeatureSetPosition
	if got := f.String(); got != "set_position|x_to_y" {
		t.Fatalf("unexpected feature string %q", got)
	}
	if !f.Has(FeatureSwapXY) || f.Has(FeatureSwapYX) {
		t.Fatalf("unexpected Has result for %v", f)
	}
	parsed, ok := ParseFeature("y_to_x")
	if !ok || parsed != FeatureSwapYX {
		t.Fatalf("parse y_to_x: got %v %v", parsed, ok)
	}
	if _, ok := ParseFeature("bogus"); ok {
		t.Fatalf("bogus feature should not parse")
	}
}
