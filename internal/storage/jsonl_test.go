package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"liquidityCurve/internal/model"
)

func TestJsonlStorageAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "receipts.jsonl")
	s := NewJsonlStorage(path)

	if err := s.PutReceipts(nil); err != nil {
		t.Fatalf("empty batch: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("empty batch created file: %v", err)
	}

	first := []model.Receipt{{Seq: 1, Pool: "a", Op: model.OpSwapXY, Status: model.StatusApplied}}
	second := []model.Receipt{
		{Seq: 2, Pool: "a", Op: model.OpSwapYX, Status: model.StatusFailed, Error: "expired"},
		{Seq: 3, Pool: "b", Op: model.OpObserve, Status: model.StatusApplied, Result: json.RawMessage(`[1,2]`)},
	}
	if err := s.PutReceipts(first); err != nil {
		t.Fatalf("put first: %v", err)
	}
	if err := s.PutReceipts(second); err != nil {
		t.Fatalf("put second: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer file.Close()

	var got []model.Receipt
	err = ScanLines(file, func(line []byte) error {
		var r model.Receipt
		if err := json.Unmarshal(line, &r); err != nil {
			return err
		}
		got = append(got, r)
		return nil
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("receipts: %d", len(got))
	}
	if got[1].Error != "expired" || string(got[2].Result) != "[1,2]" {
		t.Fatalf("receipt mismatch: %+v", got)
	}
}

func TestReadOperations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ops.jsonl")
	input := strings.Join([]string{
		`{"seq":1,"pool":"a","op":"mint","sender":"0x01","time":10,"params":{"amount":5}}`,
		``,
		`{"seq":2,"pool":"a","op":"x_to_y","sender":"0x01","time":11,"params":{"amount_in":1}}`,
	}, "\n")
	if err := os.WriteFile(path, []byte(input), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	records, err := ReadOperations(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(records) != 2 || records[1].Op != model.OpSwapXY || records[1].Time != 11 {
		t.Fatalf("records mismatch: %+v", records)
	}

	if err := os.WriteFile(path, []byte("{not json}\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadOperations(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
