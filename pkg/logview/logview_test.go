package logview

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sample = `{"level":"DEBUG","timestamp":"2026-03-01T12:00:00Z","component":"root","message":"Check failed, treating as negative","fields":{"check":"su","correlation_id":"aaa"}}
not json at all
{"level":"INFO","timestamp":"2026-03-01T12:00:01Z","component":"checker","message":"Device evaluated","fields":{"correlation_id":"aaa","rooted":false}}
{"level":"INFO","timestamp":"2026-03-01T12:05:00Z","component":"root","message":"Root indicator found","fields":{"correlation_id":"bbb","reason":"package:com.topjohnwu.magisk"}}
{"level":"WARN","timestamp":"2026-03-01T12:05:00Z","component":"monitor","message":"Device verdict changed","fields":{"correlation_id":"bbb","field":"rooted"}}
`

func writeLog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "devguard.log")
	if err := os.WriteFile(path, []byte(sample), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestReadFilters(t *testing.T) {
	path := writeLog(t)

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all", Filter{}, []string{"Check failed, treating as negative", "Device evaluated", "Root indicator found", "Device verdict changed"}},
		{"correlation", Filter{CorrelationID: "aaa"}, []string{"Check failed, treating as negative", "Device evaluated"}},
		{"level", Filter{MinLevel: "warn"}, []string{"Device verdict changed"}},
		{"keyword in fields", Filter{Keyword: "MAGISK"}, []string{"Root indicator found"}},
		{"last n", Filter{Lines: 1}, []string{"Device verdict changed"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			entries, err := Read(path, tc.filter)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if len(entries) != len(tc.want) {
				t.Fatalf("got %d entries, want %d", len(entries), len(tc.want))
			}
			for i, e := range entries {
				if e.Message != tc.want[i] {
					t.Fatalf("entry %d = %q, want %q", i, e.Message, tc.want[i])
				}
			}
		})
	}
}

func TestReadMissingFile(t *testing.T) {
	if _, err := Read(filepath.Join(t.TempDir(), "missing.log"), Filter{}); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestFormat(t *testing.T) {
	entries, err := Read(writeLog(t), Filter{CorrelationID: "bbb", MinLevel: "WARN"})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	got := Format(entries)
	want := `[2026-03-01T12:05:00Z] WARN [monitor] Device verdict changed {"correlation_id":"bbb","field":"rooted"}`
	if strings.TrimSpace(got) != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestReadTailKeepsLastLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.log")
	var sb strings.Builder
	for i := 0; i < 100; i++ {
		sb.WriteString("line\n")
	}
	sb.WriteString("last\n")
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	lines, err := readTail(path, 3)
	if err != nil {
		t.Fatalf("readTail: %v", err)
	}
	if len(lines) != 3 || lines[2] != "last" {
		t.Fatalf("unexpected tail %v", lines)
	}
}

func TestReadFindsOldEvaluationByCorrelationID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devguard.log")
	var sb strings.Builder
	sb.WriteString(`{"level":"INFO","timestamp":"2026-03-01T11:00:00Z","component":"checker","message":"Device evaluated","fields":{"correlation_id":"old-eval"}}` + "\n")
	for i := 0; i < 250; i++ {
		sb.WriteString(fmt.Sprintf(`{"level":"DEBUG","timestamp":"2026-03-01T12:00:00Z","component":"root","message":"Check failed","fields":{"correlation_id":"run-%d"}}`+"\n", i))
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	entries, err := Read(path, Filter{CorrelationID: "old-eval"})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(entries) != 1 || entries[0].Message != "Device evaluated" {
		t.Fatalf("expected the old evaluation, got %+v", entries)
	}

	entries, err = Read(path, Filter{Keyword: "run-", Lines: 2})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if cid := entries[1].Fields["correlation_id"]; cid != "run-249" {
		t.Fatalf("last entry correlation_id = %v, want run-249", cid)
	}
	if cid := entries[0].Fields["correlation_id"]; cid != "run-248" {
		t.Fatalf("first entry correlation_id = %v, want run-248", cid)
	}
}
