package discsector

import (
	"encoding/json"
	"io"
	"log"
	"strings"
	"testing"
)

func newTestLogger(w io.Writer) *log.Logger {
	return log.New(w, "", 0)
}

func TestOptionsDefaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		opts      Options
		wantIssue int
	}{
		{"zero", Options{}, DefaultMaxIssues},
		{"explicit", Options{MaxIssues: 3}, 3},
		{"none", Options{MaxIssues: -1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.opts.maxIssues(); got != tt.wantIssue {
				t.Errorf("maxIssues() = %d, want %d", got, tt.wantIssue)
			}
			if tt.opts.workers() < 1 {
				t.Errorf("workers() = %d", tt.opts.workers())
			}
		})
	}

	if got := (Options{Workers: 3}).workers(); got != 3 {
		t.Errorf("workers() = %d, want 3", got)
	}
}

func TestReportMerge(t *testing.T) {
	t.Parallel()

	r := &Report{Operation: "verify"}
	a := &Report{Sectors: 3, Valid: 1, Invalid: 2}
	a.addIssue(Issue{Index: 1, Problem: "bad EDC"}, 10)
	a.addIssue(Issue{Index: 2, Problem: "bad ECC"}, 10)
	b := &Report{Sectors: 2, Valid: 1, Invalid: 1, TrailingBytes: 5}
	b.addIssue(Issue{Index: 4, Problem: "bad sync"}, 10)

	r.merge(a, 2)
	r.merge(b, 2)

	if r.Sectors != 5 || r.Valid != 2 || r.Invalid != 3 || r.TrailingBytes != 5 {
		t.Errorf("merged report = %+v", r)
	}
	if r.IssueCount != 3 || len(r.Issues) != 2 || r.Issues[1].Index != 2 {
		t.Errorf("issues = %d %+v", r.IssueCount, r.Issues)
	}
	if r.OK() {
		t.Error("OK() = true with issues")
	}
}

func TestReportAddIssueLimit(t *testing.T) {
	t.Parallel()

	r := &Report{}
	for i := range 5 {
		r.addIssue(Issue{Index: int64(i)}, 0)
	}
	if r.IssueCount != 5 || len(r.Issues) != 0 {
		t.Errorf("IssueCount = %d, Issues = %+v", r.IssueCount, r.Issues)
	}
}

func TestReportJSON(t *testing.T) {
	t.Parallel()

	r := &Report{Operation: "verify", Sectors: 2, Valid: 1, Invalid: 1, IssueCount: 1,
		Issues: []Issue{{Index: 1, LBA: 1, Track: 1, Type: "MODE1", Problem: "bad EDC"}}}
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	for _, key := range []string{"operation", "sectors", "valid", "invalid", "issue_count", "issues"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("JSON lacks %q: %s", key, data)
		}
	}
	for _, key := range []string{"trials", "seeds", "trailing_bytes"} {
		if _, ok := decoded[key]; ok {
			t.Errorf("JSON has empty %q: %s", key, data)
		}
	}
}

func TestReportSummary(t *testing.T) {
	t.Parallel()

	r := &Report{Operation: "repair", Sectors: 10, Data: 8, Audio: 2, Valid: 7, Repaired: 1, IssueCount: 1}
	got := r.Summary()
	want := "repair: sectors=10 audio=2 data=8 valid=7 repaired=1 issues=1"
	if got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}

	empty := (&Report{Operation: "verify"}).Summary()
	if !strings.HasSuffix(empty, "sectors=0 issues=0") {
		t.Errorf("Summary() = %q", empty)
	}
}
