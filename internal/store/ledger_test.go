package store

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()

	l, err := OpenLedger(filepath.Join(t.TempDir(), "state", "ledger.db"))
	if err != nil {
		t.Fatalf("OpenLedger failed: %v", err)
	}

	t.Cleanup(func() { l.Close() })

	return l
}

func TestLedger_Processed(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t)

	done, err := l.IsProcessed(ctx, KindAttachment, "abc-123")
	if err != nil || done {
		t.Fatalf("IsProcessed before mark = %v, %v", done, err)
	}

	if err := l.MarkProcessed(ctx, KindAttachment, "abc-123"); err != nil {
		t.Fatalf("MarkProcessed failed: %v", err)
	}

	// Marking twice is not an error
	if err := l.MarkProcessed(ctx, KindAttachment, "abc-123"); err != nil {
		t.Fatalf("second MarkProcessed failed: %v", err)
	}

	done, err = l.IsProcessed(ctx, KindAttachment, "abc-123")
	if err != nil || !done {
		t.Errorf("IsProcessed after mark = %v, %v", done, err)
	}

	if done, _ := l.IsProcessed(ctx, KindVideo, "abc-123"); done {
		t.Error("kinds must be tracked separately")
	}

	if err := l.Forget(ctx, KindAttachment, "abc-123"); err != nil {
		t.Fatalf("Forget failed: %v", err)
	}

	if done, _ := l.IsProcessed(ctx, KindAttachment, "abc-123"); done {
		t.Error("IsProcessed true after Forget")
	}
}

func TestLedger_Failures(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t)

	records := []Failure{
		{RunID: "run-1", Kind: KindAttachment, Key: "a", Error: "rate limited", Attempts: 3},
		{RunID: "run-2", Kind: KindVideo, Key: "17432", Error: "no captions", Attempts: 1},
		{RunID: "run-1", Kind: KindAgenda, Key: "147181", Error: "404", Attempts: 1},
	}

	for _, f := range records {
		if err := l.RecordFailure(ctx, f); err != nil {
			t.Fatalf("RecordFailure failed: %v", err)
		}
	}

	failures, err := l.Failures(ctx, "run-1")
	if err != nil {
		t.Fatalf("Failures failed: %v", err)
	}

	if len(failures) != 2 {
		t.Fatalf("expected 2 failures for run-1, got %d", len(failures))
	}

	if failures[0].Key != "a" || failures[0].Attempts != 3 || failures[1].Kind != KindAgenda {
		t.Errorf("unexpected failures: %+v", failures)
	}

	if failures[0].FailedAt.IsZero() {
		t.Error("FailedAt should be stamped")
	}
}

func TestLedger_PersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")

	l, err := OpenLedger(path)
	if err != nil {
		t.Fatalf("OpenLedger failed: %v", err)
	}

	if err := l.MarkProcessed(ctx, KindAgenda, "17432"); err != nil {
		t.Fatalf("MarkProcessed failed: %v", err)
	}

	l.Close()

	reopened, err := OpenLedger(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	if done, _ := reopened.IsProcessed(ctx, KindAgenda, "17432"); !done {
		t.Error("processed mark lost after reopen")
	}
}
