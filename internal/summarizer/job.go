package summarizer

import (
	"context"
	"fmt"
	"time"

	"councilreader/internal/logger"
	"councilreader/internal/store"
)

// Deps are the collaborators shared by the summary jobs. Ledger may be nil,
// in which case only the summary files decide what is already done.
type Deps struct {
	Provider Provider
	Records  *store.Records
	Ledger   *store.Ledger
	Log      *logger.Logger
	RunID    string
}

// Report tallies one job run.
type Report struct {
	Kind         string
	Candidates   int
	Processed    int
	Skipped      int
	Failed       int
	InputTokens  int64
	OutputTokens int64
	CostUSD      float64
}

func (r *Report) add(resp *Response) {
	r.InputTokens += resp.InputTokens
	r.OutputTokens += resp.OutputTokens
	r.CostUSD += resp.Cost()
}

// String renders a one-line tally.
func (r Report) String() string {
	return fmt.Sprintf("%s: %d candidates, %d processed, %d skipped, %d failed, $%.4f",
		r.Kind, r.Candidates, r.Processed, r.Skipped, r.Failed, r.CostUSD)
}

func (d *Deps) logger() *logger.Logger {
	if d.Log == nil {
		d.Log = logger.Discard()
	}

	return d.Log
}

// processed reports whether the ledger already holds key.
func (d *Deps) processed(ctx context.Context, kind, key string) bool {
	if d.Ledger == nil {
		return false
	}

	done, err := d.Ledger.IsProcessed(ctx, kind, key)
	if err != nil {
		d.logger().Warn("⚠️  Ledger lookup failed", "kind", kind, "key", key, "error", err)

		return false
	}

	return done
}

func (d *Deps) markProcessed(ctx context.Context, kind, key string) {
	if d.Ledger == nil {
		return
	}

	if err := d.Ledger.MarkProcessed(ctx, kind, key); err != nil {
		d.logger().Warn("⚠️  Failed to update ledger", "kind", kind, "key", key, "error", err)
	}
}

func (d *Deps) recordFailure(ctx context.Context, kind, key string, attempts int, cause error) {
	d.logger().Error("❌ Summary failed", "kind", kind, "key", key, "attempts", attempts, "error", cause)

	if d.Ledger == nil {
		return
	}

	err := d.Ledger.RecordFailure(ctx, store.Failure{
		FailedAt: time.Now().UTC(),
		RunID:    d.RunID,
		Kind:     kind,
		Key:      key,
		Error:    cause.Error(),
		Attempts: attempts,
	})
	if err != nil {
		d.logger().Warn("⚠️  Failed to record failure", "kind", kind, "key", key, "error", err)
	}
}
