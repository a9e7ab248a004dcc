package formatter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"councilreader/internal/models"
	"councilreader/internal/store"
)

const dateLayout = "2006-01-02"

// StageRow is one line of a run summary.
type StageRow struct {
	Stage      string
	Candidates int
	Processed  int
	Skipped    int
	Failed     int
	CostUSD    float64
}

// RunSummary renders the per-stage counts of a pipeline run.
func RunSummary(runID string, rows []StageRow) string {
	t := NewTable("Stage", "Candidates", "Processed", "Skipped", "Failed", "Cost (USD)")

	for _, r := range rows {
		t.AddRow(r.Stage,
			strconv.Itoa(r.Candidates),
			strconv.Itoa(r.Processed),
			strconv.Itoa(r.Skipped),
			strconv.Itoa(r.Failed),
			fmt.Sprintf("%.4f", r.CostUSD))
	}

	return fmt.Sprintf("## Run %s\n\n%s\n", runID, t)
}

// FailureReport lists the failures recorded for a run, or a one-line note
// when there were none.
func FailureReport(failures []store.Failure) string {
	if len(failures) == 0 {
		return "No failures.\n"
	}

	t := NewTable("Kind", "Key", "Attempts", "Error").SetMaxCellWidth(80)
	for _, f := range failures {
		t.AddRow(f.Kind, f.Key, strconv.Itoa(f.Attempts), f.Error)
	}

	return fmt.Sprintf("## Failures (%d)\n\n%s\n", len(failures), t)
}

// IndexReport renders the first limit council files of an index, most
// recently seen first. A limit of zero lists every file.
func IndexReport(idx models.Index, limit int, titleWidth int) string {
	entries := idx.Files
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	t := NewTable("Council file", "Title", "District", "Appearances", "Documents", "Summaries", "Last seen").
		SetMaxCellWidth(titleWidth)

	for _, e := range entries {
		t.AddRow(e.CouncilFile,
			e.Title,
			models.Deref(e.District),
			strconv.Itoa(e.AppearanceCount),
			strconv.Itoa(e.AttachmentCount),
			strconv.Itoa(e.SummaryCount),
			formatDate(e.LastSeen))
	}

	var b strings.Builder

	fmt.Fprintf(&b, "## Council files (%d)\n\nGenerated %s\n\n%s\n",
		idx.TotalFiles, idx.GeneratedAt.UTC().Format(time.RFC3339), t)

	if len(entries) < len(idx.Files) {
		fmt.Fprintf(&b, "\n... and %d more\n", len(idx.Files)-len(entries))
	}

	return b.String()
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}

	return t.Format(dateLayout)
}
