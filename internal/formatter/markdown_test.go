package formatter

import (
	"strings"
	"testing"
	"time"

	"councilreader/internal/models"
	"councilreader/internal/store"
)

func TestFormatTables(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name: "Basic table",
			input: `
| Council file | Title |
| --- | --- |
| 25-0001 | Street vending |
`,
			expected: `
| Council file | Title          |
| ------------ | -------------- |
| 25-0001      | Street vending |
`,
		},
		{
			name: "Excessive dashes",
			input: `
| CF | D |
| ---------------------- | ------------- |
| A | B |
`,
			expected: `
| CF  | D   |
| --- | --- |
| A   | B   |
`,
		},
		{
			name: "Text around table",
			input: `
## Report

|   Stage   |   Failed   |
| --- | --- |
|   fetch   |   0   |

Done.
`,
			expected: `
## Report

| Stage | Failed |
| ----- | ------ |
| fetch | 0      |

Done.
`,
		},
		{
			name: "Wide characters",
			input: `
| Date | Title |
| --- | --- |
| 2025-01-01 | Budget act |
| 2025-01-02 | 市議会 |
`,
			expected: `
| Date       | Title      |
| ---------- | ---------- |
| 2025-01-01 | Budget act |
| 2025-01-02 | 市議会     |
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatTables(strings.TrimSpace(tt.input))
			if got != strings.TrimSpace(tt.expected) {
				t.Errorf("FormatTables() = \n%v\nwant \n%v", got, tt.expected)
			}
		})
	}
}

func TestTable(t *testing.T) {
	table := NewTable("Key", "Error").SetMaxCellWidth(10)
	table.AddRow("h1", "a | b")
	table.AddRow("h2", "a very long error message")

	want := strings.Join([]string{
		`| Key | Error      |`,
		`| --- | ---------- |`,
		`| h1  | a \| b     |`,
		`| h2  | a very ... |`,
	}, "\n")

	if got := table.String(); got != want {
		t.Errorf("String() = \n%s\nwant \n%s", got, want)
	}

	if table.Len() != 2 {
		t.Errorf("Len() = %d, want 2", table.Len())
	}
}

func TestIndexReport(t *testing.T) {
	seen := time.Date(2025, 2, 3, 10, 0, 0, 0, time.UTC)
	idx := models.Index{
		GeneratedAt: seen,
		TotalFiles:  2,
		Files: []models.IndexEntry{
			{CouncilFile: "25-0002", Title: "Newer", LastSeen: &seen, AppearanceCount: 2},
			{CouncilFile: "25-0001", Title: "Older"},
		},
	}

	got := IndexReport(idx, 1, 40)

	for _, want := range []string{"## Council files (2)", "| 25-0002", "2025-02-03", "... and 1 more"} {
		if !strings.Contains(got, want) {
			t.Errorf("IndexReport() missing %q:\n%s", want, got)
		}
	}

	if strings.Contains(got, "25-0001") {
		t.Errorf("IndexReport() should stop at the limit:\n%s", got)
	}
}

func TestFailureReport(t *testing.T) {
	if got := FailureReport(nil); got != "No failures.\n" {
		t.Errorf("FailureReport(nil) = %q", got)
	}

	got := FailureReport([]store.Failure{{Kind: store.KindAttachment, Key: "h1", Attempts: 3, Error: "rate limited"}})
	if !strings.Contains(got, "## Failures (1)") || !strings.Contains(got, "| attachment | h1") {
		t.Errorf("FailureReport() = \n%s", got)
	}
}

func TestRunSummary(t *testing.T) {
	got := RunSummary("abc", []StageRow{{Stage: "fetch", Candidates: 3, Processed: 2, Skipped: 1}})

	if !strings.HasPrefix(got, "## Run abc\n\n| Stage") {
		t.Errorf("RunSummary() = \n%s", got)
	}

	if !strings.Contains(got, "| fetch | 3          | 2         | 1       | 0      | 0.0000     |") {
		t.Errorf("RunSummary() row not aligned:\n%s", got)
	}
}
