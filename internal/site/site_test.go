package site

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"councilreader/internal/aggregator"
	"councilreader/internal/config"
	"councilreader/internal/models"
	"councilreader/internal/store"
)

func TestRenderMarkdown(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "heading and paragraph",
			input: "## What Happened\nThe council **approved** the plan.\nIt was *close*.",
			want:  "<h3>What Happened</h3>\n<p>The council <strong>approved</strong> the plan. It was <em>close</em>.</p>\n",
		},
		{
			name:  "bullets become paragraphs",
			input: "- first point\n* second point\n1. third",
			want:  "<p>first point</p>\n<p>second point</p>\n<p>third</p>\n",
		},
		{
			name:  "html is escaped",
			input: "<script>alert(1)</script>",
			want:  "<p>&lt;script&gt;alert(1)&lt;/script&gt;</p>\n",
		},
		{
			name:  "deeper heading",
			input: "### Key details",
			want:  "<h4>Key details</h4>\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(RenderMarkdown(tt.input)); got != tt.want {
				t.Errorf("RenderMarkdown() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPlainText(t *testing.T) {
	got := PlainText("## Title\n- **bold** point\n\nend")
	if got != "Title bold point end" {
		t.Errorf("PlainText() = %q", got)
	}
}

func testMeeting() models.Meeting {
	when := time.Date(2025, 3, 4, 17, 0, 0, 0, time.UTC)

	return models.Meeting{
		MeetingID:       101,
		Title:           "City Council Meeting",
		MeetingDateTime: &when,
		PortalURL:       "https://lacity.primegov.com/Portal/Meeting?meetingTemplateId=9",
		Sections: []models.Section{
			{Title: "ROLL CALL", DisplayTitle: "Roll call"},
			{
				Title:        "Items for which Public Hearings Have Been Held",
				DisplayTitle: "Public hearings",
				Items: []models.Item{{
					ItemNumber:     "5",
					CouncilFile:    models.StringPtr("25-0001"),
					District:       models.StringPtr("CD 4"),
					Title:          models.StringPtr("Street vending permit program"),
					Recommendation: models.StringPtr("Adopt the ordinance."),
					Attachments: []models.Attachment{
						{HistoryID: models.StringPtr("h1"), DisplayText: "Report from CAO", URL: "https://example.test/h1"},
						{HistoryID: models.StringPtr("h2"), DisplayText: "Speaker Card"},
					},
					HasAttachments: true,
				}},
			},
		},
	}
}

func newTestRenderer(t *testing.T) (*Renderer, *store.Records, *config.Config) {
	t.Helper()

	cfg := config.Default()
	cfg.Output.BasePath = filepath.Join(t.TempDir(), "data")
	cfg.Output.SitePath = filepath.Join(t.TempDir(), "site")

	records := store.NewRecords(cfg.Output.BasePath, false)
	if err := records.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	r, err := NewRenderer(records, cfg, nil)
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}

	r.now = func() time.Time { return time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC) }

	return r, records, cfg
}

func TestRenderMeeting(t *testing.T) {
	r, _, _ := newTestRenderer(t)

	var buf bytes.Buffer

	video := &models.VideoSummary{Summary: "## What Happened\nVotes.", Newsletter: "Council passed it.", VideoURL: "https://www.youtube.com/watch?v=x"}
	if err := r.RenderMeeting(&buf, testMeeting(), video, map[string]string{"h1": "The CAO **supports** it."}); err != nil {
		t.Fatalf("RenderMeeting() error = %v", err)
	}

	page := buf.String()

	for _, want := range []string{
		"<h2>Public hearings</h2>",
		"Street vending permit program",
		`href="/councilfiles/25-0001.html"`,
		"Report from CAO",
		"The CAO <strong>supports</strong> it.",
		"Council passed it.",
		"Tuesday, March 4, 2025 at 9:00 AM",
	} {
		if !strings.Contains(page, want) {
			t.Errorf("meeting page missing %q", want)
		}
	}

	for _, unwanted := range []string{"Roll call", "Speaker Card"} {
		if strings.Contains(page, unwanted) {
			t.Errorf("meeting page should not contain %q", unwanted)
		}
	}
}

func TestRenderCouncilFile(t *testing.T) {
	r, _, _ := newTestRenderer(t)

	result := aggregator.Aggregate([]models.Meeting{testMeeting()}, map[string]string{"h1": "Summary of the report."}, aggregator.Options{})
	if len(result.Files) != 1 {
		t.Fatalf("Aggregate() files = %d, want 1", len(result.Files))
	}

	var buf bytes.Buffer
	if err := r.RenderCouncilFile(&buf, result.Files[0]); err != nil {
		t.Fatalf("RenderCouncilFile() error = %v", err)
	}

	page := buf.String()

	for _, want := range []string{"25-0001", "CD 4", `href="/meetings/101.html"`, "Summary of the report.", "Mar 4, 2025"} {
		if !strings.Contains(page, want) {
			t.Errorf("council file page missing %q", want)
		}
	}

	if strings.Contains(page, "Speaker Card") {
		t.Error("council file page should filter speaker cards")
	}
}

func TestGenerate(t *testing.T) {
	r, records, cfg := newTestRenderer(t)

	m := testMeeting()
	if err := records.SaveMeeting(&m); err != nil {
		t.Fatalf("SaveMeeting() error = %v", err)
	}

	result := aggregator.Aggregate([]models.Meeting{m}, nil, aggregator.Options{})
	if err := records.ReplaceCouncilFiles(result.Files, result.Index); err != nil {
		t.Fatalf("ReplaceCouncilFiles() error = %v", err)
	}

	res, err := r.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if res.Meetings != 1 || res.CouncilFiles != 1 || res.Written != 4 || res.Unchanged != 0 {
		t.Fatalf("first Generate() = %+v", res)
	}

	for _, path := range []string{"index.html", "meetings/101.html", "councilfiles/index.html", "councilfiles/25-0001.html"} {
		if _, err := os.Stat(filepath.Join(cfg.Output.SitePath, path)); err != nil {
			t.Errorf("expected page %s: %v", path, err)
		}
	}

	res, err = r.Generate(context.Background())
	if err != nil {
		t.Fatalf("second Generate() error = %v", err)
	}

	if res.Written != 0 || res.Unchanged != 4 {
		t.Errorf("second Generate() = %+v, want all unchanged", res)
	}
}

func TestGenerateNextDayLeavesPagesAlone(t *testing.T) {
	r, records, _ := newTestRenderer(t)

	m := testMeeting()
	if err := records.SaveMeeting(&m); err != nil {
		t.Fatalf("SaveMeeting() error = %v", err)
	}

	result := aggregator.Aggregate([]models.Meeting{m}, nil, aggregator.Options{})
	if err := records.ReplaceCouncilFiles(result.Files, result.Index); err != nil {
		t.Fatalf("ReplaceCouncilFiles() error = %v", err)
	}

	if _, err := r.Generate(context.Background()); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	r.now = func() time.Time { return time.Date(2025, 3, 6, 0, 0, 0, 0, time.UTC) }

	res, err := r.Generate(context.Background())
	if err != nil {
		t.Fatalf("second Generate() error = %v", err)
	}

	if res.Written != 0 || res.Unchanged != 4 {
		t.Errorf("Generate() a day later = %+v, want all unchanged", res)
	}
}

func TestGenerateWithoutIndex(t *testing.T) {
	r, _, _ := newTestRenderer(t)

	res, err := r.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if res.Written != 1 || res.CouncilFiles != 0 {
		t.Errorf("Generate() = %+v, want only the meetings index", res)
	}
}

func TestPreviewServer(t *testing.T) {
	r, records, cfg := newTestRenderer(t)

	m := testMeeting()
	if err := records.SaveMeeting(&m); err != nil {
		t.Fatalf("SaveMeeting() error = %v", err)
	}

	result := aggregator.Aggregate([]models.Meeting{m}, nil, aggregator.Options{})
	if err := records.ReplaceCouncilFiles(result.Files, result.Index); err != nil {
		t.Fatalf("ReplaceCouncilFiles() error = %v", err)
	}

	if _, err := r.Generate(context.Background()); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	server := httptest.NewServer(NewPreviewServer(cfg.Output.SitePath, records).Handler())
	defer server.Close()

	tests := []struct {
		path       string
		wantStatus int
		wantBody   string
	}{
		{"/", http.StatusOK, "City Council meetings"},
		{"/meetings/101.html", http.StatusOK, "Street vending permit program"},
		{"/api/councilfiles/25-0001", http.StatusOK, `"council_file":"25-0001"`},
		{"/api/councilfiles/99-9999", http.StatusNotFound, "not found"},
		{"/api/meetings/abc", http.StatusBadRequest, "meeting id"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(server.URL + tt.path)
			if err != nil {
				t.Fatalf("GET %s error = %v", tt.path, err)
			}
			defer resp.Body.Close()

			var buf bytes.Buffer
			buf.ReadFrom(resp.Body)

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}

			if !strings.Contains(buf.String(), tt.wantBody) {
				t.Errorf("body missing %q:\n%s", tt.wantBody, buf.String())
			}
		})
	}

	resp, err := http.Get(server.URL + "/api/councilfiles")
	if err != nil {
		t.Fatalf("GET index error = %v", err)
	}
	defer resp.Body.Close()

	var idx models.Index
	if err := json.NewDecoder(resp.Body).Decode(&idx); err != nil {
		t.Fatalf("decode index: %v", err)
	}

	if idx.TotalFiles != 1 {
		t.Errorf("TotalFiles = %d, want 1", idx.TotalFiles)
	}
}
