package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"councilreader/internal/models"
)

func newTestRecords(t *testing.T) *Records {
	t.Helper()

	r := NewRecords(t.TempDir(), true)
	if err := r.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	return r
}

func TestRecords_MeetingRoundTrip(t *testing.T) {
	r := newTestRecords(t)

	when := time.Date(2025, 10, 21, 10, 0, 0, 0, time.UTC)
	m := &models.Meeting{
		MeetingID:       17432,
		TemplateID:      147181,
		MeetingDateTime: &when,
		Sections:        []models.Section{{SectionID: "s1", Title: "Closed Session", Items: []models.Item{}}},
	}

	if r.HasMeeting(17432) {
		t.Fatal("HasMeeting true before save")
	}

	if err := r.SaveMeeting(m); err != nil {
		t.Fatalf("SaveMeeting failed: %v", err)
	}

	if !r.HasMeeting(17432) {
		t.Fatal("HasMeeting false after save")
	}

	loaded, err := r.LoadMeeting(17432)
	if err != nil {
		t.Fatalf("LoadMeeting failed: %v", err)
	}

	if loaded.TemplateID != 147181 || !loaded.MeetingDateTime.Equal(when) {
		t.Errorf("loaded meeting = %+v", loaded)
	}

	if filepath.Base(r.AgendaPath(17432)) != "agenda_17432.json" {
		t.Errorf("AgendaPath = %s", r.AgendaPath(17432))
	}
}

func TestRecords_LoadMeeting_NotFound(t *testing.T) {
	r := newTestRecords(t)

	if _, err := r.LoadMeeting(1); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRecords_LoadMeetings_SkipsCorrupt(t *testing.T) {
	r := newTestRecords(t)

	for _, id := range []int{30, 10, 20} {
		if err := r.SaveMeeting(&models.Meeting{MeetingID: id, TemplateID: 1}); err != nil {
			t.Fatalf("SaveMeeting failed: %v", err)
		}
	}

	if err := os.WriteFile(filepath.Join(r.Base(), DirAgendas, "agenda_99.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	meetings, err := r.LoadMeetings()
	if err == nil {
		t.Error("expected an error for the corrupt file")
	}

	if len(meetings) != 3 {
		t.Fatalf("expected 3 readable meetings, got %d", len(meetings))
	}

	if meetings[0].MeetingID != 10 || meetings[2].MeetingID != 30 {
		t.Errorf("meetings not in id order: %d, %d, %d", meetings[0].MeetingID, meetings[1].MeetingID, meetings[2].MeetingID)
	}
}

func TestRecords_SummaryTexts(t *testing.T) {
	r := newTestRecords(t)

	summaries := []*models.AttachmentSummary{
		{HistoryID: "abc-123", Summary: "## Summary\nText."},
		{HistoryID: "def-456", Summary: "   "},
	}

	for _, s := range summaries {
		if err := r.SaveAttachmentSummary(s); err != nil {
			t.Fatalf("SaveAttachmentSummary failed: %v", err)
		}
	}

	if !r.HasAttachmentSummary("abc-123") || r.HasAttachmentSummary("zzz") {
		t.Error("HasAttachmentSummary mismatch")
	}

	texts, err := r.LoadSummaryTexts()
	if err != nil {
		t.Fatalf("LoadSummaryTexts failed: %v", err)
	}

	if len(texts) != 1 || texts["abc-123"] != "## Summary\nText." {
		t.Errorf("texts = %v", texts)
	}
}

func TestRecords_VideoSummary(t *testing.T) {
	r := newTestRecords(t)

	if err := r.SaveVideoSummary(&models.VideoSummary{MeetingID: 5, Summary: "Full", Newsletter: "Short"}); err != nil {
		t.Fatalf("SaveVideoSummary failed: %v", err)
	}

	if filepath.Base(r.VideoSummaryPath(5)) != "meeting_5_summary.json" {
		t.Errorf("VideoSummaryPath = %s", r.VideoSummaryPath(5))
	}

	loaded, err := r.LoadVideoSummary(5)
	if err != nil || loaded.Newsletter != "Short" {
		t.Errorf("LoadVideoSummary = %+v, %v", loaded, err)
	}
}

func TestRecords_ReplaceCouncilFiles_RemovesStale(t *testing.T) {
	r := newTestRecords(t)

	first := []models.CouncilFile{{CouncilFile: "25-1294"}, {CouncilFile: "25-0001"}}
	if err := r.ReplaceCouncilFiles(first, models.Index{TotalFiles: 2}); err != nil {
		t.Fatalf("ReplaceCouncilFiles failed: %v", err)
	}

	second := []models.CouncilFile{{CouncilFile: "25-1294"}}
	if err := r.ReplaceCouncilFiles(second, models.Index{TotalFiles: 1}); err != nil {
		t.Fatalf("ReplaceCouncilFiles failed: %v", err)
	}

	if _, err := r.LoadCouncilFile("25-0001"); !errors.Is(err, ErrNotFound) {
		t.Errorf("stale council file not removed: %v", err)
	}

	if _, err := r.LoadCouncilFile("25-1294"); err != nil {
		t.Errorf("current council file missing: %v", err)
	}

	idx, err := r.LoadIndex()
	if err != nil || idx.TotalFiles != 1 {
		t.Errorf("LoadIndex = %+v, %v", idx, err)
	}
}

func TestRecords_RecentMeetings(t *testing.T) {
	r := newTestRecords(t)

	listing := []models.PortalMeeting{{ID: 1, Title: "City Council Meeting"}}
	if err := r.SaveRecentMeetings(listing); err != nil {
		t.Fatalf("SaveRecentMeetings failed: %v", err)
	}

	loaded, err := r.LoadRecentMeetings()
	if err != nil || len(loaded) != 1 || loaded[0].Title != "City Council Meeting" {
		t.Errorf("LoadRecentMeetings = %+v, %v", loaded, err)
	}
}

func TestWriteFileAtomic_NoTempLeftovers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.json")

	if err := WriteFileAtomic(path, []byte("one")); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}

	if err := WriteFileAtomic(path, []byte("two")); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil || string(data) != "two" {
		t.Errorf("content = %q, %v", data, err)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestSafeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"25-1294-S1", "25-1294-S1"},
		{"0d2b0c57-a58e-40b6", "0d2b0c57-a58e-40b6"},
	}

	for _, tt := range tests {
		if got := SafeName(tt.in); got != tt.want {
			t.Errorf("SafeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if got := SafeName("../etc/passwd"); !strings.HasPrefix(got, "_._etc_passwd-") || strings.ContainsAny(got, "/") {
		t.Errorf("SafeName(../etc/passwd) = %q", got)
	}

	// ids that differ only in replaced characters keep distinct names
	names := map[string]string{}
	for _, id := range []string{"a b", "a/b", "a?b", "a_b"} {
		name := SafeName(id)
		if other, ok := names[name]; ok {
			t.Errorf("SafeName(%q) = SafeName(%q) = %q", id, other, name)
		}

		names[name] = id
	}
}

func TestRecords_SummaryIDsWithReplacedCharacters(t *testing.T) {
	r := newTestRecords(t)

	if err := r.SaveAttachmentSummary(&models.AttachmentSummary{HistoryID: "h/1", Summary: "First."}); err != nil {
		t.Fatalf("SaveAttachmentSummary failed: %v", err)
	}

	if r.HasAttachmentSummary("h?1") {
		t.Error("h?1 reported as summarized after saving h/1")
	}

	if !r.HasAttachmentSummary("h/1") {
		t.Error("h/1 not found after saving")
	}
}
