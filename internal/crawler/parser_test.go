package crawler

import (
	"errors"
	"testing"

	"councilreader/internal/models"
)

const meetingListJSON = `[
  {"id": 17432, "title": "City Council Meeting", "committeeId": 1, "dateTime": "2025-10-21T10:00:00",
   "videoUrl": "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
   "documentList": [{"id": 9, "templateId": 147181, "templateName": "HTML Agenda"}]},
  {"id": 17433, "title": "Budget and Finance Committee", "committeeId": 19, "dateTime": "2025-10-20T14:00:00",
   "videoUrl": "", "documentList": []}
]`

func TestParser_ParseMeetingList(t *testing.T) {
	p := NewParser(nil)

	meetings, err := p.ParseMeetingList([]byte(meetingListJSON))
	if err != nil {
		t.Fatalf("ParseMeetingList failed: %v", err)
	}

	if len(meetings) != 2 {
		t.Fatalf("Expected 2 meetings, got %d", len(meetings))
	}

	if meetings[0].AgendaTemplateID() != 147181 {
		t.Errorf("AgendaTemplateID = %d, want 147181", meetings[0].AgendaTemplateID())
	}

	if p.VideoID(meetings[0]) != "dQw4w9WgXcQ" {
		t.Errorf("VideoID = %q", p.VideoID(meetings[0]))
	}
}

func TestParser_ParseMeetingList_Invalid(t *testing.T) {
	p := NewParser(nil)

	tests := []struct {
		name string
		data string
	}{
		{"not json", "<html>maintenance</html>"},
		{"object instead of list", `{"id": 1}`},
		{"missing id", `[{"title": "City Council Meeting"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := p.ParseMeetingList([]byte(tt.data)); !errors.Is(err, ErrInvalidMeetingList) {
				t.Errorf("expected ErrInvalidMeetingList, got %v", err)
			}
		})
	}
}

func TestCommitteeName(t *testing.T) {
	tests := []struct {
		id       int
		fallback string
		want     string
	}{
		{1, "", "City Council Meeting"},
		{104, "ignored", "Housing and Homelessness Committee"},
		{999, "Special Task Force", "Special Task Force"},
		{999, "  ", "Committee 999"},
	}

	for _, tt := range tests {
		if got := CommitteeName(tt.id, tt.fallback); got != tt.want {
			t.Errorf("CommitteeName(%d, %q) = %q, want %q", tt.id, tt.fallback, got, tt.want)
		}
	}
}

func TestParser_SelectTargets(t *testing.T) {
	p := NewParser(nil)

	meetings := []models.PortalMeeting{
		{ID: 1, Title: "City Council Meeting", VideoURL: "https://youtu.be/dQw4w9WgXcQ"},
		{ID: 2, Title: "City Council Meeting"},
		{ID: 3, Title: "Special", CommitteeName: "Budget and Finance Committee", VideoURL: "https://youtu.be/aaaaaaaaaaa"},
		{ID: 4, Title: "Public Works Committee", VideoURL: "https://youtu.be/bbbbbbbbbbb"},
	}

	tests := []struct {
		name         string
		targets      []string
		requireVideo bool
		want         []int
	}{
		{"title match with video", []string{"city council meeting"}, true, []int{1}},
		{"title match without video", []string{"City Council Meeting"}, false, []int{1, 2}},
		{"committee name match", []string{"Budget and Finance Committee"}, true, []int{3}},
		{"no targets", nil, true, []int{1, 3, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.SelectTargets(meetings, tt.targets, tt.requireVideo)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d meetings, want %d", len(got), len(tt.want))
			}

			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("meeting[%d] = %d, want %d", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestMergeMeetings(t *testing.T) {
	upcoming := []models.PortalMeeting{
		{ID: 3, DateTime: "2025-11-04T10:00:00", Title: "upcoming"},
		{ID: 2, DateTime: "2025-10-28T10:00:00"},
	}
	archived := []models.PortalMeeting{
		{ID: 1, DateTime: "2025-10-21T10:00:00"},
		{ID: 3, DateTime: "2025-11-04T10:00:00", Title: "archived"},
	}

	merged := MergeMeetings(0, upcoming, archived)
	if len(merged) != 3 {
		t.Fatalf("Expected 3 unique meetings, got %d", len(merged))
	}

	if merged[0].ID != 3 || merged[1].ID != 2 || merged[2].ID != 1 {
		t.Errorf("unexpected order: %d, %d, %d", merged[0].ID, merged[1].ID, merged[2].ID)
	}

	if merged[0].Title != "archived" {
		t.Errorf("later listing should win, got %q", merged[0].Title)
	}

	if capped := MergeMeetings(2, upcoming, archived); len(capped) != 2 {
		t.Errorf("limit not applied: %d", len(capped))
	}
}

func TestFilterCommittee(t *testing.T) {
	meetings := []models.PortalMeeting{{ID: 1, CommitteeID: 1}, {ID: 2, CommitteeID: 19}}

	if got := FilterCommittee(meetings, 0); len(got) != 2 {
		t.Errorf("committee 0 should keep all, got %d", len(got))
	}

	if got := FilterCommittee(meetings, 19); len(got) != 1 || got[0].ID != 2 {
		t.Errorf("FilterCommittee(19) = %+v", got)
	}
}
