package normalizer

import (
	"errors"
	"testing"

	"councilreader/internal/models"
)

func strPtr(s string) *string {
	return &s
}

func TestNewValidator(t *testing.T) {
	v := NewValidator()
	if v == nil {
		t.Fatal("NewValidator returned nil")
	}
}

func TestValidator_Validate(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name    string
		meeting *models.Meeting
		wantErr error
	}{
		{"valid", &models.Meeting{MeetingID: 1, TemplateID: 2}, nil},
		{"nil meeting", nil, ErrNilMeeting},
		{"missing meeting id", &models.Meeting{TemplateID: 2}, ErrMissingMeetingID},
		{"missing template id", &models.Meeting{MeetingID: 1}, ErrMissingTemplateID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.meeting)
			if tt.wantErr == nil && err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}

			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidator_Inspect(t *testing.T) {
	m := &models.Meeting{
		MeetingID:  1,
		TemplateID: 2,
		Sections: []models.Section{
			{SectionID: "s1", Items: []models.Item{
				{ItemID: "i1", CouncilFile: strPtr("25-1294-X"), HasAttachments: true},
				{ItemID: "", Attachments: []models.Attachment{{URL: "https://example.com/a"}}},
			}},
			{SectionID: "s1"},
		},
	}

	issues := NewValidator().Inspect(m)

	for _, want := range []error{ErrInvalidCouncilFile, ErrAttachmentsMissing, ErrItemMissingID, ErrAttachmentNoText, ErrDuplicateSectionID} {
		found := false

		for _, issue := range issues {
			if errors.Is(issue, want) {
				found = true
			}
		}

		if !found {
			t.Errorf("expected issue %v, got %v", want, issues)
		}
	}
}
