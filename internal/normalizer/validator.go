package normalizer

import (
	"errors"
	"fmt"

	"councilreader/internal/crawler/parsers"
	"councilreader/internal/models"
)

// Validation errors.
var (
	ErrNilMeeting        = errors.New("meeting is nil")
	ErrMissingMeetingID  = errors.New("missing meeting ID")
	ErrMissingTemplateID = errors.New("missing template ID")
)

// Issue kinds found by Inspect. None of them reject a meeting; the
// transformer repairs them.
var (
	ErrInvalidCouncilFile = errors.New("council file does not match identifier grammar")
	ErrAttachmentsMissing = errors.New("item flagged with attachments has none")
	ErrAttachmentNoText   = errors.New("attachment has no display text")
	ErrDuplicateSectionID = errors.New("duplicate section ID")
	ErrItemMissingID      = errors.New("item missing item ID")
)

// Validator checks parsed meetings at the parse boundary.
type Validator struct{}

// NewValidator creates a new validator instance.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate rejects meetings that cannot be stored.
func (v *Validator) Validate(m *models.Meeting) error {
	if m == nil {
		return ErrNilMeeting
	}

	if m.MeetingID <= 0 {
		return ErrMissingMeetingID
	}

	if m.TemplateID <= 0 {
		return fmt.Errorf("%w for meeting %d", ErrMissingTemplateID, m.MeetingID)
	}

	return nil
}

// Inspect lists the recoverable problems in a meeting.
func (v *Validator) Inspect(m *models.Meeting) []error {
	var issues []error

	sectionIDs := map[string]bool{}

	for si, section := range m.Sections {
		if section.SectionID != "" && sectionIDs[section.SectionID] {
			issues = append(issues, fmt.Errorf("%w: %s", ErrDuplicateSectionID, section.SectionID))
		}

		sectionIDs[section.SectionID] = true

		for ii, item := range section.Items {
			if item.ItemID == "" {
				issues = append(issues, fmt.Errorf("%w at section %d index %d", ErrItemMissingID, si, ii))
			}

			if item.CouncilFile != nil && !parsers.IsCouncilFile(*item.CouncilFile) {
				issues = append(issues, fmt.Errorf("%w: %q (item %s)", ErrInvalidCouncilFile, *item.CouncilFile, item.ItemID))
			}

			if item.HasAttachments && len(item.Attachments) == 0 {
				issues = append(issues, fmt.Errorf("%w: item %s", ErrAttachmentsMissing, item.ItemID))
			}

			for ai, a := range item.Attachments {
				if a.DisplayText == "" {
					issues = append(issues, fmt.Errorf("%w: item %s index %d", ErrAttachmentNoText, item.ItemID, ai))
				}
			}
		}
	}

	return issues
}
