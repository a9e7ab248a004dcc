package models

import (
	"strings"
	"time"
)

// PortalMeeting is a meeting as listed by the portal API.
type PortalMeeting struct {
	ID            int              `json:"id"`
	Title         string           `json:"title"`
	CommitteeID   int              `json:"committeeId"`
	CommitteeName string           `json:"committeeName,omitempty"`
	Date          string           `json:"date"`
	DateTime      string           `json:"dateTime"`
	VideoURL      string           `json:"videoUrl"`
	Documents     []PortalDocument `json:"documentList"`
}

// PortalDocument is a published document attached to a portal meeting.
type PortalDocument struct {
	ID           int    `json:"id"`
	TemplateID   int    `json:"templateId"`
	TemplateName string `json:"templateName"`
}

// Agenda template names in order of preference.
const (
	TemplateHTMLAgenda        = "HTML Agenda"
	TemplateHTMLSpecialAgenda = "HTML Special Agenda"
)

// AgendaTemplateID returns the template id of the preferred HTML agenda,
// or 0 when the meeting has none (cancelled or PDF-only meetings).
func (m *PortalMeeting) AgendaTemplateID() int {
	for _, preferred := range []string{TemplateHTMLAgenda, TemplateHTMLSpecialAgenda} {
		for _, doc := range m.Documents {
			if doc.TemplateName == preferred && doc.TemplateID != 0 {
				return doc.TemplateID
			}
		}
	}

	return 0
}

// ParsedDateTime parses the portal's local date-time string in loc.
func (m *PortalMeeting) ParsedDateTime(loc *time.Location) *time.Time {
	raw := strings.TrimSpace(m.DateTime)
	if raw == "" {
		return nil
	}

	if loc == nil {
		loc = time.UTC
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04:05"} {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return &t
		}
	}

	return nil
}
