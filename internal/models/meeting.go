// Package models defines the records produced and consumed by the pipeline stages.
package models

import "time"

// Meeting is one parsed agenda.
type Meeting struct {
	ParsedAt        time.Time  `json:"parsed_at"`
	MeetingDateTime *time.Time `json:"meeting_datetime"`
	VideoReference  *string    `json:"video_reference"`
	PortalURL       string     `json:"portal_url"`
	Title           string     `json:"title"`
	SourceHash      string     `json:"source_hash"`
	Sections        []Section  `json:"sections"`
	MeetingID       int        `json:"meeting_id"`
	TemplateID      int        `json:"template_id"`
	CommitteeID     int        `json:"committee_id"`
}

// Section groups agenda items under a heading. Order within a meeting is agenda order.
type Section struct {
	SectionID    string `json:"section_id"`
	Title        string `json:"title"`
	DisplayTitle string `json:"display_title"`
	Items        []Item `json:"items"`
}

// Item is a single agenda entry.
type Item struct {
	CouncilFile    *string      `json:"council_file"`
	District       *string      `json:"district"`
	Title          *string      `json:"title"`
	Recommendation *string      `json:"recommendation"`
	VideoLocation  *string      `json:"video_location"`
	Mig            *string      `json:"mig"`
	ItemID         string       `json:"item_id"`
	ItemNumber     string       `json:"item_number"`
	RawText        string       `json:"raw_text"`
	Attachments    []Attachment `json:"attachments"`
	HasAttachments bool         `json:"has_attachments"`
}

// Attachment is a document linked from an agenda item.
// A nil HistoryID means the link cannot be downloaded or summarized.
type Attachment struct {
	HistoryID   *string `json:"history_id"`
	Summary     *string `json:"summary"`
	DisplayText string  `json:"display_text"`
	URL         string  `json:"url"`
}

// TotalItems counts items across all sections.
func (m *Meeting) TotalItems() int {
	total := 0
	for _, s := range m.Sections {
		total += len(s.Items)
	}

	return total
}

// TotalSections returns the number of sections, empty ones included.
func (m *Meeting) TotalSections() int {
	return len(m.Sections)
}

// HasVideo reports whether a video reference was found.
func (m *Meeting) HasVideo() bool {
	return m.VideoReference != nil && *m.VideoReference != ""
}

// Key returns the attachment's identity for deduplication.
func (a Attachment) Key() string {
	if a.HistoryID != nil {
		return "h:" + *a.HistoryID
	}

	return "t:" + a.DisplayText + "|" + a.URL
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}
