package models

import "time"

// CouncilFile is the history of one piece of legislation across meetings.
// It is rebuilt from scratch on every aggregation run.
type CouncilFile struct {
	FirstSeen     *time.Time   `json:"first_seen"`
	LastSeen      *time.Time   `json:"last_seen"`
	District      *string      `json:"district"`
	CouncilFile   string       `json:"council_file"`
	Title         string       `json:"title"`
	OfficialTitle string       `json:"official_title"`
	Appearances   []Appearance `json:"appearances"`
	Attachments   []Attachment `json:"attachments"`
	Stats         FileStats    `json:"stats"`
}

// Appearance is one occurrence of a council file on a meeting agenda.
type Appearance struct {
	MeetingDateTime *time.Time   `json:"meeting_datetime"`
	SectionTitle    string       `json:"section_title"`
	Item            ItemSnapshot `json:"item_snapshot"`
	MeetingID       int          `json:"meeting_id"`
}

// ItemSnapshot copies the item fields shown on a timeline.
type ItemSnapshot struct {
	Title          *string `json:"title"`
	Recommendation *string `json:"recommendation"`
	CouncilFile    string  `json:"council_file"`
	ItemID         string  `json:"item_id"`
	ItemNumber     string  `json:"item_number"`
}

// FileStats holds per-file counters.
type FileStats struct {
	TotalAppearances         int `json:"total_appearances"`
	TotalAttachments         int `json:"total_attachments"`
	AttachmentsWithSummaries int `json:"attachments_with_summaries"`
}

// Index enumerates every council file from one aggregation run.
type Index struct {
	GeneratedAt time.Time    `json:"generated_at"`
	Files       []IndexEntry `json:"files"`
	TotalFiles  int          `json:"total_files"`
}

// IndexEntry summarizes one council file.
type IndexEntry struct {
	FirstSeen       *time.Time `json:"first_seen"`
	LastSeen        *time.Time `json:"last_seen"`
	District        *string    `json:"district"`
	CouncilFile     string     `json:"council_file"`
	Title           string     `json:"title"`
	AppearanceCount int        `json:"appearance_count"`
	AttachmentCount int        `json:"attachment_count"`
	SummaryCount    int        `json:"summary_count"`
}
