package models

// AttachmentSummary is the stored AI summary of one attachment, keyed by history id.
type AttachmentSummary struct {
	HistoryID        string          `json:"history_id"`
	CouncilFile      string          `json:"council_file"`
	OriginalFilename string          `json:"original_filename"`
	Category         string          `json:"category"`
	Summary          string          `json:"summary"`
	Processing       ProcessingStats `json:"processing"`
	MeetingID        int             `json:"meeting_id"`
}

// ProcessingStats records what a summary cost to produce.
type ProcessingStats struct {
	Model        string  `json:"model"`
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
	PagesSent    int     `json:"pages_sent"`
	TextFallback bool    `json:"text_fallback"`
}

// VideoSummary is the stored summary of a meeting recording.
type VideoSummary struct {
	VideoURL         string `json:"video_url"`
	Summary          string `json:"summary"`
	Newsletter       string `json:"newsletter"`
	Model            string `json:"model"`
	MeetingID        int    `json:"meeting_id"`
	TranscriptLength int    `json:"transcript_length"`
}
