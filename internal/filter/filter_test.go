package filter

import (
	"errors"
	"testing"
)

func TestShouldInclude(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Speaker Card", false},
		{"speaker card - John Doe", false},
		{"Proof of Publication", false},
		{"PROOF OF MAILING", false},
		{"Certificate of Posting", false},
		{"Mailing List", false},
		{"Returned Envelope", false},
		{"www.lacouncilfile.com", false},
		{"NOE", false},
		{"Notice of Exemption", false},
		{"Attachment", false},
		{"attachment 3", false},
		{"Motion (Smith) dated 1-1-25", true},
		{"Report from City Administrative Officer", true},
		{"Attachment A - Site Plan", true},
		{"Noel Street plans", true},
	}

	for _, tt := range tests {
		if got := ShouldInclude(tt.text); got != tt.want {
			t.Errorf("ShouldInclude(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestFilter_ExtraPatterns(t *testing.T) {
	f := New("Public Comment", "  ")

	if f.ShouldInclude("Public Comment from resident") {
		t.Error("expected configured pattern to be denied")
	}

	if !f.ShouldInclude("Motion (Smith) dated 1-1-25") {
		t.Error("expected motion to be included")
	}
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		text     string
		category Category
		priority Priority
	}{
		{"Staff Report dated 10-1-25", CategoryStaffReport, PriorityHigh},
		{"Report from Chief Legislative Analyst", CategoryStaffReport, PriorityHigh},
		{"Appeal - Proof of Mailing", CategoryAppeal, PriorityHigh},
		{"Findings", CategoryFindings, PriorityHigh},
		{"Conditions of Approval", CategoryConditions, PriorityHigh},
		{"Speaker Card", CategorySpeakerCard, PrioritySkip},
		{"NOE", CategoryNoticeExemption, PrioritySkip},
		{"Motion (Smith) dated 1-1-25", CategoryOther, PriorityOther},
	}

	for _, tt := range tests {
		category, priority := Categorize(tt.text)
		if category != tt.category || priority != tt.priority {
			t.Errorf("Categorize(%q) = %s/%d, want %s/%d", tt.text, category, priority, tt.category, tt.priority)
		}
	}
}

func sampleCandidates() []Candidate {
	return []Candidate{
		{HistoryID: "h1", DisplayText: "Report from CAO"},
		{HistoryID: "h2", DisplayText: "Motion (Smith)"},
		{HistoryID: "h3", DisplayText: "Speaker Card"},
		{HistoryID: "h4", DisplayText: "Letter from resident"},
		{HistoryID: "h5", DisplayText: "Resolution"},
		{HistoryID: "h6", DisplayText: "Appeal"},
	}
}

func TestStage(t *testing.T) {
	f := New()

	high, err := f.Stage(sampleCandidates(), StageHighValue, 0, 42)
	if err != nil {
		t.Fatalf("Stage 1 failed: %v", err)
	}

	if len(high) != 2 || high[0].HistoryID != "h1" || high[1].HistoryID != "h6" {
		t.Errorf("stage 1 = %+v", high)
	}

	rest, err := f.Stage(sampleCandidates(), StageRemaining, 0, 42)
	if err != nil {
		t.Fatalf("Stage 3 failed: %v", err)
	}

	if len(rest) != 3 {
		t.Errorf("stage 3 expected 3 documents, got %d", len(rest))
	}

	for _, c := range rest {
		if c.Category != CategoryOther {
			t.Errorf("stage 3 candidate %s has category %s", c.HistoryID, c.Category)
		}
	}
}

func TestStage_SampleIsDeterministic(t *testing.T) {
	f := New()

	first, err := f.Stage(sampleCandidates(), StageSample, 2, 42)
	if err != nil {
		t.Fatalf("Stage 2 failed: %v", err)
	}

	reversed := sampleCandidates()
	for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
		reversed[i], reversed[j] = reversed[j], reversed[i]
	}

	second, err := f.Stage(reversed, StageSample, 2, 42)
	if err != nil {
		t.Fatalf("Stage 2 failed: %v", err)
	}

	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("expected 2 sampled documents, got %d and %d", len(first), len(second))
	}

	for i := range first {
		if first[i].HistoryID != second[i].HistoryID {
			t.Errorf("sample differs at %d: %s vs %s", i, first[i].HistoryID, second[i].HistoryID)
		}
	}

	all, _ := f.Stage(sampleCandidates(), StageSample, 10, 42)
	if len(all) != 3 {
		t.Errorf("oversized sample should return all 3 other documents, got %d", len(all))
	}
}

func TestStage_Invalid(t *testing.T) {
	_, err := New().Stage(sampleCandidates(), 4, 0, 0)
	if !errors.Is(err, ErrInvalidStage) {
		t.Errorf("expected ErrInvalidStage, got %v", err)
	}
}
