package parsers

import "testing"

func TestExtractCouncilFile(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"glued district", "25-1294CD 14 SALE OF PROPERTY AT 123 MAIN STREET", "25-1294"},
		{"suffix variant", "25-1209-S1\nCD 5\nMOTION (PARK - RAMAN)", "25-1209-S1"},
		{"leading whitespace", "  24-0001 ANNUAL REPORT", "24-0001"},
		{"no identifier", "Public comment on items not on the agenda", ""},
		{"embedded in longer number", "Ref 125-12345 archive", ""},
		{"part of a date", "Report dated 10-15-2025", ""},
		{"non S suffix is dropped", "25-0160-A2 APPEAL", "25-0160"},
		{"suffix runs into letters", "25-1294-S12x CD3 SALE OF PROPERTY", ""},
		{"runs into a word", "25-1294Public hearing", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractCouncilFile(tt.text); got != tt.want {
				t.Errorf("ExtractCouncilFile(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestExtractDistrict(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"25-1294CD 14 SALE OF PROPERTY", "CD 14"},
		{"CD14 MOTION", "CD 14"},
		{"located in CD 1.", "CD 1"},
		{"ABCD 5 is not a district", ""},
		{"no district here", ""},
	}

	for _, tt := range tests {
		if got := ExtractDistrict(tt.text); got != tt.want {
			t.Errorf("ExtractDistrict(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "skips bare identifier lines",
			text: "25-1294\nCD 14\nSALE OF PROPERTY AT 123 MAIN STREET",
			want: "SALE OF PROPERTY AT 123 MAIN STREET",
		},
		{
			name: "strips glued identifier",
			text: "25-1294CD 14 SALE OF PROPERTY AT 123 MAIN STREET",
			want: "SALE OF PROPERTY AT 123 MAIN STREET",
		},
		{
			name: "skips council action label",
			text: "Recommendation for Council action, pursuant to Motion:\nCONSIDERATION OF MOTION (LEE - PARK)",
			want: "CONSIDERATION OF MOTION (LEE - PARK)",
		},
		{
			name: "falls back to first short line",
			text: "25-1294\nBrief",
			want: "Brief",
		},
		{
			name: "keeps identifier that runs into more digits",
			text: "25-12945 bad",
			want: "25-12945 bad",
		},
		{
			name: "keeps identifier that runs into letters",
			text: "25-1294-S12x CD3 SALE OF PROPERTY",
			want: "25-1294-S12x CD3 SALE OF PROPERTY",
		},
		{
			name: "strips suffix variant and glued district",
			text: "25-1209-S1CD5 MOTION (PARK - RAMAN) RELATIVE TO PARKING",
			want: "MOTION (PARK - RAMAN) RELATIVE TO PARKING",
		},
		{
			name: "empty text",
			text: "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractTitle(tt.text); got != tt.want {
				t.Errorf("ExtractTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractRecommendation(t *testing.T) {
	text := "SALE OF PROPERTY AT 123 MAIN STREET\nRecommendation for Council action:\nADOPT   the report\nof the CAO.\n\nFiscal Impact Statement: None"

	got := ExtractRecommendation(text)
	if got != "ADOPT the report of the CAO." {
		t.Errorf("ExtractRecommendation() = %q", got)
	}

	if got := ExtractRecommendation("no recommendation in this text"); got != "" {
		t.Errorf("expected empty recommendation, got %q", got)
	}
}

func TestExtractFields_MissingBecomeNil(t *testing.T) {
	f := ExtractFields("Public comment")

	if f.CouncilFile != nil || f.District != nil || f.Recommendation != nil {
		t.Errorf("expected nil fields, got %+v", f)
	}

	if f.Title == nil || *f.Title != "Public comment" {
		t.Errorf("Title = %v, want Public comment", f.Title)
	}
}

func TestIsCouncilFile(t *testing.T) {
	for _, s := range []string{"25-1294", "25-1209-S1", "24-0001-S12"} {
		if !IsCouncilFile(s) {
			t.Errorf("IsCouncilFile(%q) = false", s)
		}
	}

	for _, s := range []string{"25-129", "2025-1294", "25-1294-A", "25-1294 "} {
		if IsCouncilFile(s) {
			t.Errorf("IsCouncilFile(%q) = true", s)
		}
	}
}
