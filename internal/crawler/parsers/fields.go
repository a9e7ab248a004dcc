package parsers

import (
	"regexp"
	"strings"
	"unicode"

	"councilreader/internal/models"
)

// MinTitleLength is the length a line must exceed to be taken as an item title.
const MinTitleLength = 15

const councilActionLabel = "Recommendation for Council action"

var (
	councilFilePattern     = regexp.MustCompile(`(\d{2}-\d{4})(-S\d+)?`)
	councilFileLinePattern = regexp.MustCompile(`^\d{2}-\d{4}(?:-S\d+)?$`)
	districtPattern        = regexp.MustCompile(`CD\s?(\d+)`)
	districtLinePattern    = regexp.MustCompile(`^CD\s?\d+$`)
	leadingFilePattern     = regexp.MustCompile(`^\d{2}-\d{4}(?:-S\d+)?`)
	leadingDistrictPattern = regexp.MustCompile(`^CD\s?\d+`)
	recommendationPattern  = regexp.MustCompile(`(?is)recommendations?[^:\n]*:(.*?)(?:\n[ \t]*\n|\z)`)
)

// Fields holds the structured parts of an agenda item's free text.
// A field the grammar cannot find is nil.
type Fields struct {
	CouncilFile    *string
	District       *string
	Title          *string
	Recommendation *string
}

// ExtractFields splits item text into council file, district, title and recommendation.
//
// Grammar, applied to the text as a whole:
//
//	council_file   = \d{2}-\d{4} [ -S\d+ ]   not touching other digits or letters,
//	                 except a directly following "CD" district
//	district       = "CD" [ " " ] \d+         normalized to "CD <n>"
//	title          = first line longer than MinTitleLength that is not a bare
//	                 council file, a bare district or the council-action label,
//	                 with any leading council file and district removed;
//	                 falls back to the first non-empty line
//	recommendation = text after "Recommendation...:" up to a blank line,
//	                 whitespace collapsed
func ExtractFields(text string) Fields {
	return Fields{
		CouncilFile:    models.StringPtr(ExtractCouncilFile(text)),
		District:       models.StringPtr(ExtractDistrict(text)),
		Title:          models.StringPtr(ExtractTitle(text)),
		Recommendation: models.StringPtr(ExtractRecommendation(text)),
	}
}

// ExtractCouncilFile returns the first council file identifier in text, or "".
// The identifier may be glued to a following token, as in "25-1294CD 14".
func ExtractCouncilFile(text string) string {
	for _, loc := range councilFilePattern.FindAllStringSubmatchIndex(text, -1) {
		start, end := loc[0], loc[1]
		if start > 0 {
			prev := rune(text[start-1])
			if unicode.IsDigit(prev) || unicode.IsLetter(prev) || prev == '-' {
				continue
			}
		}

		if !endsCouncilFile(text, end) {
			continue
		}

		return text[start:end]
	}

	return ""
}

// endsCouncilFile reports whether an identifier match ending at end stands
// alone. A glued district ("25-1294CD 14") is allowed.
func endsCouncilFile(text string, end int) bool {
	if end >= len(text) {
		return true
	}

	next := rune(text[end])

	switch {
	case unicode.IsDigit(next):
		return false
	case unicode.IsLetter(next):
		return strings.HasPrefix(text[end:], "CD")
	default:
		return true
	}
}

// IsCouncilFile reports whether s is exactly a council file identifier.
func IsCouncilFile(s string) bool {
	return councilFileLinePattern.MatchString(s)
}

// ExtractDistrict returns the first council district token as "CD <n>", or "".
func ExtractDistrict(text string) string {
	for _, loc := range districtPattern.FindAllStringSubmatchIndex(text, -1) {
		if loc[0] > 0 && unicode.IsLetter(rune(text[loc[0]-1])) {
			continue
		}

		if loc[1] < len(text) && unicode.IsLetter(rune(text[loc[1]])) {
			continue
		}

		return "CD " + text[loc[2]:loc[3]]
	}

	return ""
}

// ExtractTitle returns the item's headline.
func ExtractTitle(text string) string {
	var first string

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if councilFileLinePattern.MatchString(line) || districtLinePattern.MatchString(line) {
			continue
		}

		if strings.Contains(line, councilActionLabel) {
			continue
		}

		line = stripLeadingIDs(line)
		if line == "" {
			continue
		}

		if first == "" {
			first = line
		}

		if len(line) > MinTitleLength {
			return line
		}
	}

	return first
}

// stripLeadingIDs removes a leading council file and district from a title
// line. Either is kept when it runs into further digits or letters.
func stripLeadingIDs(line string) string {
	if loc := leadingFilePattern.FindStringIndex(line); loc != nil && endsCouncilFile(line, loc[1]) {
		line = strings.TrimSpace(line[loc[1]:])
	}

	if loc := leadingDistrictPattern.FindStringIndex(line); loc != nil {
		end := loc[1]
		if end >= len(line) || !(unicode.IsDigit(rune(line[end])) || unicode.IsLetter(rune(line[end]))) {
			line = strings.TrimSpace(line[end:])
		}
	}

	return line
}

// ExtractRecommendation returns the collapsed recommendation text, or "".
func ExtractRecommendation(text string) string {
	match := recommendationPattern.FindStringSubmatch(text)
	if match == nil {
		return ""
	}

	return strings.Join(strings.Fields(match[1]), " ")
}
