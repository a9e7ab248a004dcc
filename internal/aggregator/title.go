package aggregator

import (
	"strings"

	"councilreader/internal/models"

	"github.com/mattn/go-runewidth"
)

// DefaultTitleWidth bounds fallback titles, in display columns.
const DefaultTitleWidth = 200

const shortSentence = 150

// DeriveTitle picks a council file's display title: the lead of the first
// attachment summary that has one, else the cleaned item title.
func DeriveTitle(attachments []models.Attachment, itemTitle string, maxWidth int) string {
	for _, a := range attachments {
		if a.Summary == nil {
			continue
		}

		if lead := SummaryLead(*a.Summary); lead != "" {
			return lead
		}
	}

	return FallbackTitle(itemTitle, maxWidth)
}

// SummaryLead returns one or two sentences from the first "## " section of a
// markdown summary, or "" when the summary has no such section.
func SummaryLead(summary string) string {
	var paragraph []string

	inSection := false

	for _, raw := range strings.Split(strings.TrimSpace(summary), "\n") {
		line := strings.TrimSpace(raw)

		switch {
		case line == "":
			if inSection && len(paragraph) > 0 {
				return leadSentences(strings.Join(paragraph, " "))
			}
		case strings.HasPrefix(line, "# "):
		case strings.HasPrefix(line, "## "):
			if inSection && len(paragraph) > 0 {
				return leadSentences(strings.Join(paragraph, " "))
			}

			inSection = true
		case inSection:
			paragraph = append(paragraph, strings.TrimPrefix(line, "- "))
		}
	}

	if len(paragraph) == 0 {
		return ""
	}

	return leadSentences(strings.Join(paragraph, " "))
}

func leadSentences(text string) string {
	sentences := strings.Split(text, ". ")

	result := sentences[0]
	if len(result) < shortSentence && len(sentences) > 1 {
		result += ". " + sentences[1]
	}

	if !strings.HasSuffix(result, ".") {
		result += "."
	}

	return result
}

// FallbackTitle shortens a bureaucratic item title: text before the first
// "; " clause, else the whole title cut to maxWidth display columns.
func FallbackTitle(title string, maxWidth int) string {
	title = strings.Join(strings.Fields(title), " ")
	if title == "" {
		return ""
	}

	if maxWidth <= 0 {
		maxWidth = DefaultTitleWidth
	}

	if head, _, found := strings.Cut(title, "; "); found {
		return head + "."
	}

	if runewidth.StringWidth(title) > maxWidth {
		return runewidth.Truncate(title, maxWidth, "") + "..."
	}

	return title
}
