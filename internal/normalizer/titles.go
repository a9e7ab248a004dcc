package normalizer

import (
	"context"
	"regexp"
	"strings"

	"councilreader/internal/models"
)

// maxClearTitle is the longest section title still considered readable.
const maxClearTitle = 80

var sectionTitleImprovements = map[string]string{
	"Items Noticed for Public Hearing":               "Scheduled hearings",
	"Items for which Public Hearings Have Been Held": "Completed hearings",
	"Items for which Public Hearings Have Not Been Held - (10 Votes Required for Consideration)": "No hearings held (requires 10 votes)",
	"Closed Session": "Closed sessions",
	"Commendatory Resolutions, Introductions and Presentations":           "Commendations and presentations",
	"Public Testimony of Non-agenda Items Within Jurisdiction of Council": "Public comments",
	"Multiple Agenda Item Comment": "General public comments",
	"MULTIPLE AGENDA ITEM COMMENT": "General public comments",
	"GENERAL PUBLIC COMMENT":       "Public comments",
}

var bureaucraticTitle = []*regexp.Regexp{
	regexp.MustCompile(`^\(.*\)$`),
	regexp.MustCompile(`(?i)Committee\s+Report`),
	regexp.MustCompile(`(?i)Fiscal Year \d{4}-\d{2}`),
}

// IsTitleUnclear reports whether a section title needs rewriting for readers.
func IsTitleUnclear(title string) bool {
	title = text.NormalizeWhitespace(title)
	if title == "" {
		return false
	}

	if _, ok := sectionTitleImprovements[title]; ok {
		return false
	}

	if strings.HasPrefix(title, "(Referred to") || len(title) > maxClearTitle {
		return true
	}

	for _, re := range bureaucraticTitle {
		if re.MatchString(title) {
			return true
		}
	}

	return false
}

// TitleImprover rewrites an unclear section title given the titles of its items.
type TitleImprover interface {
	ImproveTitle(ctx context.Context, title string, itemTitles []string) (string, error)
}

// contextItems bounds how many item titles are handed to an improver.
const contextItems = 5

// ImproveTitles rewrites the display title of every unclear section in place
// and returns how many changed. A failing improver leaves the title as is.
func (p *Processor) ImproveTitles(ctx context.Context, m *models.Meeting, improver TitleImprover) int {
	changed := 0

	for i := range m.Sections {
		section := &m.Sections[i]
		if section.DisplayTitle != section.Title || !IsTitleUnclear(section.Title) {
			continue
		}

		var itemTitles []string

		for _, item := range section.Items {
			if len(itemTitles) == contextItems {
				break
			}

			title := models.Deref(item.Title)
			if title == "" {
				title = item.RawText
			}

			if len(title) > 200 {
				title = title[:200]
			}

			if title != "" {
				itemTitles = append(itemTitles, title)
			}
		}

		improved, err := improver.ImproveTitle(ctx, section.Title, itemTitles)
		if err != nil {
			p.log.Warn("section title not improved", "meeting_id", m.MeetingID, "section_id", section.SectionID, "error", err)

			continue
		}

		if improved = text.NormalizeWhitespace(improved); improved != "" && improved != section.Title {
			section.DisplayTitle = improved
			changed++
		}
	}

	return changed
}
