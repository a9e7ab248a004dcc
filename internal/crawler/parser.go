// Package crawler fetches meeting lists, agendas and attachments from the portal.
package crawler

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"councilreader/internal/crawler/parsers"
	"councilreader/internal/models"
)

// Parser errors.
var (
	ErrInvalidMeetingList = errors.New("invalid meeting list")
)

// CommitteeNames maps portal committee ids to their names.
var CommitteeNames = map[int]string{
	1:   "City Council Meeting",
	4:   "Public Safety Committee",
	6:   "Los Angeles City Health Commission",
	12:  "Planning and Land Use Management Committee",
	15:  "Rules, Elections and Intergovernmental Relations Committee",
	17:  "Transportation Committee",
	18:  "Trade, Travel and Tourism Committee",
	19:  "Budget and Finance Committee",
	32:  "Economic Development and Jobs Committee",
	36:  "Public Works Committee",
	49:  "Energy and Environment Committee",
	101: "Civil Rights, Equity, Immigration, Aging, and Disability Committee",
	103: "Government Operations Committee",
	104: "Housing and Homelessness Committee",
	108: "Arts, Parks, Libraries, and Community Enrichment Committee",
	109: "Government Efficiency, Innovation, and Audits Committee",
	110: "Personnel and Hiring Committee",
	112: "Ad Hoc Committee for LA Recovery",
}

// CommitteeName returns the name of a committee, then fallback, then "Committee <id>".
func CommitteeName(id int, fallback string) string {
	if name, ok := CommitteeNames[id]; ok {
		return name
	}

	if fallback = strings.TrimSpace(fallback); fallback != "" {
		return fallback
	}

	return "Committee " + strconv.Itoa(id)
}

// Parser reads the portal's meeting list responses.
type Parser struct {
	agenda *parsers.AgendaParser
}

// NewParser creates a meeting list parser. agenda supplies video URL parsing.
func NewParser(agenda *parsers.AgendaParser) *Parser {
	if agenda == nil {
		agenda = parsers.NewParser()
	}

	return &Parser{agenda: agenda}
}

// ParseMeetingList decodes a meeting list response.
func (p *Parser) ParseMeetingList(data []byte) ([]models.PortalMeeting, error) {
	var meetings []models.PortalMeeting
	if err := json.Unmarshal(data, &meetings); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMeetingList, err)
	}

	for i := range meetings {
		if meetings[i].ID == 0 {
			return nil, fmt.Errorf("%w: entry %d has no id", ErrInvalidMeetingList, i)
		}
	}

	return meetings, nil
}

// VideoID returns the 11-character video token of a listed meeting, or "".
func (p *Parser) VideoID(m models.PortalMeeting) string {
	return p.agenda.VideoIDFromURL(m.VideoURL)
}

// SelectTargets keeps meetings whose title or committee name matches one of
// targets (case-insensitive), and that expose a video when requireVideo is set.
// An empty targets list matches every meeting.
func (p *Parser) SelectTargets(meetings []models.PortalMeeting, targets []string, requireVideo bool) []models.PortalMeeting {
	selected := make([]models.PortalMeeting, 0, len(meetings))

	for _, m := range meetings {
		if !matchesTarget(m, targets) {
			continue
		}

		if requireVideo && p.VideoID(m) == "" {
			continue
		}

		selected = append(selected, m)
	}

	return selected
}

func matchesTarget(m models.PortalMeeting, targets []string) bool {
	if len(targets) == 0 {
		return true
	}

	for _, target := range targets {
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}

		if strings.EqualFold(strings.TrimSpace(m.Title), target) || strings.EqualFold(m.CommitteeName, target) {
			return true
		}
	}

	return false
}

// FilterCommittee keeps the meetings of one committee. An id of 0 keeps all.
func FilterCommittee(meetings []models.PortalMeeting, committeeID int) []models.PortalMeeting {
	if committeeID == 0 {
		return meetings
	}

	kept := make([]models.PortalMeeting, 0, len(meetings))

	for _, m := range meetings {
		if m.CommitteeID == committeeID {
			kept = append(kept, m)
		}
	}

	return kept
}

// MergeMeetings joins meeting lists, keeping the last listing of each id,
// sorted by date-time descending and capped at limit (0 means no cap).
func MergeMeetings(limit int, lists ...[]models.PortalMeeting) []models.PortalMeeting {
	byID := map[int]int{}

	var merged []models.PortalMeeting

	for _, list := range lists {
		for _, m := range list {
			if idx, ok := byID[m.ID]; ok {
				merged[idx] = m

				continue
			}

			byID[m.ID] = len(merged)
			merged = append(merged, m)
		}
	}

	// Portal date-times are ISO local times, so string order is time order
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].DateTime > merged[j].DateTime
	})

	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}

	return merged
}
