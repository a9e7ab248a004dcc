// Package parsers turns portal agenda markup into meeting records.
package parsers

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"councilreader/internal/logger"
	"councilreader/internal/models"
	"councilreader/pkg/metadata"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Markup conventions of the portal's agenda pages.
const (
	AttrSectionID      = "data-sectionid"
	AttrItemID         = "data-itemid"
	AttrHasAttachments = "data-hasattachments"
	AttrVideoLocation  = "data-videolocation"
	AttrMig            = "data-mig"
	ClassNumberCell    = "number-cell"
	ClassItemCell      = "item-cell"

	UntitledSection    = "Untitled Section"
	DefaultAttachment  = "Attachment"
	maxFallbackTitle   = 200
	minAttachmentHref  = 5
	historyIDParameter = "historyId"
)

// DefaultBaseURL is the portal the agenda pages come from.
const DefaultBaseURL = "https://lacity.primegov.com"

var sectionTitleTags = []string{"h1", "h2", "h3", "h4", "h5", "strong", "b"}

var titleLikeSelectors = "title, .meeting-title, .meeting-date, .meeting-datetime, h1, h2, h3"

var monthNames = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
}

// AgendaParser converts agenda markup into a models.Meeting.
type AgendaParser struct {
	location        *time.Location
	now             func() time.Time
	log             *logger.Logger
	baseURL         *url.URL
	numericDate     *regexp.Regexp
	longDate        *regexp.Regexp
	videoAssignment *regexp.Regexp
	videoURL        *regexp.Regexp
	historyID       *regexp.Regexp
}

// Option customizes an AgendaParser.
type Option func(*AgendaParser)

// WithLocation sets the zone meeting times are interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(p *AgendaParser) {
		if loc != nil {
			p.location = loc
		}
	}
}

// WithClock sets the source of the parsed_at stamp.
func WithClock(now func() time.Time) Option {
	return func(p *AgendaParser) {
		if now != nil {
			p.now = now
		}
	}
}

// WithLogger sets where skipped items are reported.
func WithLogger(l *logger.Logger) Option {
	return func(p *AgendaParser) {
		if l != nil {
			p.log = l
		}
	}
}

// WithBaseURL sets the portal root used to build and resolve links.
func WithBaseURL(raw string) Option {
	return func(p *AgendaParser) {
		if u, err := url.Parse(strings.TrimRight(raw, "/")); err == nil && u.Host != "" {
			p.baseURL = u
		}
	}
}

// NewParser creates an agenda parser.
func NewParser(opts ...Option) *AgendaParser {
	base, _ := url.Parse(DefaultBaseURL)

	p := &AgendaParser{
		location: time.UTC,
		now:      time.Now,
		log:      logger.Discard(),
		baseURL:  base,
		// 10/21/2025 10:00 AM
		numericDate: regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\s+(\d{1,2}):(\d{2})\s*([AaPp])\.?[Mm]\.?`),
		// October 21, 2025 at 10:00 AM
		longDate:        regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december)\s+(\d{1,2}),?\s+(\d{4})(?:,)?\s+(?:at\s+)?(\d{1,2}):(\d{2})\s*([ap])\.?m\.?`),
		videoAssignment: regexp.MustCompile(`(?i)[\w.$]*(?:video|youtube)[\w.$]*\s*[:=]\s*['"]([A-Za-z0-9_-]{11})['"]`),
		videoURL:        regexp.MustCompile(`(?:youtube\.com/(?:watch\?(?:[^"'\s]*&)?v=|embed/|live/|shorts/)|youtu\.be/)([A-Za-z0-9_-]{11})`),
		historyID:       regexp.MustCompile(`(?i)historyId=([^&#"'\s]+)`),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// PortalURL returns the public agenda page for a template.
func (p *AgendaParser) PortalURL(templateID int) string {
	return p.baseURL.String() + "/Portal/Meeting?meetingTemplateId=" + strconv.Itoa(templateID)
}

// Parse converts one meeting's agenda markup into a Meeting. It never fails:
// unreadable markup yields a meeting with no sections, and malformed items
// are skipped.
func (p *AgendaParser) Parse(markup string, meetingID, templateID int) *models.Meeting {
	meeting := &models.Meeting{
		MeetingID:  meetingID,
		TemplateID: templateID,
		PortalURL:  p.PortalURL(templateID),
		ParsedAt:   p.now().UTC(),
		SourceHash: metadata.CalculateHash(markup),
		Sections:   []models.Section{},
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		p.log.Warn("agenda markup unreadable", "meeting_id", meetingID, "error", err)

		return meeting
	}

	meeting.Title = collapse(doc.Find("title").First().Text())
	meeting.Sections = p.parseSections(doc.Selection, meetingID)
	meeting.MeetingDateTime = p.findDateTime(doc)
	meeting.VideoReference = p.findVideoReference(doc)

	return meeting
}

func (p *AgendaParser) parseSections(root *goquery.Selection, meetingID int) []models.Section {
	sections := []models.Section{}

	root.Find("[" + AttrSectionID + "]").Each(func(_ int, sel *goquery.Selection) {
		sectionID, _ := sel.Attr(AttrSectionID)
		title := sectionTitle(sel)

		section := models.Section{
			SectionID:    sectionID,
			Title:        title,
			DisplayTitle: title,
			Items:        []models.Item{},
		}

		sel.Find("[" + AttrItemID + "]").Each(func(_ int, itemSel *goquery.Selection) {
			// items of a nested section belong to that section only
			if owner := itemSel.Closest("[" + AttrSectionID + "]"); !owner.IsSelection(sel) {
				return
			}

			item, ok := p.parseItem(itemSel)
			if !ok {
				itemID, _ := itemSel.Attr(AttrItemID)
				p.log.Warn("skipping malformed agenda item",
					"meeting_id", meetingID, "section_id", sectionID, "item_id", itemID)

				return
			}

			section.Items = append(section.Items, item)
		})

		sections = append(sections, section)
	})

	return sections
}

func sectionTitle(sel *goquery.Selection) string {
	for _, tag := range sectionTitleTags {
		if header := sel.Find(tag).First(); header.Length() > 0 {
			if text := collapse(header.Text()); text != "" {
				return text
			}
		}
	}

	lines := textLines(sel)
	if len(lines) > 0 && len(lines[0]) < maxFallbackTitle {
		return lines[0]
	}

	return UntitledSection
}

func (p *AgendaParser) parseItem(sel *goquery.Selection) (models.Item, bool) {
	cell := sel.Find("." + ClassItemCell).First()
	if cell.Length() == 0 {
		return models.Item{}, false
	}

	itemID, _ := sel.Attr(AttrItemID)
	hasAttachments, _ := sel.Attr(AttrHasAttachments)

	rawText := strings.Join(textLines(cell), "\n")
	fields := ExtractFields(rawText)

	item := models.Item{
		ItemID:         itemID,
		ItemNumber:     collapse(sel.Find("." + ClassNumberCell).First().Text()),
		HasAttachments: strings.EqualFold(strings.TrimSpace(hasAttachments), "true"),
		RawText:        rawText,
		CouncilFile:    fields.CouncilFile,
		District:       fields.District,
		Title:          fields.Title,
		Recommendation: fields.Recommendation,
		VideoLocation:  attrPtr(sel, AttrVideoLocation),
		Mig:            attrPtr(sel, AttrMig),
		Attachments:    p.parseAttachments(cell),
	}

	return item, true
}

func (p *AgendaParser) parseAttachments(cell *goquery.Selection) []models.Attachment {
	attachments := []models.Attachment{}

	cell.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
		href := strings.TrimSpace(link.AttrOr("href", ""))
		if len(href) < minAttachmentHref {
			return
		}

		text := collapse(link.Text())
		if text == "" {
			text = DefaultAttachment
		}

		attachments = append(attachments, models.Attachment{
			HistoryID:   models.StringPtr(p.extractHistoryID(href)),
			DisplayText: text,
			URL:         p.resolve(href),
		})
	})

	return attachments
}

// extractHistoryID reads the historyId query parameter, tolerating odd casing
// and hrefs url.Parse rejects.
func (p *AgendaParser) extractHistoryID(href string) string {
	if u, err := url.Parse(href); err == nil {
		query := u.Query()
		if id := strings.TrimSpace(query.Get(historyIDParameter)); id != "" {
			return id
		}

		for key, values := range query {
			if strings.EqualFold(key, historyIDParameter) && len(values) > 0 {
				return strings.TrimSpace(values[0])
			}
		}

		return ""
	}

	if match := p.historyID.FindStringSubmatch(href); match != nil {
		if decoded, err := url.QueryUnescape(match[1]); err == nil {
			return decoded
		}

		return match[1]
	}

	return ""
}

func (p *AgendaParser) resolve(href string) string {
	u, err := url.Parse(href)
	if err != nil || u.IsAbs() {
		return href
	}

	return p.baseURL.ResolveReference(u).String()
}

// findDateTime scans title-like nodes of the page, then of any embedded
// frame documents, and returns the first well-formed date-time.
func (p *AgendaParser) findDateTime(doc *goquery.Document) *time.Time {
	candidates := titleTexts(doc.Selection)

	doc.Find("iframe[srcdoc]").Each(func(_ int, frame *goquery.Selection) {
		inner, err := goquery.NewDocumentFromReader(strings.NewReader(frame.AttrOr("srcdoc", "")))
		if err != nil {
			return
		}

		candidates = append(candidates, titleTexts(inner.Selection)...)
	})

	for _, text := range candidates {
		if t := p.ParseDateTime(text); t != nil {
			return t
		}
	}

	return nil
}

func titleTexts(root *goquery.Selection) []string {
	var texts []string

	root.Find(titleLikeSelectors).Each(func(_ int, sel *goquery.Selection) {
		if text := collapse(sel.Text()); text != "" {
			texts = append(texts, text)
		}
	})

	return texts
}

// ParseDateTime returns the first valid date-time written in text, or nil.
func (p *AgendaParser) ParseDateTime(text string) *time.Time {
	for _, m := range p.numericDate.FindAllStringSubmatch(text, -1) {
		month, _ := strconv.Atoi(m[1])
		if t := p.buildTime(m[3], time.Month(month), m[2], m[4], m[5], m[6]); t != nil {
			return t
		}
	}

	for _, m := range p.longDate.FindAllStringSubmatch(text, -1) {
		if t := p.buildTime(m[3], monthNames[strings.ToLower(m[1])], m[2], m[4], m[5], m[6]); t != nil {
			return t
		}
	}

	return nil
}

func (p *AgendaParser) buildTime(yearStr string, month time.Month, dayStr, hourStr, minuteStr, meridiem string) *time.Time {
	year, _ := strconv.Atoi(yearStr)
	day, _ := strconv.Atoi(dayStr)
	hour, _ := strconv.Atoi(hourStr)
	minute, _ := strconv.Atoi(minuteStr)

	if month < time.January || month > time.December || hour < 1 || hour > 12 || minute > 59 {
		return nil
	}

	if strings.EqualFold(meridiem, "p") && hour != 12 {
		hour += 12
	} else if strings.EqualFold(meridiem, "a") && hour == 12 {
		hour = 0
	}

	t := time.Date(year, month, day, hour, minute, 0, 0, p.location)
	if t.Day() != day || t.Month() != month {
		return nil
	}

	return &t
}

func (p *AgendaParser) findVideoReference(doc *goquery.Document) *string {
	var found string

	doc.Find("script").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		found = p.VideoIDFromText(sel.Text())

		return found == ""
	})

	return models.StringPtr(found)
}

// VideoIDFromText returns the first 11-character video token assigned to a
// video-named variable or embedded in a video URL.
func (p *AgendaParser) VideoIDFromText(text string) string {
	if m := p.videoAssignment.FindStringSubmatch(text); m != nil {
		return m[1]
	}

	if m := p.videoURL.FindStringSubmatch(text); m != nil {
		return m[1]
	}

	return ""
}

// VideoIDFromURL extracts the video token from a watch or embed URL.
func (p *AgendaParser) VideoIDFromURL(raw string) string {
	if m := p.videoURL.FindStringSubmatch(raw); m != nil {
		return m[1]
	}

	return ""
}

func attrPtr(sel *goquery.Selection, name string) *string {
	v, ok := sel.Attr(name)
	if !ok {
		return nil
	}

	return models.StringPtr(strings.TrimSpace(v))
}

// textLines returns the trimmed, non-empty text nodes under sel in document order.
func textLines(sel *goquery.Selection) []string {
	var lines []string

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if text := collapse(n.Data); text != "" {
				lines = append(lines, text)
			}
		}

		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	for _, n := range sel.Nodes {
		walk(n)
	}

	return lines
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
