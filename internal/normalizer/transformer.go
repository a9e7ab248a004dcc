package normalizer

import (
	"councilreader/internal/crawler/parsers"
	"councilreader/internal/models"
	"councilreader/pkg/utils"
)

// Transformer repairs and normalizes a validated meeting.
type Transformer struct {
	titles map[string]string
}

var text = utils.NewStringHelper()

// NewTransformer creates a new transformer instance.
func NewTransformer() *Transformer {
	return &Transformer{
		titles: sectionTitleImprovements,
	}
}

// Transform returns a normalized copy of m. Display titles are filled and
// whitespace collapsed. Invalid council files and attachment flags with no
// attachments behind them are cleared, and nil slices become empty ones.
func (t *Transformer) Transform(m *models.Meeting) *models.Meeting {
	out := *m
	out.Title = text.NormalizeWhitespace(m.Title)
	out.Sections = make([]models.Section, 0, len(m.Sections))

	for _, section := range m.Sections {
		s := section
		s.Title = text.NormalizeWhitespace(section.Title)
		s.DisplayTitle = t.DisplayTitle(s.Title)
		s.Items = make([]models.Item, 0, len(section.Items))

		for _, item := range section.Items {
			s.Items = append(s.Items, t.transformItem(item))
		}

		out.Sections = append(out.Sections, s)
	}

	return &out
}

func (t *Transformer) transformItem(item models.Item) models.Item {
	if item.CouncilFile != nil && !parsers.IsCouncilFile(*item.CouncilFile) {
		item.CouncilFile = nil
	}

	attachments := make([]models.Attachment, 0, len(item.Attachments))

	for _, a := range item.Attachments {
		a.DisplayText = text.NormalizeWhitespace(a.DisplayText)
		if a.DisplayText == "" {
			a.DisplayText = parsers.DefaultAttachment
		}

		attachments = append(attachments, a)
	}

	item.Attachments = attachments
	if len(attachments) == 0 {
		item.HasAttachments = false
	}

	return item
}

// DisplayTitle maps a raw section title to its reader-facing form.
func (t *Transformer) DisplayTitle(title string) string {
	title = text.NormalizeWhitespace(title)
	if improved, ok := t.titles[title]; ok {
		return improved
	}

	return title
}
