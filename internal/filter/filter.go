// Package filter decides which agenda attachments are worth showing and summarizing.
package filter

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
)

// Category is the kind of document an attachment label suggests.
type Category string

// Document categories.
const (
	CategoryStaffReport     Category = "staff_report"
	CategoryAppeal          Category = "appeal"
	CategoryFindings        Category = "findings"
	CategoryConditions      Category = "conditions"
	CategoryOther           Category = "other"
	CategoryProcedural      Category = "skip_procedural"
	CategorySpeakerCard     Category = "skip_speaker_cards"
	CategoryURLLink         Category = "skip_url_link"
	CategoryNoticeExemption Category = "skip_noe"
	CategoryPlaceholder     Category = "skip_placeholder"
)

// Priority orders attachments for summarization.
type Priority int

// Priorities. Skip is never summarized.
const (
	PrioritySkip  Priority = 0
	PriorityHigh  Priority = 1
	PriorityOther Priority = 2
)

// Stages of attachment processing.
const (
	StageHighValue = 1
	StageSample    = 2
	StageRemaining = 3
)

// ErrInvalidStage is returned for a stage outside 1..3.
var ErrInvalidStage = errors.New("stage must be 1, 2 or 3")

type rule struct {
	pattern  string
	category Category
	exact    bool
}

var highValue = []rule{
	{pattern: "staff report", category: CategoryStaffReport},
	{pattern: "report from", category: CategoryStaffReport},
	{pattern: "committee report", category: CategoryStaffReport},
	{pattern: "appeal", category: CategoryAppeal},
	{pattern: "findings", category: CategoryFindings},
	{pattern: "conditions of approval", category: CategoryConditions},
	{pattern: "conditions", category: CategoryConditions},
}

var denyList = []rule{
	{pattern: "proof of publication", category: CategoryProcedural},
	{pattern: "proof of mailing", category: CategoryProcedural},
	{pattern: "certificate of posting", category: CategoryProcedural},
	{pattern: "mailing list", category: CategoryProcedural},
	{pattern: "returned envelope", category: CategoryProcedural},
	{pattern: "speaker card", category: CategorySpeakerCard},
	{pattern: "www.lacouncilfile.com", category: CategoryURLLink},
	{pattern: "noe", category: CategoryNoticeExemption, exact: true},
	{pattern: "notice of exemption", category: CategoryNoticeExemption},
	{pattern: "attachment", category: CategoryPlaceholder, exact: true},
}

// Filter holds the deny-list plus any configured extra patterns.
type Filter struct {
	extra []string
}

// New returns a filter. extra adds case-insensitive substring patterns to the deny-list.
func New(extra ...string) *Filter {
	f := &Filter{}

	for _, p := range extra {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			f.extra = append(f.extra, p)
		}
	}

	return f
}

var defaultFilter = New()

// ShouldInclude reports whether an attachment with this label should be shown.
func ShouldInclude(displayText string) bool {
	return defaultFilter.ShouldInclude(displayText)
}

// Categorize classifies an attachment label.
func Categorize(displayText string) (Category, Priority) {
	return defaultFilter.Categorize(displayText)
}

// ShouldInclude reports whether the label escapes the deny-list.
func (f *Filter) ShouldInclude(displayText string) bool {
	_, denied := f.denied(normalize(displayText))

	return !denied
}

// Categorize classifies a label. High-value patterns win over the deny-list,
// so "Appeal - Proof of Mailing" is still an appeal.
func (f *Filter) Categorize(displayText string) (Category, Priority) {
	text := normalize(displayText)

	for _, r := range highValue {
		if strings.Contains(text, r.pattern) {
			return r.category, PriorityHigh
		}
	}

	if category, denied := f.denied(text); denied {
		return category, PrioritySkip
	}

	return CategoryOther, PriorityOther
}

func (f *Filter) denied(text string) (Category, bool) {
	for _, r := range denyList {
		if r.exact {
			if text == r.pattern || (r.category == CategoryPlaceholder && isNumberedPlaceholder(text)) {
				return r.category, true
			}

			continue
		}

		if strings.Contains(text, r.pattern) {
			return r.category, true
		}
	}

	for _, p := range f.extra {
		if strings.Contains(text, p) {
			return CategoryProcedural, true
		}
	}

	return "", false
}

// isNumberedPlaceholder matches generic labels such as "Attachment 2".
func isNumberedPlaceholder(text string) bool {
	rest, ok := strings.CutPrefix(text, "attachment")
	if !ok {
		return false
	}

	rest = strings.TrimSpace(rest)
	if rest == "" {
		return true
	}

	for _, r := range rest {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Candidate is an attachment considered for summarization.
type Candidate struct {
	HistoryID   string
	DisplayText string
	CouncilFile string
	Category    Category
	MeetingID   int
	Priority    Priority
}

// Stage picks the candidates to process in the given stage:
// 1 takes high-value documents, 2 a seeded sample of sampleSize other
// documents, 3 every other document. Input order is preserved in stages 1 and 3;
// stage 2 is deterministic for a given seed.
func (f *Filter) Stage(candidates []Candidate, stage, sampleSize int, seed int64) ([]Candidate, error) {
	var high, other []Candidate

	for _, c := range candidates {
		c.Category, c.Priority = f.Categorize(c.DisplayText)

		switch c.Priority {
		case PriorityHigh:
			high = append(high, c)
		case PriorityOther:
			other = append(other, c)
		case PrioritySkip:
		}
	}

	switch stage {
	case StageHighValue:
		return high, nil
	case StageRemaining:
		return other, nil
	case StageSample:
		if sampleSize >= len(other) {
			return other, nil
		}

		// sort first so the sample does not depend on input order
		sorted := append([]Candidate(nil), other...)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].HistoryID < sorted[j].HistoryID })

		rng := rand.New(rand.NewSource(seed))
		picked := rng.Perm(len(sorted))[:sampleSize]
		sort.Ints(picked)

		sample := make([]Candidate, 0, sampleSize)
		for _, idx := range picked {
			sample = append(sample, sorted[idx])
		}

		return sample, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidStage, stage)
	}
}
