// Package aggregator merges parsed meetings into per-council-file histories.
package aggregator

import (
	"sort"
	"time"

	"councilreader/internal/crawler/parsers"
	"councilreader/internal/models"
)

// Options tunes an aggregation run.
type Options struct {
	Now           func() time.Time
	KeyPolicy     KeyPolicy
	TitleMaxWidth int
}

// Result is the output of one aggregation run.
type Result struct {
	Files []models.CouncilFile
	Index models.Index
}

type appearance struct {
	record      models.Appearance
	district    *string
	attachments []models.Attachment
}

type group struct {
	key         string
	appearances []appearance
}

// Aggregate groups every item carrying a council file across meetings and
// builds one CouncilFile per group plus the master index. summaries maps
// history ids to summary text. It is pure: the same meetings and summaries
// always produce the same files, whatever order the meetings arrive in.
func Aggregate(meetings []models.Meeting, summaries map[string]string, opts Options) Result {
	if opts.KeyPolicy == "" {
		opts.KeyPolicy = KeyExact
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	ordered := make([]models.Meeting, len(meetings))
	copy(ordered, meetings)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].MeetingID < ordered[j].MeetingID })

	groups := map[string]*group{}

	var keys []string

	for _, meeting := range ordered {
		for _, section := range meeting.Sections {
			sectionTitle := section.DisplayTitle
			if sectionTitle == "" {
				sectionTitle = section.Title
			}

			for _, item := range section.Items {
				if item.CouncilFile == nil || !parsers.IsCouncilFile(*item.CouncilFile) {
					continue
				}

				key := opts.KeyPolicy.Key(*item.CouncilFile)

				g, ok := groups[key]
				if !ok {
					g = &group{key: key}
					groups[key] = g
					keys = append(keys, key)
				}

				g.appearances = append(g.appearances, appearance{
					record: models.Appearance{
						MeetingID:       meeting.MeetingID,
						MeetingDateTime: meeting.MeetingDateTime,
						SectionTitle:    sectionTitle,
						Item: models.ItemSnapshot{
							CouncilFile:    *item.CouncilFile,
							ItemID:         item.ItemID,
							ItemNumber:     item.ItemNumber,
							Title:          item.Title,
							Recommendation: item.Recommendation,
						},
					},
					district:    item.District,
					attachments: item.Attachments,
				})
			}
		}
	}

	sort.Strings(keys)

	files := make([]models.CouncilFile, 0, len(keys))
	for _, key := range keys {
		files = append(files, buildFile(groups[key], summaries, opts))
	}

	return Result{
		Files: files,
		Index: BuildIndex(files, opts.Now()),
	}
}

func buildFile(g *group, summaries map[string]string, opts Options) models.CouncilFile {
	sortAppearances(g.appearances)

	cf := models.CouncilFile{
		CouncilFile: g.key,
		Appearances: make([]models.Appearance, 0, len(g.appearances)),
		Attachments: []models.Attachment{},
	}

	seen := map[string]bool{}

	var latestTitle string

	for _, a := range g.appearances {
		cf.Appearances = append(cf.Appearances, a.record)

		if cf.District == nil && a.district != nil {
			cf.District = a.district
		}

		if latestTitle == "" && a.record.Item.Title != nil {
			latestTitle = *a.record.Item.Title
		}

		if t := a.record.MeetingDateTime; t != nil {
			if cf.FirstSeen == nil || t.Before(*cf.FirstSeen) {
				cf.FirstSeen = t
			}

			if cf.LastSeen == nil || t.After(*cf.LastSeen) {
				cf.LastSeen = t
			}
		}

		for _, att := range a.attachments {
			key := att.Key()
			if seen[key] {
				continue
			}

			seen[key] = true
			att.Summary = lookupSummary(att.HistoryID, summaries)
			cf.Attachments = append(cf.Attachments, att)
		}
	}

	cf.OfficialTitle = latestTitle
	cf.Title = DeriveTitle(cf.Attachments, latestTitle, opts.TitleMaxWidth)

	if cf.Title == "" {
		cf.Title = "Council File " + g.key
	}

	cf.Stats = models.FileStats{
		TotalAppearances: len(cf.Appearances),
		TotalAttachments: len(cf.Attachments),
	}

	for _, att := range cf.Attachments {
		if att.Summary != nil {
			cf.Stats.AttachmentsWithSummaries++
		}
	}

	return cf
}

// sortAppearances orders most recent first with undated appearances last.
// Ties keep their input order.
func sortAppearances(list []appearance) {
	sort.SliceStable(list, func(i, j int) bool {
		return newerFirst(list[i].record.MeetingDateTime, list[j].record.MeetingDateTime)
	})
}

// newerFirst reports whether a sorts before b in a most-recent-first order
// where nil sorts last.
func newerFirst(a, b *time.Time) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return a.After(*b)
	}
}

func lookupSummary(historyID *string, summaries map[string]string) *string {
	if historyID == nil {
		return nil
	}

	text, ok := summaries[*historyID]
	if !ok || text == "" {
		return nil
	}

	return &text
}

// BuildIndex lists every file, most recently seen first.
func BuildIndex(files []models.CouncilFile, generatedAt time.Time) models.Index {
	entries := make([]models.IndexEntry, 0, len(files))

	for _, f := range files {
		entries = append(entries, models.IndexEntry{
			CouncilFile:     f.CouncilFile,
			Title:           f.Title,
			District:        f.District,
			AppearanceCount: f.Stats.TotalAppearances,
			AttachmentCount: f.Stats.TotalAttachments,
			SummaryCount:    f.Stats.AttachmentsWithSummaries,
			FirstSeen:       f.FirstSeen,
			LastSeen:        f.LastSeen,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].LastSeen, entries[j].LastSeen
		if (a == nil) != (b == nil) || (a != nil && !a.Equal(*b)) {
			return newerFirst(a, b)
		}

		return entries[i].CouncilFile < entries[j].CouncilFile
	})

	return models.Index{
		GeneratedAt: generatedAt.UTC(),
		TotalFiles:  len(entries),
		Files:       entries,
	}
}
