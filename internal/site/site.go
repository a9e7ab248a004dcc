// Package site renders the static website from stored meetings, summaries
// and council files.
package site

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"councilreader/internal/config"
	"councilreader/internal/filter"
	"councilreader/internal/logger"
	"councilreader/internal/models"
	"councilreader/internal/store"
	"councilreader/pkg/metadata"
)

// Generator is the name written into page stamps.
const Generator = "councilreader"

const (
	dateLayout     = "Monday, January 2, 2006"
	dateTimeLayout = "Monday, January 2, 2006 at 3:04 PM"
	shortLayout    = "Jan 2, 2006"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page holds the fields the shared layout reads.
type Page struct {
	Site        config.SiteConfig
	PageTitle   string
	Description string
	Path        string
}

type attachmentView struct {
	Text    string
	URL     string
	Summary string
}

type itemView struct {
	Number         string
	Title          string
	CouncilFile    string
	District       string
	Recommendation string
	Attachments    []attachmentView
}

type sectionView struct {
	Title string
	Items []itemView
}

type meetingView struct {
	Page
	Meeting  models.Meeting
	Video    *models.VideoSummary
	Date     string
	Sections []sectionView
}

type timelineEntry struct {
	Date           string
	MeetingURL     string
	Section        string
	ItemNumber     string
	Recommendation string
}

type councilFileView struct {
	Page
	File         models.CouncilFile
	District     string
	FirstSeen    string
	LastSeen     string
	Timeline     []timelineEntry
	Summarized   []attachmentView
	Unsummarized []attachmentView
}

type meetingLink struct {
	URL      string
	Title    string
	Date     string
	Items    int
	HasVideo bool
	sortKey  time.Time
}

type meetingsIndexView struct {
	Page
	Meetings []meetingLink
}

type councilFilesIndexView struct {
	Page
	Index models.Index
}

// Result counts the pages of one generation run.
type Result struct {
	Meetings     int
	CouncilFiles int
	Written      int
	Unchanged    int
}

// Renderer writes the site into an output directory.
type Renderer struct {
	records *store.Records
	outDir  string
	site    config.SiteConfig
	filter  *filter.Filter
	loc     *time.Location
	log     *logger.Logger
	tmpl    *template.Template
	now     func() time.Time
}

// NewRenderer creates a renderer reading from records and writing to
// cfg.Output.SitePath.
func NewRenderer(records *store.Records, cfg *config.Config, log *logger.Logger) (*Renderer, error) {
	if log == nil {
		log = logger.Discard()
	}

	r := &Renderer{
		records: records,
		outDir:  cfg.Output.SitePath,
		site:    cfg.Site,
		filter:  filter.New(cfg.Filter.ExtraDeny...),
		loc:     cfg.Location(),
		log:     log,
		now:     time.Now,
	}

	tmpl, err := template.New("site").Funcs(template.FuncMap{
		"markdown":       RenderMarkdown,
		"councilFileURL": CouncilFileURL,
		"deref":          models.Deref,
		"date":           r.shortDate,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	r.tmpl = tmpl

	return r, nil
}

// MeetingURL is the site path of a meeting page.
func MeetingURL(meetingID int) string {
	return "/meetings/" + strconv.Itoa(meetingID) + ".html"
}

// CouncilFileURL is the site path of a council file page.
func CouncilFileURL(councilFile string) string {
	return "/councilfiles/" + store.SafeName(councilFile) + ".html"
}

// Generate renders every page. Pages whose content did not change are left
// untouched on disk.
func (r *Renderer) Generate(ctx context.Context) (*Result, error) {
	if err := os.MkdirAll(r.outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create site directory: %w", err)
	}

	meetings, err := r.records.LoadMeetings()
	if err != nil {
		r.log.Warn("⚠️  Some meetings could not be loaded", "error", err)
	}

	summaries, err := r.records.LoadSummaryTexts()
	if err != nil {
		r.log.Warn("⚠️  Some summaries could not be loaded", "error", err)
	}

	res := &Result{}

	links := make([]meetingLink, 0, len(meetings))

	for _, m := range meetings {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		var video *models.VideoSummary
		if r.records.HasVideoSummary(m.MeetingID) {
			if video, err = r.records.LoadVideoSummary(m.MeetingID); err != nil {
				r.log.Warn("⚠️  Skipping unreadable video summary", "meeting_id", m.MeetingID, "error", err)
			}
		}

		var buf bytes.Buffer
		if err := r.RenderMeeting(&buf, m, video, summaries); err != nil {
			return res, err
		}

		if err := r.writePage(MeetingURL(m.MeetingID), buf.String(), res); err != nil {
			return res, err
		}

		res.Meetings++

		link := meetingLink{
			URL:      MeetingURL(m.MeetingID),
			Title:    m.Title,
			Date:     r.longDate(m.MeetingDateTime, dateLayout),
			Items:    m.TotalItems(),
			HasVideo: video != nil,
		}
		if m.MeetingDateTime != nil {
			link.sortKey = *m.MeetingDateTime
		}

		links = append(links, link)
	}

	sort.SliceStable(links, func(i, j int) bool { return links[i].sortKey.After(links[j].sortKey) })

	if err := r.renderPage("meetings_index.html", "/index.html", meetingsIndexView{
		Page:     r.page("Meetings", "Plain-language summaries of Los Angeles City Council meetings.", "/"),
		Meetings: links,
	}, res); err != nil {
		return res, err
	}

	idx, err := r.records.LoadIndex()
	if errors.Is(err, store.ErrNotFound) {
		r.log.Info("ℹ️  No council file index yet, skipping council file pages")

		return res, nil
	} else if err != nil {
		return res, err
	}

	for _, entry := range idx.Files {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		cf, err := r.records.LoadCouncilFile(entry.CouncilFile)
		if err != nil {
			r.log.Warn("⚠️  Skipping unreadable council file", "council_file", entry.CouncilFile, "error", err)

			continue
		}

		var buf bytes.Buffer
		if err := r.RenderCouncilFile(&buf, *cf); err != nil {
			return res, err
		}

		if err := r.writePage(CouncilFileURL(cf.CouncilFile), buf.String(), res); err != nil {
			return res, err
		}

		res.CouncilFiles++
	}

	if err := r.renderPage("councilfiles_index.html", "/councilfiles/index.html", councilFilesIndexView{
		Page:  r.page("Council files", "Every council file seen on recent agendas.", "/councilfiles/"),
		Index: *idx,
	}, res); err != nil {
		return res, err
	}

	r.log.Info("🌐 Site generated", "meetings", res.Meetings, "council_files", res.CouncilFiles,
		"written", res.Written, "unchanged", res.Unchanged)

	return res, nil
}

// RenderMeeting writes the page of one meeting. Sections without items are
// dropped and attachments are filtered through the deny-list.
func (r *Renderer) RenderMeeting(w io.Writer, m models.Meeting, video *models.VideoSummary, summaries map[string]string) error {
	view := meetingView{
		Page:    r.page(m.Title, "", MeetingURL(m.MeetingID)),
		Meeting: m,
		Video:   video,
		Date:    r.longDate(m.MeetingDateTime, dateTimeLayout),
	}

	if video != nil && video.Newsletter != "" {
		view.Description = video.Newsletter
	}

	for _, section := range m.Sections {
		if len(section.Items) == 0 {
			continue
		}

		sv := sectionView{Title: section.DisplayTitle}
		if sv.Title == "" {
			sv.Title = section.Title
		}

		for _, item := range section.Items {
			iv := itemView{
				Number:         item.ItemNumber,
				Title:          models.Deref(item.Title),
				CouncilFile:    models.Deref(item.CouncilFile),
				District:       models.Deref(item.District),
				Recommendation: models.Deref(item.Recommendation),
				Attachments:    r.attachments(item.Attachments, summaries),
			}

			if iv.Title == "" {
				iv.Title = item.RawText
			}

			sv.Items = append(sv.Items, iv)
		}

		view.Sections = append(view.Sections, sv)
	}

	return r.execute(w, "meeting.html", view)
}

// RenderCouncilFile writes the page of one council file.
func (r *Renderer) RenderCouncilFile(w io.Writer, cf models.CouncilFile) error {
	view := councilFileView{
		Page:      r.page(cf.Title, cf.OfficialTitle, CouncilFileURL(cf.CouncilFile)),
		File:      cf,
		District:  models.Deref(cf.District),
		FirstSeen: r.longDate(cf.FirstSeen, shortLayout),
		LastSeen:  r.longDate(cf.LastSeen, shortLayout),
	}

	for _, a := range cf.Appearances {
		view.Timeline = append(view.Timeline, timelineEntry{
			Date:           r.longDate(a.MeetingDateTime, shortLayout),
			MeetingURL:     MeetingURL(a.MeetingID),
			Section:        a.SectionTitle,
			ItemNumber:     a.Item.ItemNumber,
			Recommendation: models.Deref(a.Item.Recommendation),
		})
	}

	for _, att := range cf.Attachments {
		if !r.filter.ShouldInclude(att.DisplayText) {
			continue
		}

		av := attachmentView{Text: att.DisplayText, URL: att.URL, Summary: models.Deref(att.Summary)}
		if av.Summary != "" {
			view.Summarized = append(view.Summarized, av)
		} else {
			view.Unsummarized = append(view.Unsummarized, av)
		}
	}

	return r.execute(w, "councilfile.html", view)
}

func (r *Renderer) attachments(list []models.Attachment, summaries map[string]string) []attachmentView {
	var out []attachmentView

	for _, att := range list {
		if !r.filter.ShouldInclude(att.DisplayText) {
			continue
		}

		av := attachmentView{Text: att.DisplayText, URL: att.URL}
		if att.HistoryID != nil {
			av.Summary = summaries[*att.HistoryID]
		}

		out = append(out, av)
	}

	return out
}

func (r *Renderer) page(title, description, path string) Page {
	return Page{
		Site:        r.site,
		PageTitle:   title,
		Description: PlainText(description),
		Path:        path,
	}
}

func (r *Renderer) longDate(t *time.Time, layout string) string {
	if t == nil {
		return "Date to be announced"
	}

	return t.In(r.loc).Format(layout)
}

func (r *Renderer) shortDate(t *time.Time) string {
	if t == nil {
		return "-"
	}

	return t.In(r.loc).Format(shortLayout)
}

func (r *Renderer) execute(w io.Writer, name string, view any) error {
	if err := r.tmpl.ExecuteTemplate(w, name, view); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}

	return nil
}

func (r *Renderer) renderPage(name, path string, view any, res *Result) error {
	var buf bytes.Buffer
	if err := r.execute(&buf, name, view); err != nil {
		return err
	}

	return r.writePage(path, buf.String(), res)
}

// writePage stamps and writes content at the site path unless the page on
// disk already has the same body.
func (r *Renderer) writePage(path, content string, res *Result) error {
	target := filepath.Join(r.outDir, filepath.FromSlash(path))

	if existing, err := os.ReadFile(target); err == nil && metadata.Unchanged(string(existing), content) {
		res.Unchanged++

		return nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create page directory: %w", err)
	}

	if err := store.WriteFileAtomic(target, []byte(metadata.Sign(content, Generator, r.now()))); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	res.Written++

	return nil
}
