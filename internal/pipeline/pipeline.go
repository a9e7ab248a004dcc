// Package pipeline runs the fetch, summarize, aggregate and generate stages
// over the shared record store.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"councilreader/internal/aggregator"
	"councilreader/internal/config"
	"councilreader/internal/crawler"
	"councilreader/internal/crawler/parsers"
	"councilreader/internal/filter"
	"councilreader/internal/formatter"
	"councilreader/internal/logger"
	"councilreader/internal/models"
	"councilreader/internal/normalizer"
	"councilreader/internal/site"
	"councilreader/internal/store"
	"councilreader/internal/summarizer"
)

// ErrNoProvider is returned by summary stages when no model is configured.
var ErrNoProvider = errors.New("no summarization provider configured (set " + config.APIKeyEnv + ")")

// Summary job selectors.
const (
	JobAttachments = "attachments"
	JobVideos      = "videos"
	JobAll         = "all"
)

// Portal is the part of the meeting portal the pipeline uses.
type Portal interface {
	RecentMeetings(ctx context.Context, limit, committeeID int) ([]models.PortalMeeting, error)
	FetchAgenda(ctx context.Context, templateID int) (string, error)
	DownloadAttachment(ctx context.Context, historyID string) (*crawler.Document, error)
}

// Pipeline holds the collaborators of one run.
type Pipeline struct {
	cfg         *config.Config
	log         *logger.Logger
	runID       string
	records     *store.Records
	ledger      *store.Ledger
	portal      Portal
	provider    summarizer.Provider
	transcriber summarizer.Transcriber
	agenda      *parsers.AgendaParser
	listing     *crawler.Parser
	processor   *normalizer.Processor
	now         func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRunID sets the run id instead of generating one.
func WithRunID(id string) Option {
	return func(p *Pipeline) { p.runID = id }
}

// WithPortal replaces the HTTP portal client.
func WithPortal(portal Portal) Option {
	return func(p *Pipeline) { p.portal = portal }
}

// WithProvider sets the summarization provider.
func WithProvider(provider summarizer.Provider) Option {
	return func(p *Pipeline) { p.provider = provider }
}

// WithTranscriber replaces the yt-dlp transcriber.
func WithTranscriber(t summarizer.Transcriber) Option {
	return func(p *Pipeline) { p.transcriber = t }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New opens the record store and ledger and wires the default collaborators.
// Without an explicit provider, the Anthropic API is used when its key is set.
func New(cfg *config.Config, log *logger.Logger, opts ...Option) (*Pipeline, error) {
	if log == nil {
		log = logger.Discard()
	}

	p := &Pipeline{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}

	if p.runID == "" {
		p.runID = uuid.NewString()
	}

	p.log = log.With("run_id", p.runID)

	p.records = store.NewRecords(cfg.Output.BasePath, cfg.Output.PrettyPrint)
	if err := p.records.Init(); err != nil {
		return nil, err
	}

	ledger, err := store.OpenLedger(cfg.GetLedgerPath())
	if err != nil {
		return nil, err
	}

	p.ledger = ledger

	if p.portal == nil {
		p.portal = crawler.NewPortalClient(cfg, p.log)
	}

	if p.provider == nil {
		if key, err := config.APIKey(); err == nil {
			p.provider = summarizer.NewAnthropicProvider(key)
		}
	}

	if p.transcriber == nil {
		p.transcriber = summarizer.NewYTDLP()
	}

	p.agenda = parsers.NewParser(
		parsers.WithBaseURL(cfg.Portal.BaseURL),
		parsers.WithLocation(cfg.Location()),
		parsers.WithClock(p.now),
		parsers.WithLogger(p.log),
	)
	p.listing = crawler.NewParser(p.agenda)
	p.processor = normalizer.NewProcessor(p.log)

	return p, nil
}

// Close releases the ledger.
func (p *Pipeline) Close() error {
	return p.ledger.Close()
}

// RunID identifies this run in logs and the failure ledger.
func (p *Pipeline) RunID() string {
	return p.runID
}

// Records exposes the record store.
func (p *Pipeline) Records() *store.Records {
	return p.records
}

// Fetch lists recent meetings, selects the configured meeting types and
// stores each parsed agenda. Stored meetings are skipped unless forced.
func (p *Pipeline) Fetch(ctx context.Context) (formatter.StageRow, error) {
	row := formatter.StageRow{Stage: "fetch"}

	listed, err := p.portal.RecentMeetings(ctx, p.cfg.Crawler.Limit, p.cfg.Crawler.CommitteeID)
	if err != nil {
		return row, fmt.Errorf("failed to list meetings: %w", err)
	}

	if err := p.records.SaveRecentMeetings(listed); err != nil {
		p.log.Warn("⚠️  Could not save meeting listing", "error", err)
	}

	targets := p.listing.SelectTargets(listed, p.cfg.Crawler.TargetMeetings, p.cfg.Crawler.RequireVideo)
	row.Candidates = len(targets)

	p.log.Info("📋 Meetings selected", "listed", len(listed), "selected", len(targets))

	var titles normalizer.TitleImprover
	if p.provider != nil {
		titles = summarizer.NewTitleWriter(p.provider, p.cfg.Summarizer.Model,
			summarizer.NewRetrier(p.cfg.Summarizer.RateLimit, p.log))
	}

	for _, pm := range targets {
		if err := ctx.Err(); err != nil {
			return row, err
		}

		key := strconv.Itoa(pm.ID)

		if !p.cfg.Crawler.Force && p.records.HasMeeting(pm.ID) {
			row.Skipped++

			continue
		}

		meeting, err := p.fetchMeeting(ctx, pm, titles)
		if err != nil {
			if ctx.Err() != nil {
				return row, ctx.Err()
			}

			row.Failed++
			p.recordFailure(ctx, store.KindAgenda, key, err)

			continue
		}

		if err := p.records.SaveMeeting(meeting); err != nil {
			row.Failed++
			p.recordFailure(ctx, store.KindAgenda, key, err)

			continue
		}

		if err := p.ledger.MarkProcessed(ctx, store.KindAgenda, key); err != nil {
			p.log.Warn("⚠️  Failed to update ledger", "meeting_id", pm.ID, "error", err)
		}

		row.Processed++

		p.log.Info("✅ Agenda stored",
			"meeting_id", pm.ID,
			"title", meeting.Title,
			"sections", meeting.TotalSections(),
			"items", meeting.TotalItems(),
			"video", meeting.HasVideo())
	}

	if client, ok := p.portal.(interface{ Attempts() *crawler.AttemptLog }); ok {
		client.Attempts().LogAttemptSummary(p.log)
	}

	return row, nil
}

func (p *Pipeline) fetchMeeting(ctx context.Context, pm models.PortalMeeting, titles normalizer.TitleImprover) (*models.Meeting, error) {
	templateID := pm.AgendaTemplateID()
	if templateID == 0 {
		return nil, fmt.Errorf("meeting %d has no HTML agenda", pm.ID)
	}

	p.log.Info("⏳ Fetching agenda", "meeting_id", pm.ID, "template_id", templateID, "title", pm.Title)

	markup, err := p.portal.FetchAgenda(ctx, templateID)
	if err != nil {
		return nil, err
	}

	meeting := p.agenda.Parse(markup, pm.ID, templateID)
	meeting.CommitteeID = pm.CommitteeID

	if meeting.Title == "" {
		meeting.Title = pm.Title
	}

	if meeting.MeetingDateTime == nil {
		meeting.MeetingDateTime = pm.ParsedDateTime(p.cfg.Location())
	}

	if !meeting.HasVideo() {
		meeting.VideoReference = models.StringPtr(p.listing.VideoID(pm))
	}

	normalized, err := p.processor.Process(meeting)
	if err != nil {
		return nil, err
	}

	if titles != nil {
		if n := p.processor.ImproveTitles(ctx, normalized, titles); n > 0 {
			p.log.Info("✏️  Section titles improved", "meeting_id", pm.ID, "changed", n)
		}
	}

	return normalized, nil
}

// Summarize runs the attachment and/or video summary jobs over stored meetings.
func (p *Pipeline) Summarize(ctx context.Context, job string) ([]formatter.StageRow, error) {
	switch job {
	case JobAttachments, JobVideos, JobAll:
	default:
		return nil, fmt.Errorf("unknown summary job %q", job)
	}

	if p.provider == nil {
		return nil, ErrNoProvider
	}

	meetings := p.loadMeetings()
	deps := summarizer.Deps{
		Provider: p.provider,
		Records:  p.records,
		Ledger:   p.ledger,
		Log:      p.log,
		RunID:    p.runID,
	}

	var rows []formatter.StageRow

	if job == JobAttachments || job == JobAll {
		report, err := summarizer.NewAttachmentJob(deps, p.portal, filter.New(p.cfg.Filter.ExtraDeny...), p.cfg.Summarizer).
			Run(ctx, meetings)
		if report != nil {
			rows = append(rows, stageRow("summarize attachments", report))
		}

		if err != nil {
			return rows, err
		}
	}

	if job == JobVideos || job == JobAll {
		report, err := summarizer.NewVideoJob(deps, p.transcriber, p.cfg.Summarizer).Run(ctx, meetings)
		if report != nil {
			rows = append(rows, stageRow("summarize videos", report))
		}

		if err != nil {
			return rows, err
		}
	}

	return rows, nil
}

// Aggregate rebuilds every council file from stored meetings and summaries.
func (p *Pipeline) Aggregate(ctx context.Context) (*aggregator.Result, formatter.StageRow, error) {
	row := formatter.StageRow{Stage: "aggregate"}

	if err := ctx.Err(); err != nil {
		return nil, row, err
	}

	policy, err := aggregator.ParseKeyPolicy(p.cfg.Aggregation.KeyPolicy)
	if err != nil {
		return nil, row, err
	}

	meetings := p.loadMeetings()

	summaries, err := p.records.LoadSummaryTexts()
	if err != nil {
		p.log.Warn("⚠️  Some summaries could not be read", "error", err)
	}

	result := aggregator.Aggregate(meetings, summaries, aggregator.Options{
		Now:           p.now,
		KeyPolicy:     policy,
		TitleMaxWidth: p.cfg.Aggregation.TitleMaxWidth,
	})

	if err := p.records.ReplaceCouncilFiles(result.Files, result.Index); err != nil {
		return nil, row, err
	}

	row.Candidates = len(meetings)
	row.Processed = len(result.Files)

	p.log.Info("🗂️  Council files aggregated", "meetings", len(meetings), "council_files", len(result.Files))

	return &result, row, nil
}

// Generate renders the site.
func (p *Pipeline) Generate(ctx context.Context) (formatter.StageRow, error) {
	row := formatter.StageRow{Stage: "generate"}

	renderer, err := site.NewRenderer(p.records, p.cfg, p.log)
	if err != nil {
		return row, err
	}

	res, err := renderer.Generate(ctx)
	if res != nil {
		row.Candidates = res.Written + res.Unchanged
		row.Processed = res.Written
		row.Skipped = res.Unchanged
	}

	return row, err
}

// Report is the outcome of a full run.
type Report struct {
	RunID    string
	Rows     []formatter.StageRow
	Failures []store.Failure
	Duration time.Duration
}

// String renders the run summary and failure tables.
func (r *Report) String() string {
	return formatter.RunSummary(r.RunID, r.Rows) + "\n" + formatter.FailureReport(r.Failures)
}

// Run executes every stage in order. A failing stage is logged and the
// following stages still run on whatever records exist; the first stage
// error is returned with the report.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	start := p.now()
	report := &Report{RunID: p.runID}

	var firstErr error

	fail := func(stage string, err error) {
		p.log.Error("❌ Stage failed", "stage", stage, "error", err)

		if firstErr == nil {
			firstErr = fmt.Errorf("%s: %w", stage, err)
		}
	}

	p.log.Info("🚀 Pipeline run starting")

	row, err := p.Fetch(ctx)
	report.Rows = append(report.Rows, row)

	if err != nil {
		fail("fetch", err)
	}

	if ctx.Err() == nil {
		rows, err := p.Summarize(ctx, JobAll)
		report.Rows = append(report.Rows, rows...)

		switch {
		case errors.Is(err, ErrNoProvider):
			p.log.Warn("⚠️  Skipping summaries", "reason", err)
		case err != nil:
			fail("summarize", err)
		}
	}

	if ctx.Err() == nil {
		_, row, err := p.Aggregate(ctx)
		report.Rows = append(report.Rows, row)

		if err != nil {
			fail("aggregate", err)
		}
	}

	if ctx.Err() == nil {
		row, err := p.Generate(ctx)
		report.Rows = append(report.Rows, row)

		if err != nil {
			fail("generate", err)
		}
	}

	failures, err := p.ledger.Failures(context.WithoutCancel(ctx), p.runID)
	if err != nil {
		p.log.Warn("⚠️  Could not read failures", "error", err)
	}

	report.Failures = failures
	report.Duration = p.now().Sub(start)

	if firstErr == nil && ctx.Err() != nil {
		firstErr = ctx.Err()
	}

	p.log.Info("✨ Pipeline run finished", "duration", report.Duration, "failures", len(failures))

	return report, firstErr
}

// Failures lists the failures recorded by this run.
func (p *Pipeline) Failures(ctx context.Context) ([]store.Failure, error) {
	return p.ledger.Failures(ctx, p.runID)
}

func (p *Pipeline) loadMeetings() []models.Meeting {
	meetings, err := p.records.LoadMeetings()
	if err != nil {
		p.log.Warn("⚠️  Some meetings could not be read", "error", err)
	}

	return meetings
}

func (p *Pipeline) recordFailure(ctx context.Context, kind, key string, cause error) {
	p.log.Error("❌ Failed", "kind", kind, "key", key, "error", cause)

	err := p.ledger.RecordFailure(ctx, store.Failure{
		FailedAt: p.now().UTC(),
		RunID:    p.runID,
		Kind:     kind,
		Key:      key,
		Error:    cause.Error(),
		Attempts: 1,
	})
	if err != nil {
		p.log.Warn("⚠️  Failed to record failure", "kind", kind, "key", key, "error", err)
	}
}

func stageRow(name string, r *summarizer.Report) formatter.StageRow {
	return formatter.StageRow{
		Stage:      name,
		Candidates: r.Candidates,
		Processed:  r.Processed,
		Skipped:    r.Skipped,
		Failed:     r.Failed,
		CostUSD:    r.CostUSD,
	}
}
