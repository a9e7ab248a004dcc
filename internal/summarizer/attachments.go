package summarizer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"councilreader/internal/config"
	"councilreader/internal/crawler"
	"councilreader/internal/filter"
	"councilreader/internal/formatter"
	"councilreader/internal/models"
	"councilreader/internal/store"
)

// AttachmentSource downloads attachment documents by history id.
type AttachmentSource interface {
	DownloadAttachment(ctx context.Context, historyID string) (*crawler.Document, error)
}

// AttachmentJob summarizes agenda attachments stage by stage.
type AttachmentJob struct {
	deps    Deps
	source  AttachmentSource
	filter  *filter.Filter
	cfg     config.SummarizerConfig
	retrier *Retrier
	sleep   func(context.Context, time.Duration) error
}

// NewAttachmentJob creates an attachment job.
func NewAttachmentJob(deps Deps, source AttachmentSource, f *filter.Filter, cfg config.SummarizerConfig) *AttachmentJob {
	if f == nil {
		f = filter.New()
	}

	return &AttachmentJob{
		deps:    deps,
		source:  source,
		filter:  f,
		cfg:     cfg,
		retrier: NewRetrier(cfg.RateLimit, deps.logger()),
		sleep:   sleepContext,
	}
}

// CollectCandidates lists the attachments of council-file items, first
// occurrence per history id, in meeting order.
func CollectCandidates(meetings []models.Meeting) []filter.Candidate {
	seen := map[string]bool{}

	var out []filter.Candidate

	for _, m := range meetings {
		for _, section := range m.Sections {
			for _, item := range section.Items {
				if item.CouncilFile == nil {
					continue
				}

				for _, att := range item.Attachments {
					if att.HistoryID == nil || *att.HistoryID == "" || seen[*att.HistoryID] {
						continue
					}

					seen[*att.HistoryID] = true

					out = append(out, filter.Candidate{
						HistoryID:   *att.HistoryID,
						DisplayText: att.DisplayText,
						CouncilFile: *item.CouncilFile,
						MeetingID:   m.MeetingID,
					})
				}
			}
		}
	}

	return out
}

// Run summarizes the configured stage of attachments across meetings.
func (j *AttachmentJob) Run(ctx context.Context, meetings []models.Meeting) (*Report, error) {
	log := j.deps.logger()

	selected, err := j.filter.Stage(CollectCandidates(meetings), j.cfg.Stage, j.cfg.SampleSize, j.cfg.Seed)
	if err != nil {
		return nil, err
	}

	report := &Report{Kind: store.KindAttachment, Candidates: len(selected)}

	log.Info("📄 Summarizing attachments", "stage", j.cfg.Stage, "candidates", len(selected))

	called := false

	for i, c := range selected {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if j.deps.Records.HasAttachmentSummary(c.HistoryID) || j.deps.processed(ctx, store.KindAttachment, c.HistoryID) {
			report.Skipped++

			continue
		}

		if called {
			if err := j.sleep(ctx, j.cfg.SummaryDelay()); err != nil {
				return report, err
			}
		}

		called = true

		log.Info("🤖 Summarizing attachment",
			"progress", fmt.Sprintf("%d/%d", i+1, len(selected)),
			"history_id", c.HistoryID,
			"council_file", c.CouncilFile,
			"category", c.Category)

		summary, attempts, err := j.Summarize(ctx, c)
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}

			report.Failed++
			j.deps.recordFailure(ctx, store.KindAttachment, c.HistoryID, attempts, err)

			continue
		}

		if err := j.deps.Records.SaveAttachmentSummary(summary); err != nil {
			report.Failed++
			j.deps.recordFailure(ctx, store.KindAttachment, c.HistoryID, attempts, err)

			continue
		}

		j.deps.markProcessed(ctx, store.KindAttachment, c.HistoryID)

		report.Processed++
		report.InputTokens += summary.Processing.InputTokens
		report.OutputTokens += summary.Processing.OutputTokens
		report.CostUSD += summary.Processing.CostUSD

		log.Info("✅ Attachment summarized", "history_id", c.HistoryID, "cost_usd", fmt.Sprintf("%.4f", summary.Processing.CostUSD))
	}

	return report, nil
}

// Summarize downloads one attachment and asks the model for a summary. The
// PDF goes up whole unless it is known to be too long, in which case the
// text of its first pages is sent instead. It returns the attempts made.
func (j *AttachmentJob) Summarize(ctx context.Context, c filter.Candidate) (*models.AttachmentSummary, int, error) {
	doc, err := j.source.DownloadAttachment(ctx, c.HistoryID)
	if err != nil {
		return nil, 1, fmt.Errorf("download failed: %w", err)
	}

	prompt := AttachmentPrompt(c.CouncilFile, c.DisplayText)

	pages, countErr := PageCount(doc.Data)
	oversized := countErr == nil && j.cfg.MaxPDFPages > 0 && pages > j.cfg.MaxPDFPages

	var (
		resp     *Response
		attempts int
		stats    models.ProcessingStats
	)

	if !oversized {
		resp, attempts, err = j.retrier.Do(ctx, func() (*Response, error) {
			return j.deps.Provider.Summarize(ctx, Request{
				Model:     j.cfg.Model,
				MaxTokens: j.cfg.MaxTokens,
				Prompt:    prompt,
				PDF:       doc.Data,
			})
		})
		stats.PagesSent = pages

		if err != nil && !errors.Is(err, ErrTooLarge) {
			return nil, attempts, err
		}
	}

	if oversized || err != nil {
		j.deps.logger().Warn("📚 Document too large, sending extracted text", "history_id", c.HistoryID, "pages", pages)

		text, read, textErr := ExtractText(doc.Data, j.cfg.MaxPDFPages)
		if textErr != nil {
			return nil, max(attempts, 1), fmt.Errorf("text fallback failed: %w", textErr)
		}

		var more int

		resp, more, err = j.retrier.Do(ctx, func() (*Response, error) {
			return j.deps.Provider.Summarize(ctx, Request{
				Model:     j.cfg.Model,
				MaxTokens: j.cfg.MaxTokens,
				Prompt:    prompt,
				Document:  text,
			})
		})
		attempts += more

		if err != nil {
			return nil, attempts, err
		}

		stats.PagesSent = read
		stats.TextFallback = true
	}

	stats.Model = resp.Model
	if stats.Model == "" {
		stats.Model = j.cfg.Model
	}

	stats.InputTokens = resp.InputTokens
	stats.OutputTokens = resp.OutputTokens
	stats.CostUSD = resp.Cost()

	return &models.AttachmentSummary{
		HistoryID:        c.HistoryID,
		CouncilFile:      c.CouncilFile,
		OriginalFilename: c.DisplayText,
		Category:         string(c.Category),
		Summary:          formatter.FormatTables(resp.Text),
		Processing:       stats,
		MeetingID:        c.MeetingID,
	}, attempts, nil
}
