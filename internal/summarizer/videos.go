package summarizer

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"councilreader/internal/config"
	"councilreader/internal/formatter"
	"councilreader/internal/models"
	"councilreader/internal/store"
)

const (
	videoMaxTokens   = 1500
	videoTemperature = 0.3
)

// VideoJob writes a news-style summary for each meeting recording.
type VideoJob struct {
	deps        Deps
	transcriber Transcriber
	cfg         config.SummarizerConfig
	retrier     *Retrier
	sleep       func(context.Context, time.Duration) error
}

// NewVideoJob creates a video job.
func NewVideoJob(deps Deps, transcriber Transcriber, cfg config.SummarizerConfig) *VideoJob {
	return &VideoJob{
		deps:        deps,
		transcriber: transcriber,
		cfg:         cfg,
		retrier:     NewRetrier(cfg.RateLimit, deps.logger()),
		sleep:       sleepContext,
	}
}

// Run summarizes every meeting with a video reference that has no summary yet.
func (j *VideoJob) Run(ctx context.Context, meetings []models.Meeting) (*Report, error) {
	log := j.deps.logger()
	report := &Report{Kind: store.KindVideo}

	called := false

	for _, m := range meetings {
		if !m.HasVideo() {
			continue
		}

		report.Candidates++

		key := strconv.Itoa(m.MeetingID)
		if j.deps.Records.HasVideoSummary(m.MeetingID) || j.deps.processed(ctx, store.KindVideo, key) {
			report.Skipped++

			continue
		}

		if called {
			if err := j.sleep(ctx, j.cfg.VideoDelay()); err != nil {
				return report, err
			}
		}

		called = true

		log.Info("🎬 Summarizing meeting video", "meeting_id", m.MeetingID, "video", *m.VideoReference)

		summary, resp, attempts, err := j.Summarize(ctx, m)
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}

			report.Failed++
			j.deps.recordFailure(ctx, store.KindVideo, key, attempts, err)

			continue
		}

		if err := j.deps.Records.SaveVideoSummary(summary); err != nil {
			report.Failed++
			j.deps.recordFailure(ctx, store.KindVideo, key, attempts, err)

			continue
		}

		j.deps.markProcessed(ctx, store.KindVideo, key)

		report.Processed++
		report.add(resp)

		log.Info("✅ Video summarized", "meeting_id", m.MeetingID, "transcript_chars", summary.TranscriptLength)
	}

	return report, nil
}

// Summarize fetches the transcript of one meeting and summarizes it.
func (j *VideoJob) Summarize(ctx context.Context, m models.Meeting) (*models.VideoSummary, *Response, int, error) {
	videoURL := WatchURL(*m.VideoReference)

	transcript, err := j.transcriber.Transcript(ctx, videoURL)
	if err != nil {
		return nil, nil, 1, fmt.Errorf("transcript failed: %w", err)
	}

	temperature := videoTemperature

	resp, attempts, err := j.retrier.Do(ctx, func() (*Response, error) {
		return j.deps.Provider.Summarize(ctx, Request{
			Model:       j.cfg.VideoModel,
			MaxTokens:   videoMaxTokens,
			System:      MeetingSystemPrompt,
			Prompt:      MeetingPrompt(transcript),
			Temperature: &temperature,
		})
	})
	if err != nil {
		return nil, nil, attempts, err
	}

	article, newsletter := SplitNewsletter(resp.Text)

	model := resp.Model
	if model == "" {
		model = j.cfg.VideoModel
	}

	return &models.VideoSummary{
		VideoURL:         videoURL,
		Summary:          formatter.FormatTables(article),
		Newsletter:       newsletter,
		Model:            model,
		MeetingID:        m.MeetingID,
		TranscriptLength: len(transcript),
	}, resp, attempts, nil
}
