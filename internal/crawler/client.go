package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"councilreader/internal/config"
	"councilreader/internal/crawler/parsers"
	"councilreader/internal/logger"
	"councilreader/internal/models"
)

// ErrNotPDF reports an attachment download that is not a PDF document.
var ErrNotPDF = errors.New("attachment is not a PDF")

const (
	acceptJSON = "application/json"
	acceptHTML = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	acceptPDF  = "application/pdf,*/*;q=0.8"
)

// Document is a downloaded attachment.
type Document struct {
	Data        []byte
	ContentType string
}

// IsPDF reports whether the body carries the PDF magic header.
func (d *Document) IsPDF() bool {
	return bytes.HasPrefix(d.Data, []byte("%PDF"))
}

// PortalClient talks to the meeting portal.
type PortalClient struct {
	scraper  *Scraper
	urls     *URLBuilder
	parser   *Parser
	attempts *AttemptLog
	log      *logger.Logger
	now      func() time.Time
}

// NewPortalClient creates a portal client from configuration.
func NewPortalClient(cfg *config.Config, log *logger.Logger) *PortalClient {
	agenda := parsers.NewParser(parsers.WithBaseURL(cfg.Portal.BaseURL), parsers.WithLocation(cfg.Location()))

	return NewPortalClientWithDeps(NewScraperWithConfig(cfg), NewURLBuilder(cfg.Portal.BaseURL), NewParser(agenda), log)
}

// NewPortalClientWithDeps creates a portal client with injected dependencies.
func NewPortalClientWithDeps(scraper *Scraper, urls *URLBuilder, parser *Parser, log *logger.Logger) *PortalClient {
	if log == nil {
		log = logger.Discard()
	}

	attempts := NewAttemptLog()
	scraper.SetRecorder(attempts)

	return &PortalClient{
		scraper:  scraper,
		urls:     urls,
		parser:   parser,
		attempts: attempts,
		log:      log,
		now:      time.Now,
	}
}

// Attempts returns the log of every request made by this client.
func (c *PortalClient) Attempts() *AttemptLog {
	return c.attempts
}

// Parser returns the meeting list parser.
func (c *PortalClient) Parser() *Parser {
	return c.parser
}

// URLs returns the client's URL builder.
func (c *PortalClient) URLs() *URLBuilder {
	return c.urls
}

// ListUpcoming lists upcoming meetings. Committee names fall back to the listed title.
func (c *PortalClient) ListUpcoming(ctx context.Context) ([]models.PortalMeeting, error) {
	meetings, err := c.listMeetings(ctx, c.urls.UpcomingMeetings())
	if err != nil {
		return nil, err
	}

	for i := range meetings {
		meetings[i].CommitteeName = CommitteeName(meetings[i].CommitteeID, meetings[i].Title)
	}

	return meetings, nil
}

// ListArchived lists the archived meetings of year.
func (c *PortalClient) ListArchived(ctx context.Context, year int) ([]models.PortalMeeting, error) {
	meetings, err := c.listMeetings(ctx, c.urls.ArchivedMeetings(year))
	if err != nil {
		return nil, err
	}

	for i := range meetings {
		meetings[i].CommitteeName = CommitteeName(meetings[i].CommitteeID, "")
	}

	return meetings, nil
}

// RecentMeetings merges upcoming and this year's archived meetings, most
// recent first. committeeID 0 keeps every committee.
func (c *PortalClient) RecentMeetings(ctx context.Context, limit, committeeID int) ([]models.PortalMeeting, error) {
	upcoming, err := c.ListUpcoming(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming meetings: %w", err)
	}

	upcoming = FilterCommittee(upcoming, committeeID)
	c.log.Info("✅ Found upcoming meetings", "count", len(upcoming))

	year := c.now().Year()

	archived, err := c.ListArchived(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("failed to list archived meetings for %d: %w", year, err)
	}

	archived = FilterCommittee(archived, committeeID)
	c.log.Info("✅ Found archived meetings", "count", len(archived), "year", year)

	merged := MergeMeetings(limit, upcoming, archived)
	c.log.Info("✅ Total unique meetings", "count", len(merged))

	return merged, nil
}

// FetchAgenda returns the HTML agenda page of a template.
func (c *PortalClient) FetchAgenda(ctx context.Context, templateID int) (string, error) {
	url := c.urls.Meeting(templateID)

	resp, err := c.scraper.Fetch(ctx, url, acceptHTML)
	if err != nil {
		return "", fmt.Errorf("failed to fetch agenda %d: %w", templateID, err)
	}

	c.log.Debug("agenda fetched", "template_id", templateID, "bytes", len(resp.Body), "attempts", resp.Attempts)

	return string(resp.Body), nil
}

// DownloadAttachment downloads an attachment document by history id.
func (c *PortalClient) DownloadAttachment(ctx context.Context, historyID string) (*Document, error) {
	resp, err := c.scraper.Fetch(ctx, c.urls.Attachment(historyID), acceptPDF)
	if err != nil {
		return nil, fmt.Errorf("failed to download attachment %s: %w", historyID, err)
	}

	doc := &Document{Data: resp.Body, ContentType: resp.ContentType}
	if !doc.IsPDF() {
		return doc, fmt.Errorf("%w: %s (%s)", ErrNotPDF, historyID, resp.ContentType)
	}

	return doc, nil
}

func (c *PortalClient) listMeetings(ctx context.Context, url string) ([]models.PortalMeeting, error) {
	resp, err := c.scraper.Fetch(ctx, url, acceptJSON)
	if err != nil {
		return nil, err
	}

	return c.parser.ParseMeetingList(resp.Body)
}
