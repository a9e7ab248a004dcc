package crawler

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"councilreader/internal/logger"
)

// Portal endpoint paths.
const (
	pathUpcoming   = "/api/v2/PublicPortal/ListUpcomingMeetings"
	pathArchived   = "/api/v2/PublicPortal/ListArchivedMeetings"
	pathMeeting    = "/Portal/Meeting"
	pathAttachment = "/api/compilemeetingattachmenthistory/historyattachment/"
)

// URLBuilder builds portal URLs.
type URLBuilder struct {
	base string
}

// NewURLBuilder creates a builder rooted at base.
func NewURLBuilder(base string) *URLBuilder {
	return &URLBuilder{base: strings.TrimRight(base, "/")}
}

// UpcomingMeetings is the upcoming meeting list endpoint.
func (b *URLBuilder) UpcomingMeetings() string {
	return b.base + pathUpcoming
}

// ArchivedMeetings is the archived meeting list endpoint for year.
func (b *URLBuilder) ArchivedMeetings(year int) string {
	return b.base + pathArchived + "?year=" + strconv.Itoa(year)
}

// Meeting is the public agenda page of a template.
func (b *URLBuilder) Meeting(templateID int) string {
	return b.base + pathMeeting + "?meetingTemplateId=" + strconv.Itoa(templateID)
}

// Attachment is the download URL of an attachment history id.
func (b *URLBuilder) Attachment(historyID string) string {
	return b.base + pathAttachment + "?historyId=" + url.QueryEscape(historyID)
}

// AttemptResult records the result of a URL fetch attempt.
type AttemptResult struct {
	Timestamp  time.Time
	URL        string
	Error      string
	Attempt    int
	Duration   time.Duration
	StatusCode int
	Success    bool
}

// AttemptLog keeps every fetch attempt of a run, in first-seen URL order.
type AttemptLog struct {
	attempts map[string][]AttemptResult
	order    []string
	now      func() time.Time
}

// NewAttemptLog creates an empty attempt log.
func NewAttemptLog() *AttemptLog {
	return &AttemptLog{
		attempts: make(map[string][]AttemptResult),
		now:      time.Now,
	}
}

// RecordAttempt records the result of a fetch attempt.
func (al *AttemptLog) RecordAttempt(url string, success bool, err error, statusCode int, duration time.Duration) {
	if _, ok := al.attempts[url]; !ok {
		al.order = append(al.order, url)
	}

	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}

	al.attempts[url] = append(al.attempts[url], AttemptResult{
		URL:        url,
		Attempt:    len(al.attempts[url]) + 1,
		Success:    success,
		Error:      errMsg,
		Timestamp:  al.now(),
		Duration:   duration,
		StatusCode: statusCode,
	})
}

// Failed returns the last attempt of every URL that never succeeded.
func (al *AttemptLog) Failed() []AttemptResult {
	var failed []AttemptResult

	for _, u := range al.order {
		results := al.attempts[u]

		succeeded := false

		for _, r := range results {
			if r.Success {
				succeeded = true

				break
			}
		}

		if !succeeded {
			failed = append(failed, results[len(results)-1])
		}
	}

	return failed
}

// GetAttemptStats returns statistics about fetch attempts.
func (al *AttemptLog) GetAttemptStats() AttemptStats {
	stats := AttemptStats{
		TotalURLs:   len(al.order),
		URLAttempts: make(map[string]int),
	}

	for url, results := range al.attempts {
		stats.URLAttempts[url] = len(results)
		stats.TotalAttempts += len(results)

		urlSuccess := false

		for _, result := range results {
			if result.Success {
				stats.SuccessfulAttempts++
				urlSuccess = true
			} else {
				stats.FailedAttempts++
			}
		}

		if urlSuccess {
			stats.SuccessfulURLs++
		} else {
			stats.FailedURLs++
		}
	}

	return stats
}

// AttemptStats contains statistics about fetch attempts.
type AttemptStats struct {
	URLAttempts        map[string]int
	TotalURLs          int
	SuccessfulURLs     int
	FailedURLs         int
	TotalAttempts      int
	SuccessfulAttempts int
	FailedAttempts     int
}

// String returns a string representation of attempt stats.
func (s AttemptStats) String() string {
	return fmt.Sprintf(
		"URLs: %d total, %d success, %d failed | Attempts: %d total, %d success, %d failed",
		s.TotalURLs,
		s.SuccessfulURLs,
		s.FailedURLs,
		s.TotalAttempts,
		s.SuccessfulAttempts,
		s.FailedAttempts,
	)
}

// LogAttemptSummary logs the URLs that failed and overall counts.
func (al *AttemptLog) LogAttemptSummary(l *logger.Logger) {
	l.Info("📊 Fetch Attempt Summary:")

	for _, result := range al.Failed() {
		l.Info(fmt.Sprintf("   ❌ %s (%d attempts): %s", result.URL, result.Attempt, result.Error))
	}

	l.Info(fmt.Sprintf("Overall: %s", al.GetAttemptStats()))
}
