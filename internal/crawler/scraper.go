package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"councilreader/internal/config"
	"councilreader/pkg/utils"
)

// Scraper errors.
var (
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	ErrBodyTooLarge         = errors.New("response body exceeds limit")
)

// Recorder receives the outcome of every request attempt.
type Recorder interface {
	RecordAttempt(url string, success bool, err error, statusCode int, duration time.Duration)
}

// Response is a successful fetch.
type Response struct {
	Body        []byte
	ContentType string
	StatusCode  int
	Attempts    int
	Duration    time.Duration
}

// Scraper handles HTTP fetches with config-driven retry logic and a polite
// delay between consecutive requests.
type Scraper struct {
	client      *http.Client
	retryPolicy *config.RetryPolicy
	headers     *utils.HTTPHelper
	recorder    Recorder
	sleep       func(context.Context, time.Duration) error
	lastRequest time.Time
	politeDelay time.Duration
	bodyLimit   int64
}

// NewScraperWithConfig creates a scraper from the retry, crawler and portal settings.
func NewScraperWithConfig(cfg *config.Config) *Scraper {
	retry := cfg.Retry

	return &Scraper{
		client: &http.Client{
			Timeout: retry.GetTimeout(),
		},
		retryPolicy: &retry,
		headers:     utils.NewHTTPHelper(cfg.Portal.UserAgent),
		sleep:       sleepContext,
		politeDelay: cfg.PoliteDelay(),
		bodyLimit:   cfg.BodyLimit(),
	}
}

// SetRecorder registers where attempts are reported.
func (s *Scraper) SetRecorder(r Recorder) {
	s.recorder = r
}

// Fetch GETs url, retrying transient failures. accept sets the Accept header.
func (s *Scraper) Fetch(ctx context.Context, url, accept string) (*Response, error) {
	var lastErr error

	var lastStatusCode int

	totalDuration := time.Duration(0)

	for attempt := 1; attempt <= s.retryPolicy.MaxAttempts; attempt++ {
		if err := s.waitPolitely(ctx); err != nil {
			return nil, err
		}

		resp, retryAfter, err := s.do(ctx, url, accept)
		totalDuration += resp.Duration
		lastStatusCode = resp.StatusCode

		s.record(url, err == nil, err, resp.StatusCode, resp.Duration)

		if err == nil {
			resp.Attempts = attempt
			resp.Duration = totalDuration

			return resp, nil
		}

		lastErr = fmt.Errorf("request failed (attempt %d/%d): %w", attempt, s.retryPolicy.MaxAttempts, err)

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		// Only retry transport errors and specific status codes
		if resp.StatusCode != 0 && !isRetryableStatus(resp.StatusCode) {
			break
		}

		if attempt < s.retryPolicy.MaxAttempts {
			delay := s.retryPolicy.GetRetryDelay(attempt + 1)
			if retryAfter > 0 {
				delay = retryAfter
			}

			if err := s.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}
	}

	return &Response{StatusCode: lastStatusCode, Duration: totalDuration}, lastErr
}

func (s *Scraper) do(ctx context.Context, url, accept string) (*Response, time.Duration, error) {
	startTime := time.Now()
	result := &Response{}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return result, 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header = s.headers.BuildHeaders(map[string]string{"Accept": accept})

	resp, err := s.client.Do(req)
	s.lastRequest = time.Now()

	if err != nil {
		result.Duration = time.Since(startTime)

		return result, 0, err
	}

	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode
	result.ContentType = resp.Header.Get("Content-Type")

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		result.Duration = time.Since(startTime)

		return result, retryAfter(resp), fmt.Errorf("%w: %d", ErrUnexpectedStatusCode, resp.StatusCode)
	}

	// Read one byte past the limit to tell a full body from a truncated one
	body, err := io.ReadAll(io.LimitReader(resp.Body, s.bodyLimit+1))
	result.Duration = time.Since(startTime)

	if err != nil {
		return result, 0, fmt.Errorf("failed to read response body: %w", err)
	}

	if int64(len(body)) > s.bodyLimit {
		return result, 0, fmt.Errorf("%w (%d bytes)", ErrBodyTooLarge, s.bodyLimit)
	}

	result.Body = body

	return result, 0, nil
}

func (s *Scraper) waitPolitely(ctx context.Context) error {
	if s.politeDelay <= 0 || s.lastRequest.IsZero() {
		return nil
	}

	return s.sleep(ctx, s.politeDelay-time.Since(s.lastRequest))
}

func (s *Scraper) record(url string, success bool, err error, statusCode int, duration time.Duration) {
	if s.recorder != nil {
		s.recorder.RecordAttempt(url, success, err, statusCode, duration)
	}
}

// retryAfter reads a Retry-After header given in seconds.
func retryAfter(resp *http.Response) time.Duration {
	if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode != http.StatusServiceUnavailable {
		return 0
	}

	secs, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || secs <= 0 {
		return 0
	}

	return time.Duration(secs) * time.Second
}

// isRetryableStatus determines if we should retry based on HTTP status code.
func isRetryableStatus(statusCode int) bool {
	// Retry on temporary failures
	switch statusCode {
	case http.StatusServiceUnavailable: // 503
		return true
	case http.StatusGatewayTimeout: // 504
		return true
	case http.StatusTooManyRequests: // 429
		return true
	case http.StatusRequestTimeout: // 408
		return true
	}

	return false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
