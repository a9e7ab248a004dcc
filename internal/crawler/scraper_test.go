package crawler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"councilreader/internal/config"
)

func newTestScraper(t *testing.T) (*Scraper, *[]time.Duration) {
	t.Helper()

	cfg := config.Default()
	cfg.Retry.InitialDelayMs = 10
	cfg.Retry.TimeoutSec = 5
	cfg.Crawler.PoliteDelayMs = 0
	cfg.Crawler.BufferSizeKb = 1

	s := NewScraperWithConfig(cfg)

	var slept []time.Duration

	s.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)

		return nil
	}

	return s, &slept
}

func TestScraper_Fetch_RetriesTransientStatus(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)

			return
		}

		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	s, slept := newTestScraper(t)

	resp, err := s.Fetch(context.Background(), server.URL, acceptHTML)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if string(resp.Body) != "ok" {
		t.Errorf("Body = %q, want ok", resp.Body)
	}

	if resp.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", resp.Attempts)
	}

	if len(*slept) != 2 {
		t.Errorf("expected 2 backoff sleeps, got %v", *slept)
	}
}

func TestScraper_Fetch_StopsOnPermanentStatus(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++

		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	s, _ := newTestScraper(t)

	resp, err := s.Fetch(context.Background(), server.URL, acceptHTML)
	if !errors.Is(err, ErrUnexpectedStatusCode) {
		t.Fatalf("expected ErrUnexpectedStatusCode, got %v", err)
	}

	if calls != 1 {
		t.Errorf("server called %d times, want 1", calls)
	}

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", resp.StatusCode)
	}
}

func TestScraper_Fetch_HonorsRetryAfter(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)

			return
		}

		_, _ = w.Write([]byte("[]"))
	}))
	defer server.Close()

	s, slept := newTestScraper(t)

	if _, err := s.Fetch(context.Background(), server.URL, acceptJSON); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if len(*slept) != 1 || (*slept)[0] != 7*time.Second {
		t.Errorf("expected one 7s sleep, got %v", *slept)
	}
}

func TestScraper_Fetch_BodyLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 2048)))
	}))
	defer server.Close()

	s, _ := newTestScraper(t)

	if _, err := s.Fetch(context.Background(), server.URL, acceptHTML); !errors.Is(err, ErrBodyTooLarge) {
		t.Errorf("expected ErrBodyTooLarge, got %v", err)
	}
}

func TestScraper_Fetch_SendsHeaders(t *testing.T) {
	var gotUA, gotAccept string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
	}))
	defer server.Close()

	s, _ := newTestScraper(t)

	if _, err := s.Fetch(context.Background(), server.URL, acceptPDF); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if gotUA != config.Default().Portal.UserAgent {
		t.Errorf("User-Agent = %q", gotUA)
	}

	if gotAccept != acceptPDF {
		t.Errorf("Accept = %q, want %q", gotAccept, acceptPDF)
	}
}

func TestScraper_Fetch_CanceledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	s, _ := newTestScraper(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Fetch(ctx, server.URL, acceptHTML); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestScraper_RecordsAttempts(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusGatewayTimeout)

			return
		}
	}))
	defer server.Close()

	s, _ := newTestScraper(t)
	log := NewAttemptLog()
	s.SetRecorder(log)

	if _, err := s.Fetch(context.Background(), server.URL, acceptHTML); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	stats := log.GetAttemptStats()
	if stats.URLAttempts[server.URL] != 2 {
		t.Fatalf("expected 2 recorded attempts, got %d", stats.URLAttempts[server.URL])
	}

	if stats.FailedAttempts != 1 || stats.SuccessfulURLs != 1 || len(log.Failed()) != 0 {
		t.Errorf("stats = %s, failed = %+v", stats, log.Failed())
	}
}

func TestIsRetryableStatus(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{http.StatusServiceUnavailable, true},
		{http.StatusGatewayTimeout, true},
		{http.StatusTooManyRequests, true},
		{http.StatusRequestTimeout, true},
		{http.StatusNotFound, false},
		{http.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		if got := isRetryableStatus(tt.code); got != tt.want {
			t.Errorf("isRetryableStatus(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}
