package summarizer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// ErrNoTranscript reports a video without usable captions.
var ErrNoTranscript = errors.New("no transcript available")

// Transcriber fetches the caption text of a video.
type Transcriber interface {
	Transcript(ctx context.Context, videoURL string) (string, error)
}

// YTDLP fetches auto-generated English captions with the yt-dlp tool.
type YTDLP struct {
	Binary  string
	Timeout time.Duration
	run     func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewYTDLP creates a transcriber that shells out to yt-dlp on PATH.
func NewYTDLP() *YTDLP {
	return &YTDLP{
		Binary:  "yt-dlp",
		Timeout: 2 * time.Minute,
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).CombinedOutput()
		},
	}
}

// Transcript downloads the captions of videoURL and returns them as plain text.
func (y *YTDLP) Transcript(ctx context.Context, videoURL string) (string, error) {
	dir, err := os.MkdirTemp("", "captions-*")
	if err != nil {
		return "", fmt.Errorf("failed to create caption directory: %w", err)
	}
	defer os.RemoveAll(dir)

	ctx, cancel := context.WithTimeout(ctx, y.Timeout)
	defer cancel()

	out, err := y.run(ctx, y.Binary,
		"--skip-download",
		"--write-auto-subs",
		"--sub-lang", "en",
		"--sub-format", "vtt",
		"--output", filepath.Join(dir, "transcript"),
		videoURL,
	)
	if err != nil {
		return "", fmt.Errorf("yt-dlp failed: %w: %s", err, strings.TrimSpace(string(out)))
	}

	files, _ := filepath.Glob(filepath.Join(dir, "*.vtt"))
	if len(files) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoTranscript, videoURL)
	}

	data, err := os.ReadFile(files[0])
	if err != nil {
		return "", fmt.Errorf("failed to read captions: %w", err)
	}

	text := ParseVTT(string(data))
	if text == "" {
		return "", fmt.Errorf("%w: %s", ErrNoTranscript, videoURL)
	}

	return text, nil
}

var (
	cueTimestamp = regexp.MustCompile(`^\d{2}:`)
	markupTag    = regexp.MustCompile(`<[^>]+>`)
)

// ParseVTT strips a WebVTT file down to its spoken text, joined by spaces.
func ParseVTT(content string) string {
	var lines []string

	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" ||
			strings.HasPrefix(line, "WEBVTT") ||
			strings.Contains(line, "-->") ||
			isDigits(line) ||
			cueTimestamp.MatchString(line) {
			continue
		}

		if line = strings.TrimSpace(markupTag.ReplaceAllString(line, "")); line != "" {
			lines = append(lines, line)
		}
	}

	return strings.Join(lines, " ")
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return s != ""
}

// WatchURL returns the watch page of a video token.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}
