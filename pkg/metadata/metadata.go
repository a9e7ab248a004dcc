// Package metadata stamps generated pages with a content hash so a
// regeneration can tell which pages actually changed.
package metadata

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	// TagStart opens the stamp comment.
	TagStart = "<!-- PAGE_STAMP"
	// TagEnd closes the stamp comment.
	TagEnd = "PAGE_STAMP -->"
)

// Stamp verification errors.
var (
	ErrNoStamp      = errors.New("no page stamp found")
	ErrNoHashFound  = errors.New("no hash found in page stamp")
	ErrHashMismatch = errors.New("hash mismatch")
)

// Stamp records when and from what a page was generated.
type Stamp struct {
	GeneratedAt time.Time
	Generator   string
	Hash        string
}

var stampRegex = regexp.MustCompile(`(?s)\n*<!--\s*PAGE_STAMP\s*\n(.*?)\n\s*PAGE_STAMP\s*-->\s*$`)

// Extract splits content into its stamp (nil when absent) and the unstamped body.
func Extract(content string) (*Stamp, string) {
	match := stampRegex.FindStringSubmatch(content)
	if match == nil {
		return nil, strings.TrimRight(content, "\n")
	}

	body := strings.TrimRight(content[:len(content)-len(match[0])], "\n")
	stamp := &Stamp{}

	for line := range strings.SplitSeq(match[1], "\n") {
		key, val, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok {
			continue
		}

		val = strings.TrimSpace(val)

		switch strings.TrimSpace(key) {
		case "GENERATED_AT":
			if t, err := time.Parse(time.RFC3339, val); err == nil {
				stamp.GeneratedAt = t
			}
		case "GENERATOR":
			stamp.Generator = val
		case "HASH":
			stamp.Hash = val
		}
	}

	return stamp, body
}

// CalculateHash returns the SHA-256 of content with any stamp removed.
func CalculateHash(content string) string {
	_, body := Extract(content)
	sum := sha256.Sum256([]byte(body))

	return hex.EncodeToString(sum[:])
}

// Sign replaces any existing stamp on content with a fresh one.
func Sign(content, generator string, generatedAt time.Time) string {
	_, body := Extract(content)

	return fmt.Sprintf("%s\n%s\nGENERATOR: %s\nGENERATED_AT: %s\nHASH: %s\n%s\n",
		body, TagStart, generator, generatedAt.UTC().Format(time.RFC3339), CalculateHash(body), TagEnd)
}

// Verify checks that content still matches the hash in its stamp.
func Verify(content string) (bool, error) {
	stamp, body := Extract(content)
	if stamp == nil {
		return false, ErrNoStamp
	}

	if stamp.Hash == "" {
		return false, ErrNoHashFound
	}

	if calculated := CalculateHash(body); calculated != stamp.Hash {
		return false, fmt.Errorf("%w: expected %s, got %s", ErrHashMismatch, stamp.Hash, calculated)
	}

	return true, nil
}

// Unchanged reports whether a previously written page has the same body as
// freshly rendered content. Stamps on either side are ignored.
func Unchanged(existing, fresh string) bool {
	stamp, _ := Extract(existing)
	if stamp == nil || stamp.Hash == "" {
		return false
	}

	return stamp.Hash == CalculateHash(fresh)
}
