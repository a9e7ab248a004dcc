// Package validator checks a generated site: every page carries a valid
// stamp and every internal link points at a page that exists.
package validator

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"councilreader/pkg/metadata"
)

// ValidationError is one problem found on one page.
type ValidationError struct {
	Page    string
	Link    string
	Message string
}

// ValidationResult contains validation results.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []string
	Stats    ValidationStats
	IsValid  bool
}

// ValidationStats counts what was checked.
type ValidationStats struct {
	TotalPages    int
	ValidPages    int
	InvalidPages  int
	UnsignedPages int
	LinksChecked  int
	BrokenLinks   int
}

// SiteValidator validates the pages under one site directory.
type SiteValidator struct {
	dir string
}

// NewSiteValidator creates a validator rooted at dir.
func NewSiteValidator(dir string) *SiteValidator {
	return &SiteValidator{dir: dir}
}

// ValidateSite checks every .html page under the site directory.
func (v *SiteValidator) ValidateSite() (*ValidationResult, error) {
	pages, err := v.Pages()
	if err != nil {
		return nil, err
	}

	result := &ValidationResult{IsValid: true}

	for _, page := range pages {
		content, err := os.ReadFile(filepath.Join(v.dir, filepath.FromSlash(page)))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", page, err)
		}

		errs := v.ValidatePage(page, string(content), result)

		result.Stats.TotalPages++
		if len(errs) == 0 {
			result.Stats.ValidPages++

			continue
		}

		result.Stats.InvalidPages++
		result.Errors = append(result.Errors, errs...)
		result.IsValid = false
	}

	return result, nil
}

// Pages lists site pages as slash paths relative to the site directory, sorted.
func (v *SiteValidator) Pages() ([]string, error) {
	var pages []string

	err := filepath.WalkDir(v.dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() || filepath.Ext(p) != ".html" {
			return nil
		}

		rel, err := filepath.Rel(v.dir, p)
		if err != nil {
			return err
		}

		pages = append(pages, filepath.ToSlash(rel))

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk site %s: %w", v.dir, err)
	}

	sort.Strings(pages)

	return pages, nil
}

// ValidatePage checks one page's stamp, title and internal links. Counters
// and warnings go to result.
func (v *SiteValidator) ValidatePage(page, content string, result *ValidationResult) []ValidationError {
	var errs []ValidationError

	if _, err := metadata.Verify(content); errors.Is(err, metadata.ErrNoStamp) {
		result.Stats.UnsignedPages++
		result.Warnings = append(result.Warnings, page+": page is not stamped")
	} else if err != nil {
		errs = append(errs, ValidationError{Page: page, Message: fmt.Sprintf("integrity check failed: %v", err)})
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return append(errs, ValidationError{Page: page, Message: fmt.Sprintf("unparseable page: %v", err)})
	}

	if strings.TrimSpace(doc.Find("title").First().Text()) == "" {
		errs = append(errs, ValidationError{Page: page, Message: "page has no title"})
	}

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")

		target, ok := v.localTarget(href)
		if !ok {
			return
		}

		result.Stats.LinksChecked++

		if _, err := os.Stat(target); err != nil {
			result.Stats.BrokenLinks++
			errs = append(errs, ValidationError{Page: page, Link: href, Message: "link target does not exist"})
		}
	})

	return errs
}

// localTarget maps a site-absolute href to the file that serves it.
func (v *SiteValidator) localTarget(href string) (string, bool) {
	if !strings.HasPrefix(href, "/") || strings.HasPrefix(href, "//") {
		return "", false
	}

	href, _, _ = strings.Cut(href, "#")
	href, _, _ = strings.Cut(href, "?")

	clean := path.Clean(href)
	if strings.HasSuffix(href, "/") {
		clean = path.Join(clean, "index.html")
	}

	return filepath.Join(v.dir, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), true
}

func (r *ValidationResult) String() string {
	status := "✅ VALID"
	if !r.IsValid {
		status = "❌ INVALID"
	}

	return fmt.Sprintf("%s: %d pages (%d valid, %d invalid, %d unstamped), %d links checked, %d broken",
		status, r.Stats.TotalPages, r.Stats.ValidPages, r.Stats.InvalidPages,
		r.Stats.UnsignedPages, r.Stats.LinksChecked, r.Stats.BrokenLinks)
}

// PrintErrors prints every error, one per line.
func (r *ValidationResult) PrintErrors() {
	if len(r.Errors) == 0 {
		return
	}

	fmt.Printf("\n❌ Errors (%d):\n", len(r.Errors))

	for _, e := range r.Errors {
		if e.Link != "" {
			fmt.Printf("  %s: %s (%s)\n", e.Page, e.Message, e.Link)
		} else {
			fmt.Printf("  %s: %s\n", e.Page, e.Message)
		}
	}
}

// PrintWarnings prints every warning, one per line.
func (r *ValidationResult) PrintWarnings() {
	if len(r.Warnings) == 0 {
		return
	}

	fmt.Printf("\n⚠️  Warnings (%d):\n", len(r.Warnings))

	for _, w := range r.Warnings {
		fmt.Printf("  %s\n", w)
	}
}
