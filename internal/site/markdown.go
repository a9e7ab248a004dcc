package site

import (
	"html"
	"html/template"
	"regexp"
	"strings"
)

var (
	boldPattern   = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	italicPattern = regexp.MustCompile(`\*([^*\s][^*]*)\*`)
	bulletPattern = regexp.MustCompile(`^(?:[-*•]|\d+\.)\s+`)
)

// RenderMarkdown converts the small markdown subset the summaries use into
// HTML: headings, paragraphs, bold and italic. List items become plain
// paragraphs. Everything else is escaped.
func RenderMarkdown(text string) template.HTML {
	var (
		b         strings.Builder
		paragraph []string
	)

	flush := func() {
		if len(paragraph) > 0 {
			b.WriteString("<p>" + strings.Join(paragraph, " ") + "</p>\n")
			paragraph = nil
		}
	}

	for _, raw := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line := strings.TrimSpace(raw)

		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "#"):
			flush()

			level := len(line) - len(strings.TrimLeft(line, "#"))
			tag := "h3"
			if level >= 3 {
				tag = "h4"
			}

			b.WriteString("<" + tag + ">" + inline(strings.TrimSpace(line[level:])) + "</" + tag + ">\n")
		case bulletPattern.MatchString(line):
			flush()
			paragraph = append(paragraph, inline(bulletPattern.ReplaceAllString(line, "")))
			flush()
		default:
			paragraph = append(paragraph, inline(line))
		}
	}

	flush()

	return template.HTML(b.String())
}

func inline(s string) string {
	s = html.EscapeString(s)
	s = boldPattern.ReplaceAllString(s, "<strong>$1</strong>")

	return italicPattern.ReplaceAllString(s, "<em>$1</em>")
}

// PlainText strips the markdown markers from s, for previews and meta tags.
func PlainText(s string) string {
	var parts []string

	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "#"))
		line = bulletPattern.ReplaceAllString(line, "")

		if line != "" {
			parts = append(parts, strings.ReplaceAll(line, "*", ""))
		}
	}

	return strings.Join(parts, " ")
}
