package summarizer

import (
	"fmt"
	"strings"
)

// NewsletterDelimiter separates the full meeting article from the newsletter blurb.
const NewsletterDelimiter = "---NEWSLETTER---"

// AttachmentPrompt asks for a resident-facing summary of one council document.
func AttachmentPrompt(councilFile, filename string) string {
	return fmt.Sprintf(`You are analyzing a Los Angeles City Council document for council file %s.

Document name: %s

Please provide a concise summary (2-4 paragraphs) that covers:

1. **What is being proposed?** - The main action or recommendation
2. **Why?** - The rationale, background, or problem being addressed
3. **Key details** - Important numbers, dates, locations, or stakeholders
4. **Impact** - Who this affects and how

Focus on information that would help a resident understand what's happening and why it matters.
If this is a motion, explain what the motion is asking for.
If this is a committee report, explain the committee's recommendation and reasoning.
If this is an appeal, explain what is being appealed and the appellant's concerns.`, councilFile, filename)
}

// MeetingSystemPrompt instructs the model how to write up a meeting transcript.
const MeetingSystemPrompt = `You are a local government reporter covering Los Angeles City Council for engaged residents. Write a news-style summary that explains what happened and why it matters.

The transcript may open with pre-roll content before the meeting begins. Skip it and start from the actual proceedings, which usually begin with roll call.

Produce two outputs separated by the line "` + NewsletterDelimiter + `".

Part 1, the full article, around 500 words, with these sections:

## What Happened
The major actions taken: what was decided, the vote count, who voted against, and the concrete policy details such as dollar amounts, thresholds, dates and who is covered.

## The Debate
The most contested discussions. Present what supporters and critics each said, name the council members who took positions, and quote public commenters where it adds something.

## What It Means
Who in Los Angeles is affected, what happens next, and the open questions to watch.

Part 2, the newsletter blurb: 75 to 100 words of plain paragraph text with no headers, bullets or markdown. One sentence on the key decision and one or two on why it matters.

Write in paragraphs, not bullet points. Use names and specific numbers. Explain acronyms on first use (RSO, CEQA, CAO, CLA, LADWP, PLUM and the like). Do not editorialize and do not open with commentary about the transcript. Start the article directly with "## What Happened".`

// MeetingPrompt wraps a transcript for the meeting summary request.
func MeetingPrompt(transcript string) string {
	return "TRANSCRIPT:\n\n" + transcript
}

// TitlePrompt asks for a short reader-facing section title.
func TitlePrompt(title string, itemTitles []string) string {
	items := "No items in this section"

	if len(itemTitles) > 0 {
		lines := make([]string, 0, len(itemTitles))
		for _, t := range itemTitles {
			lines = append(lines, "- "+t)
		}

		items = strings.Join(lines, "\n")
	}

	return fmt.Sprintf(`Given this section title from a city council meeting agenda:
%q

And these items in the section:
%s

Create a short, clear section title (2-5 words) that describes what these items are about.
Rules:
- Use sentence case (capitalize first word only)
- No punctuation at the end
- Be specific but concise
- If it's just general agenda items, use "Agenda items"

Return ONLY the new title, nothing else.`, title, items)
}

// SplitNewsletter separates a meeting summary into the article and the
// newsletter blurb. Without a delimiter the whole text is the article.
func SplitNewsletter(text string) (article, newsletter string) {
	before, after, found := strings.Cut(text, NewsletterDelimiter)
	if !found {
		return strings.TrimSpace(text), ""
	}

	return strings.TrimSpace(before), strings.TrimSpace(after)
}
