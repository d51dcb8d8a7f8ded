package subtitles

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/SytherAsh/Vizuara-backend/internal/models"
)

// maxCueLines caps how many lines a single cue may span.
const maxCueLines = 3

// wrapWidths are tried smallest first; the first width that fits the text in
// maxCueLines wins, otherwise the largest is used with a hard cap.
var wrapWidths = []int{32, 38, 42}

var (
	reHeading     = regexp.MustCompile(`^#{1,6}\s*`)
	reRule        = regexp.MustCompile(`^\s*[-*_]{3,}\s*$`)
	reEmphasis    = regexp.MustCompile(`(\*\*|__|\*|_)`)
	reSpeaker     = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9 .]{0,30}:\s+`)
	reWhitespace  = regexp.MustCompile(`\s+`)
	reNarrSection = regexp.MustCompile(`(?i)narration\s+text`)
)

// TextFetcher pulls a scene's narration text from storage when it wasn't
// supplied with the request. Keyed by project and 1-based scene number.
type TextFetcher interface {
	NarrationText(ctx context.Context, project string, scene int) (string, error)
}

// Service maps cleaned narration text onto the assembler's authoritative
// scene timings and emits SRT.
type Service struct {
	fetcher TextFetcher
}

func NewService(fetcher TextFetcher) *Service {
	return &Service{fetcher: fetcher}
}

// Generate produces an SRT document with one cue per scene that has usable
// text. texts is keyed by scene number; scenes absent from it fall back to
// the fetcher when one is configured. Returns (nil, nil) when no scene has
// text, which callers treat as "no subtitles", not an error.
func (s *Service) Generate(ctx context.Context, project string, timings []models.SceneTiming, texts map[int]string) ([]byte, error) {
	var b strings.Builder
	cue := 0

	for _, tm := range timings {
		raw, ok := texts[tm.Scene]
		if !ok && s.fetcher != nil {
			fetched, err := s.fetcher.NarrationText(ctx, project, tm.Scene)
			if err != nil {
				log.Printf("[Subtitles] Warning: no narration text for scene %d: %v", tm.Scene, err)
				continue
			}
			raw = fetched
		}

		text := CleanNarration(raw)
		if text == "" {
			continue
		}

		cue++
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			cue,
			formatTimestamp(tm.Start),
			formatTimestamp(tm.End),
			strings.Join(wrapLines(text), "\n"),
		)
	}

	if cue == 0 {
		return nil, nil
	}
	return []byte(b.String()), nil
}

// CleanNarration reduces raw narration (possibly markdown-formatted script
// output) to the prose meant to be spoken. If the text contains a section
// headed "Narration Text", only that section is used; otherwise markup and
// speaker labels are stripped line by line.
func CleanNarration(raw string) string {
	if raw == "" {
		return ""
	}

	lines := strings.Split(raw, "\n")

	// Prefer an explicit "Narration Text" section when present
	if section := narrationSection(lines); section != nil {
		lines = section
	}

	var kept []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || reRule.MatchString(line) {
			continue
		}
		line = reHeading.ReplaceAllString(line, "")
		line = reSpeaker.ReplaceAllString(line, "")
		line = reEmphasis.ReplaceAllString(line, "")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		kept = append(kept, line)
	}

	return reWhitespace.ReplaceAllString(strings.Join(kept, " "), " ")
}

// narrationSection returns the lines under a "Narration Text" heading, up to
// the next heading, or nil when no such section exists.
func narrationSection(lines []string) []string {
	start := -1
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if reNarrSection.MatchString(trimmed) && (strings.HasPrefix(trimmed, "#") || strings.HasSuffix(trimmed, ":")) {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return nil
	}

	end := len(lines)
	for i := start; i < len(lines); i++ {
		if strings.HasPrefix(strings.TrimSpace(lines[i]), "#") {
			end = i
			break
		}
	}
	if start >= end {
		return nil
	}
	return lines[start:end]
}

// wrapLines greedily packs words into lines. Widths are tried in increasing
// order until the text fits in maxCueLines; if none fits, the largest width
// is used and the overflow dropped.
func wrapLines(text string) []string {
	for _, width := range wrapWidths {
		lines := greedyWrap(text, width)
		if len(lines) <= maxCueLines {
			return lines
		}
	}

	lines := greedyWrap(text, wrapWidths[len(wrapWidths)-1])
	return lines[:maxCueLines]
}

func greedyWrap(text string, width int) []string {
	var lines []string
	var current strings.Builder

	for _, word := range strings.Fields(text) {
		if current.Len() == 0 {
			current.WriteString(word)
			continue
		}
		if current.Len()+1+len(word) > width {
			lines = append(lines, current.String())
			current.Reset()
			current.WriteString(word)
			continue
		}
		current.WriteByte(' ')
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}

// formatTimestamp renders seconds as an SRT timestamp, HH:MM:SS,mmm.
// Negative inputs clamp to zero.
func formatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}

	totalMs := int(seconds*1000 + 0.5)
	h := totalMs / 3600000
	m := totalMs % 3600000 / 60000
	s := totalMs % 60000 / 1000
	ms := totalMs % 1000

	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
