package cite

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/koralov/raggate/internal/domain/citation"
)

// Extraction thresholds for the lexical grounding heuristic.
const (
	minSentenceLen      = 20  // sentences shorter than this are ignored
	significantWordLen  = 4   // words longer than this count as significant
	sentenceMatchFrac   = 0.4 // per-sentence overlap fraction to contribute
	aggregateRelevance  = 0.3 // minimum aggregate relevance to keep a source
	injectionMatchFrac  = 0.3 // sentence/snippet overlap to place a marker
	snippetWindowLen    = 100
	snippetContextLen   = 150
	fallbackSnippetLen  = 150
	defaultRequiredRefs = 2
)

// Citation format styles.
const (
	StyleInline   = "inline"
	StyleFootnote = "footnote"
	StyleEndnote  = "endnote"
)

var (
	sentenceSplitRe = regexp.MustCompile(`[.!?]+`)
	sentenceKeepRe  = regexp.MustCompile(`([.!?]+)`)
	markerRe        = regexp.MustCompile(`\[\d+\]`)
	wordSplitRe     = regexp.MustCompile(`\s+`)
)

// Source is a candidate document a citation may point at.
type Source struct {
	ID      string
	Title   string
	Content string
	Section string
}

// Extract scores each source against the generated text using a
// deterministic lexical heuristic: per sentence, the fraction of its
// significant words that literally appear in the source content.
// Sentences clearing the per-sentence threshold contribute their
// fraction to the source's aggregate relevance; sources above the
// aggregate threshold survive, sorted by relevance descending.
// No model call is involved.
func Extract(sources []Source, text string) []citation.Citation {
	var sentences []string
	for _, s := range sentenceSplitRe.Split(text, -1) {
		if len(strings.TrimSpace(s)) > minSentenceLen {
			sentences = append(sentences, s)
		}
	}

	var citations []citation.Citation
	for _, src := range sources {
		contentLower := strings.ToLower(src.Content)

		var relevance float64
		var matchedSnippets []string

		for _, sentence := range sentences {
			cleaned := strings.ToLower(strings.TrimSpace(sentence))
			if len(cleaned) < minSentenceLen {
				continue
			}

			significant := significantWords(cleaned, significantWordLen)
			if len(significant) == 0 {
				continue
			}

			matches := 0
			for _, w := range significant {
				if strings.Contains(contentLower, w) {
					matches++
				}
			}

			frac := float64(matches) / float64(len(significant))
			if frac > sentenceMatchFrac {
				relevance += frac
				if snip := Snippet(src.Content, truncate(cleaned, 50)); snip != "" {
					matchedSnippets = append(matchedSnippets, snip)
				}
			}
		}

		if relevance > aggregateRelevance {
			snippet := truncate(src.Content, fallbackSnippetLen) + "..."
			if len(matchedSnippets) > 0 {
				snippet = matchedSnippets[0]
			}
			citations = append(citations, citation.Citation{
				SourceID:  src.ID,
				Title:     src.Title,
				Snippet:   snippet,
				Relevance: min(relevance, 1.0),
				Section:   src.Section,
			})
		}
	}

	sort.SliceStable(citations, func(i, j int) bool {
		return citations[i].Relevance > citations[j].Relevance
	})
	return citations
}

// Format renders citations in the given style; unknown styles fall
// back to inline.
func Format(citations []citation.Citation, style string) string {
	lines := make([]string, len(citations))

	switch style {
	case StyleFootnote:
		for i, c := range citations {
			lines[i] = fmt.Sprintf("%d. %s, relevance: %.1f%%", i+1, c.Title, c.Relevance*100)
		}
		return strings.Join(lines, "\n")

	case StyleEndnote:
		for i, c := range citations {
			section := ""
			if c.Section != "" {
				section = ", Section: " + c.Section
			}
			lines[i] = fmt.Sprintf("[%d] %s%s\n    %q", i+1, c.Title, section, c.Snippet)
		}
		return strings.Join(lines, "\n\n")

	default:
		for i, c := range citations {
			lines[i] = fmt.Sprintf("[%d] %s - %q", i+1, c.Title, c.Snippet)
		}
		return strings.Join(lines, "\n")
	}
}

// InjectInline attaches [n] markers to the first sentence sufficiently
// overlapping each citation's snippet, then appends an endnote source
// list. Idempotent: an existing Sources section is replaced, and a
// sentence already carrying a marker does not get it twice.
func InjectInline(text string, citations []citation.Citation) string {
	if len(citations) == 0 {
		return text
	}

	text = stripSourcesSection(text)

	// Split keeps separators at odd indexes so markers land before
	// the sentence terminator.
	parts := splitKeepingSeparators(text)

	for idx, c := range citations {
		marker := fmt.Sprintf("[%d]", idx+1)
		snippetWords := significantWords(strings.ToLower(c.Snippet), significantWordLen)
		if len(snippetWords) == 0 {
			continue
		}

		for i := 0; i < len(parts); i += 2 {
			sentence := parts[i]
			if sentence == "" {
				continue
			}
			sentenceLower := strings.ToLower(sentence)

			matches := 0
			for _, w := range snippetWords {
				if strings.Contains(sentenceLower, w) {
					matches++
				}
			}

			if float64(matches)/float64(len(snippetWords)) > injectionMatchFrac {
				if !strings.Contains(sentence, marker) {
					parts[i] = strings.TrimRight(sentence, " ") + " " + marker
				}
				break
			}
		}
	}

	var b strings.Builder
	b.WriteString(strings.Join(parts, ""))
	b.WriteString("\n\n**Sources:**\n")
	b.WriteString(Format(citations, StyleEndnote))
	return b.String()
}

// Verify checks generated text for citation coverage: at least
// `required` [n] markers plus a source list section. Warnings are
// advisory, never an error.
func Verify(text string, required int) citation.Verification {
	if required <= 0 {
		required = defaultRequiredRefs
	}

	markers := markerRe.FindAllString(text, -1)
	var warnings []string

	if len(markers) < required {
		warnings = append(warnings,
			fmt.Sprintf("Only %d citations found, expected at least %d", len(markers), required))
	}

	hasList := strings.Contains(text, "Sources:") || strings.Contains(text, "References:")
	if !hasList && len(markers) > 0 {
		warnings = append(warnings, "Citation marks found but no citation list")
	}

	return citation.Verification{
		IsVerified:       len(markers) >= required && hasList,
		CitationCount:    len(markers),
		MissingCitations: len(markers) < required,
		Warnings:         warnings,
	}
}

// Snippet scans content for the 100-char window with the most query
// word overlap (words longer than 3 chars) and returns it with
// surrounding context and ellipses, or "" when nothing overlaps.
func Snippet(content, query string) string {
	contentLower := strings.ToLower(content)
	queryLower := truncate(strings.ToLower(query), 50)

	queryWords := significantWords(queryLower, 3)
	if len(queryWords) == 0 {
		return ""
	}

	bestMatch := -1
	bestScore := 0
	for i := 0; i < len(contentLower)-50; i++ {
		window := contentLower[i:min(i+snippetWindowLen, len(contentLower))]
		score := 0
		for _, w := range queryWords {
			if strings.Contains(window, w) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			bestMatch = i
		}
	}

	if bestMatch == -1 || bestScore == 0 {
		return ""
	}

	start := max(0, bestMatch-50)
	end := min(len(content), bestMatch+snippetContextLen)
	snippet := content[start:end]

	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(content) {
		snippet += "..."
	}
	return snippet
}

// stripSourcesSection removes a previously appended source list so
// repeated injection does not stack sections.
func stripSourcesSection(text string) string {
	for _, marker := range []string{"\n\n**Sources:**\n", "\n\n**Sources:**", "**Sources:**"} {
		if i := strings.Index(text, marker); i >= 0 {
			return strings.TrimRight(text[:i], "\n ")
		}
	}
	return text
}

func splitKeepingSeparators(text string) []string {
	seps := sentenceKeepRe.FindAllStringIndex(text, -1)
	if len(seps) == 0 {
		return []string{text}
	}

	var parts []string
	prev := 0
	for _, loc := range seps {
		parts = append(parts, text[prev:loc[0]], text[loc[0]:loc[1]])
		prev = loc[1]
	}
	parts = append(parts, text[prev:])
	return parts
}

func significantWords(s string, minLen int) []string {
	var words []string
	for _, w := range wordSplitRe.Split(s, -1) {
		if len(w) > minLen {
			words = append(words, w)
		}
	}
	return words
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
