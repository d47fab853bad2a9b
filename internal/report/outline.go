package report

import (
	"regexp"
	"sort"
	"strings"
)

// headerPattern matches markdown headers (h1-h6) at the start of a line.
// Trailing spaces/tabs on the header line are trimmed by the lazy group.
var headerPattern = regexp.MustCompile(`(?m)^(#{1,6})\s+([^\n]+?)[ \t]*$`)

// summaryPattern matches the summary line of a collapsible block.
var summaryPattern = regexp.MustCompile(`(?m)^<summary>([^<\n]+)</summary>$`)

// OutlineEntry is one section label found in an assembled body.
type OutlineEntry struct {
	Label       string `json:"label"`
	Collapsible bool   `json:"collapsible"`
	Truncated   bool   `json:"truncated"`
	offset      int
}

// Outline lists the sections of an assembled body in order. Headings and summaries
// that sit inside fenced code blocks (captured stack traces, console output, HTML)
// are ignored.
func Outline(body string) []OutlineEntry {
	fences := fencedRanges(body)
	var entries []OutlineEntry

	for _, m := range headerPattern.FindAllStringSubmatchIndex(body, -1) {
		if insideFence(m[0], fences) {
			continue
		}
		entries = append(entries, OutlineEntry{Label: body[m[4]:m[5]], offset: m[0]})
	}
	for _, m := range summaryPattern.FindAllStringSubmatchIndex(body, -1) {
		if insideFence(m[0], fences) {
			continue
		}
		label := body[m[2]:m[3]]
		truncated := strings.HasSuffix(label, TruncatedLabelSuffix)
		entries = append(entries, OutlineEntry{
			Label:       strings.TrimSuffix(label, TruncatedLabelSuffix),
			Collapsible: true,
			Truncated:   truncated,
			offset:      m[0],
		})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].offset < entries[j].offset })
	return entries
}

// OutlineLabels returns just the labels from Outline.
func OutlineLabels(body string) []string {
	entries := Outline(body)
	labels := make([]string, len(entries))
	for i, e := range entries {
		labels[i] = e.Label
	}
	return labels
}

// fencedRanges returns byte offset ranges [start, end) for fenced code blocks in text.
// Properly pairs opening and closing fences: closing fence must use the same character
// (backtick or tilde) and be at least as long as the opening fence.
func fencedRanges(text string) [][2]int {
	matches := fencePattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) < 2 {
		return nil
	}

	var ranges [][2]int
	var openChar byte
	var openLen int
	var openStart int
	inFence := false

	for _, match := range matches {
		// match indices: [fullStart, fullEnd, fenceCharsStart, fenceCharsEnd]
		fenceChars := text[match[2]:match[3]]
		char := fenceChars[0]
		fenceLen := len(fenceChars)

		if !inFence {
			openChar = char
			openLen = fenceLen
			openStart = match[0]
			inFence = true
		} else if char == openChar && fenceLen >= openLen {
			ranges = append(ranges, [2]int{openStart, match[1]})
			inFence = false
		}
		// Otherwise: different char or shorter fence inside open block - skip
	}
	return ranges
}

// insideFence returns true if byte offset pos falls inside any fenced range.
func insideFence(pos int, ranges [][2]int) bool {
	for _, r := range ranges {
		if pos >= r[0] && pos < r[1] {
			return true
		}
	}
	return false
}
