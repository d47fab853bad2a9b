package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Section labels as they appear in headings and collapsible summaries.
const (
	LabelElementContext = "Element Context"
	LabelDescription    = "Description"
	LabelConsoleSummary = "Console Summary"
	LabelJSError        = "JavaScript Error"
	LabelNetworkSample  = "Network Sample"
	LabelConsoleLogs    = "Console Logs"
	LabelDOMSnippet     = "DOM Snippet"
)

const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// formatMillis renders epoch milliseconds as ISO-8601 UTC.
func formatMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(isoMillis)
}

// field renders a redacted, single-line "**Label:** value" line, or "" if empty.
func field(label, value string) string {
	value = singleLine(Redact(value))
	if value == "" {
		return ""
	}
	return "**" + label + ":** " + value
}

// joinLines joins non-empty lines with newlines.
func joinLines(lines ...string) string {
	var kept []string
	for _, l := range lines {
		if l != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}

// headedSection renders content under a level-2 heading, switching to a collapsible
// "(truncated)" block when content exceeds limit bytes.
func headedSection(label, content string, limit int) string {
	if content == "" {
		return ""
	}
	if len(content) > limit {
		return details(label+TruncatedLabelSuffix, truncateBlock(content, limit))
	}
	return "## " + label + sectionSeparator + content
}

// fencedDetails renders text as a fenced code block inside a collapsible block.
// The byte limit applies to text before fencing.
func fencedDetails(label, lang, text string, limit int) string {
	if text == "" {
		return ""
	}
	if len(text) > limit {
		return details(label+TruncatedLabelSuffix, codeFence(lang, TruncateBytes(text, limit)))
	}
	return details(label, codeFence(lang, text))
}

// buildHeader renders URL, capture time, user agent and viewport, capped at
// MaxHeaderChars characters.
func buildHeader(ctx CapturedContext) string {
	var url, timestamp string
	if ctx.URL != nil {
		url = field("URL", StripQueryAndHash(*ctx.URL))
	}
	if ctx.Timestamp != nil {
		timestamp = "**Timestamp:** " + formatMillis(*ctx.Timestamp)
	}
	header := joinLines(
		url,
		timestamp,
		field("User Agent", str(ctx.UserAgent)),
		field("Viewport", str(ctx.Viewport)),
	)
	return strings.TrimSpace(truncateChars(header, MaxHeaderChars))
}

// buildElementContext renders the element description, selector and selection.
// It is always shown in full; only the selection preview is shortened.
func buildElementContext(ctx CapturedContext) string {
	var selector, selected string
	if s := singleLine(Redact(str(ctx.CSSSelector))); s != "" {
		selector = "**Selector:** " + inlineCode(s)
	}
	if s := singleLine(Redact(str(ctx.SelectedText))); s != "" {
		selected = "**Selected Text:** " + truncateCharsEllipsis(s, MaxSelectedTextChars)
	}
	content := joinLines(field("Element", str(ctx.ElementDescription)), selector, selected)
	if content == "" {
		return ""
	}
	return "## " + LabelElementContext + sectionSeparator + content
}

// buildDescription renders the reporter's explanation.
func buildDescription(description string) string {
	return headedSection(LabelDescription, collapseWhitespace(Redact(description)), MaxDescriptionBytes)
}

// buildConsoleSummary renders severity counts and the latest error and warning.
// It looks at every entry, independent of the dump's entry cap.
func buildConsoleSummary(logs []ConsoleEntry) string {
	if len(logs) == 0 {
		return ""
	}
	counts := make(map[ConsoleType]int, 5)
	var lastError, lastWarn string
	for _, entry := range logs {
		t := normalizeConsoleType(entry.Type)
		counts[t]++
		switch t {
		case ConsoleError:
			lastError = entry.Message
		case ConsoleWarn:
			lastWarn = entry.Message
		}
	}
	lines := []string{fmt.Sprintf("**Entries:** %d (errors: %d, warnings: %d, info: %d, debug: %d)",
		len(logs), counts[ConsoleError], counts[ConsoleWarn], counts[ConsoleInfo], counts[ConsoleDebug])}
	if m := summaryMessage(lastError); m != "" {
		lines = append(lines, "**Last Error:** "+m)
	}
	if m := summaryMessage(lastWarn); m != "" {
		lines = append(lines, "**Last Warning:** "+m)
	}
	return "## " + LabelConsoleSummary + sectionSeparator + strings.Join(lines, "\n")
}

func summaryMessage(msg string) string {
	return truncateCharsEllipsis(singleLine(Redact(msg)), MaxSummaryMessageChars)
}

// buildJSError renders the most recent error's message, location and stack.
func buildJSError(e *JSError) string {
	if e == nil {
		return ""
	}
	var source, stack string
	if src := singleLine(Redact(str(e.Source))); src != "" {
		source = fmt.Sprintf("**Source:** %s:%d:%d", src, intOr(e.Line), intOr(e.Column))
	}
	if s := collapseWhitespace(Redact(str(e.Stack))); s != "" {
		stack = "**Stack:**\n" + codeFence("", s)
	}
	content := joinLines(field("Message", str(e.Message)), source, stack)
	return headedSection(LabelJSError, content, MaxJSErrorBytes)
}

func intOr(n *int64) int64 {
	if n == nil {
		return 0
	}
	return *n
}

// buildNetworkSample renders the first request that failed with status >= 400.
func buildNetworkSample(requests []NetworkRequest) string {
	for _, req := range requests {
		if req.Status == nil || *req.Status < 400 {
			continue
		}
		var url, preview string
		if req.URL != nil {
			url = field("URL", StripQueryAndHash(*req.URL))
		}
		if p := collapseWhitespace(Redact(str(req.ResponsePreview))); p != "" {
			preview = "**Response Preview:**\n" + codeFence("", p)
		}
		content := joinLines(
			field("Method", str(req.Method)),
			url,
			"**Status:** "+strconv.Itoa(*req.Status),
			preview,
		)
		return headedSection(LabelNetworkSample, content, MaxNetworkSampleBytes)
	}
	return ""
}

// buildConsoleDump renders the last MaxConsoleEntries entries of every severity, with
// adjacent duplicates collapsed, as a collapsible code block.
func buildConsoleDump(logs []ConsoleEntry) string {
	if len(logs) == 0 {
		return ""
	}
	recent := dedupeAdjacent(logs[max(0, len(logs)-MaxConsoleEntries):])
	lines := make([]string, 0, len(recent))
	for _, entry := range recent {
		lines = append(lines, formatConsoleEntry(entry))
	}
	label := LabelConsoleLogs
	text, cut := tailLines(lines, MaxConsoleDumpBytes)
	if cut {
		label += TruncatedLabelSuffix
	}
	return details(label, codeFence("", text))
}

// tailLines keeps the newest lines that fit in limit bytes. A single oversized line
// is cut on a rune boundary. cut reports whether anything was dropped.
func tailLines(lines []string, limit int) (text string, cut bool) {
	size := len(lines) - 1
	for _, l := range lines {
		size += len(l)
	}
	for len(lines) > 1 && size > limit {
		size -= len(lines[0]) + 1
		lines = lines[1:]
		cut = true
	}
	text = strings.Join(lines, "\n")
	if len(text) > limit {
		text = TruncateBytes(text, limit)
		cut = true
	}
	return text, cut
}

// dedupeAdjacent drops entries identical in type and message to the one before.
func dedupeAdjacent(logs []ConsoleEntry) []ConsoleEntry {
	out := make([]ConsoleEntry, 0, len(logs))
	for i, entry := range logs {
		if i > 0 && entry.Type == logs[i-1].Type && entry.Message == logs[i-1].Message {
			continue
		}
		out = append(out, entry)
	}
	return out
}

func formatConsoleEntry(entry ConsoleEntry) string {
	label := "[" + strings.ToUpper(string(normalizeConsoleType(entry.Type))) + "] "
	msg := collapseWhitespace(Redact(entry.Message))
	if entry.Timestamp == nil {
		return label + msg
	}
	return "[" + formatMillis(*entry.Timestamp) + "] " + label + msg
}

// normalizeConsoleType lowercases a type, defaulting empty ones to log. Unknown
// types are kept, bounded to a short single token.
func normalizeConsoleType(t ConsoleType) ConsoleType {
	s := strings.ToLower(singleLine(string(t)))
	if s == "" {
		return ConsoleLog
	}
	return ConsoleType(truncateChars(strings.ReplaceAll(s, " ", "_"), 16))
}

// buildDOMSnippet renders the noise-stripped outerHTML as collapsible html.
func buildDOMSnippet(html string) string {
	return fencedDetails(LabelDOMSnippet, "html", collapseWhitespace(Redact(StripDOMNoise(html))), MaxDOMSnippetBytes)
}
