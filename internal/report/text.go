package report

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// trailingSpaceRegex matches spaces/tabs at the end of a line
	trailingSpaceRegex = regexp.MustCompile(`[ \t]+\n`)

	// spaceRunRegex matches runs of spaces and tabs
	spaceRunRegex = regexp.MustCompile(`[ \t]+`)

	// blankRunRegex matches three or more consecutive newlines
	blankRunRegex = regexp.MustCompile(`\n{3,}`)

	// whitespaceRegex matches any whitespace run, newlines included
	whitespaceRegex = regexp.MustCompile(`\s+`)

	// fencePattern matches fenced code block delimiters at the start of a line,
	// allowing 0-3 spaces of indentation per CommonMark.
	fencePattern = regexp.MustCompile("(?m)^[ ]{0,3}(`{3,}|~{3,})")

	// backtickRunRegex matches runs of backticks
	backtickRunRegex = regexp.MustCompile("`+")
)

// clean drops invalid UTF-8 so byte-budget cuts always land on real runes.
func clean(s string) string {
	return strings.ToValidUTF8(s, "")
}

// collapseWhitespace normalizes line endings, squeezes runs of spaces/tabs to one
// space, caps blank runs at one empty line and trims the result.
func collapseWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = trailingSpaceRegex.ReplaceAllString(s, "\n")
	s = spaceRunRegex.ReplaceAllString(s, " ")
	s = blankRunRegex.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// singleLine folds all whitespace, newlines included, into single spaces.
func singleLine(s string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}

// CountChars returns the character count as runes (not bytes).
func CountChars(s string) int {
	return utf8.RuneCountInString(s)
}

// TruncateBytes cuts s to at most maxBytes bytes without splitting a multi-byte
// rune. Truncating an already short string is a no-op.
func TruncateBytes(s string, maxBytes int) string {
	if maxBytes <= 0 {
		return ""
	}
	if len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// truncateChars cuts s to at most n runes.
func truncateChars(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// truncateCharsEllipsis cuts s to n runes, the last of which becomes an ellipsis
// when anything was dropped.
func truncateCharsEllipsis(s string, n int) string {
	if CountChars(s) <= n {
		return s
	}
	return strings.TrimRight(truncateChars(s, n-1), " ") + ellipsis
}

// truncateBlock cuts content to limit bytes. If the cut leaves a code fence
// open, the fence is closed inside the same budget.
func truncateBlock(content string, limit int) string {
	cut := TruncateBytes(content, limit)
	if openFence(cut) == "" {
		return cut
	}
	reserve := 1 + longestFence(content)
	cut = TruncateBytes(content, limit-reserve)
	if f := openFence(cut); f != "" {
		cut += "\n" + f
	}
	return cut
}

// openFence returns the delimiter of a fenced block left unclosed in text, or "".
// A closing fence must use the same character and be at least as long.
func openFence(text string) string {
	var open string
	for _, m := range fencePattern.FindAllStringSubmatch(text, -1) {
		f := m[1]
		switch {
		case open == "":
			open = f
		case f[0] == open[0] && len(f) >= len(open):
			open = ""
		}
	}
	return open
}

// longestFence returns the length of the longest fence delimiter in text.
func longestFence(text string) int {
	longest := 0
	for _, m := range fencePattern.FindAllStringSubmatch(text, -1) {
		longest = max(longest, len(m[1]))
	}
	return longest
}

// codeFence wraps content in a backtick fence longer than any backtick run inside
// it, so captured text cannot close the block early.
func codeFence(lang, content string) string {
	fence := strings.Repeat("`", max(3, longestBacktickRun(content)+1))
	return fence + lang + "\n" + content + "\n" + fence
}

// inlineCode renders s as a Markdown code span.
func inlineCode(s string) string {
	n := longestBacktickRun(s)
	delim := strings.Repeat("`", n+1)
	if n > 0 {
		return delim + " " + s + " " + delim
	}
	return delim + s + delim
}

func longestBacktickRun(s string) int {
	longest := 0
	for _, run := range backtickRunRegex.FindAllString(s, -1) {
		longest = max(longest, len(run))
	}
	return longest
}

// StripQueryAndHash reduces a URL to origin and path. Strings that do not parse as
// absolute URLs are cut at the first '?' or '#'.
func StripQueryAndHash(raw string) string {
	raw = strings.TrimSpace(raw)
	if u, err := url.Parse(raw); err == nil && u.Scheme != "" && u.Host != "" {
		return u.Scheme + "://" + u.Host + u.EscapedPath()
	}
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		return raw[:i]
	}
	return raw
}

// details wraps content in a collapsible block with the given summary label.
func details(label, content string) string {
	return "<details>\n<summary>" + label + "</summary>\n\n" + content + "\n</details>"
}
