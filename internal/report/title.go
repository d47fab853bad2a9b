package report

import (
	"regexp"
	"strings"
)

var (
	// newlineRegex matches runs of CR/LF
	newlineRegex = regexp.MustCompile(`[\r\n]+`)

	// emojiRegex covers the pictograph planes, misc symbols and dingbats, plus the
	// variation selector and zero-width joiner that glue emoji sequences together.
	emojiRegex = regexp.MustCompile(`[\x{1F000}-\x{1FAFF}\x{2600}-\x{27BF}\x{FE0F}\x{200D}]`)
)

// SanitizeTitle produces a single-line title of at most MaxTitleChars runes with
// emoji removed. Empty results fall back to FallbackTitle.
func SanitizeTitle(raw string) string {
	s := clean(raw)
	s = newlineRegex.ReplaceAllString(s, " ")
	s = emojiRegex.ReplaceAllString(s, "")
	s = singleLine(s)
	if CountChars(s) > MaxTitleChars {
		s = strings.TrimSpace(truncateChars(s, MaxTitleChars))
	}
	if s == "" {
		return FallbackTitle
	}
	return s
}

// chooseTitle sanitizes the reporter's title when one was given, else the page
// title. A given title that sanitizes to nothing yields FallbackTitle.
func chooseTitle(ctx CapturedContext, in UserInput) string {
	raw := str(in.Title)
	if raw == "" {
		raw = str(ctx.Title)
	}
	return SanitizeTitle(raw)
}
