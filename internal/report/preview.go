package report

import (
	"fmt"
	"regexp"
	"strings"
)

const previewSelectionChars = 200

// Preview summarizes what a capture contains, for showing the reporter before the
// issue is filed. Values are redacted like the body.
func Preview(ctx CapturedContext) string {
	var parts []string

	if d := singleLine(Redact(str(ctx.ElementDescription))); d != "" {
		parts = append(parts, "Selected: "+d)
	}
	if ctx.URL != nil {
		parts = append(parts, Redact(StripQueryAndHash(*ctx.URL)))
	}
	if s := singleLine(Redact(str(ctx.SelectedText))); s != "" {
		parts = append(parts, "Selection: "+truncateCharsEllipsis(s, previewSelectionChars))
	}
	if strings.TrimSpace(str(ctx.HTMLSnippet)) != "" {
		parts = append(parts, "HTML snippet captured.")
	}
	if strings.TrimSpace(str(ctx.ScriptSnippet)) != "" {
		parts = append(parts, "JS snippet captured.")
	}
	if ctx.JSError != nil {
		parts = append(parts, "Last error: "+summaryMessage(str(ctx.JSError.Message)))
	}
	if n := len(ctx.ConsoleLogs); n > 0 {
		parts = append(parts, fmt.Sprintf("%d console log(s) captured.", n))
	}
	if len(parts) == 0 {
		return "Nothing captured."
	}
	return strings.Join(parts, "\n")
}

// screenshotLineRegex matches a screenshot line previously added to the end of a body
var screenshotLineRegex = regexp.MustCompile(`\n*!\[Screenshot\]\([^\n]*\)\s*$`)

var markdownURLEscaper = strings.NewReplacer(" ", "%20", "(", "%28", ")", "%29", "\n", "", "\r", "")

// AppendScreenshot adds a Markdown image line for an uploaded screenshot after an
// assembled body, replacing any screenshot line already there.
func AppendScreenshot(body, imageURL string) string {
	body = StripScreenshot(body)
	imageURL = markdownURLEscaper.Replace(strings.TrimSpace(imageURL))
	if imageURL == "" {
		return body
	}
	return appendSection(body, "![Screenshot]("+imageURL+")")
}

// StripScreenshot removes a trailing screenshot line added by AppendScreenshot.
func StripScreenshot(body string) string {
	return screenshotLineRegex.ReplaceAllString(body, "")
}
