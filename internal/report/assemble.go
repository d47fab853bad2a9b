package report

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
)

// BuildSanitizedIssue assembles the issue title and body for a capture.
//
// Mandatory sections (header, element context, description) are always included.
// Optional sections are tried in priority order and each is either included whole
// or skipped, so the body never exceeds MaxBodyBytes. If mandatory content alone
// is too large, the body is cut and ends with TruncatedMarker. The last line is
// always the Context-Hash of the raw capture.
func BuildSanitizedIssue(ctx CapturedContext, in UserInput) SanitizedIssue {
	hashLine := HashLinePrefix + ContextHash(ctx)
	budget := MaxBodyBytes - len(sectionSeparator) - len(hashLine)

	var body string
	for _, section := range []string{
		buildHeader(ctx),
		buildElementContext(ctx),
		buildDescription(str(in.Description)),
	} {
		body = appendSection(body, section)
	}

	// Richest signal first, heaviest last.
	for _, section := range []string{
		buildConsoleSummary(ctx.ConsoleLogs),
		buildJSError(ctx.JSError),
		buildNetworkSample(ctx.NetworkRequests),
		buildConsoleDump(ctx.ConsoleLogs),
		buildDOMSnippet(str(ctx.HTMLSnippet)),
	} {
		if section == "" {
			continue
		}
		if candidate := appendSection(body, section); len(candidate) <= budget {
			body = candidate
		}
	}

	if len(body) > budget {
		marker := sectionSeparator + TruncatedMarker
		body = truncateBlock(body, budget-len(marker)) + marker
	}
	body = appendSection(body, hashLine)

	return SanitizedIssue{
		Title:     chooseTitle(ctx, in),
		Body:      body,
		SizeBytes: len(body),
	}
}

// appendSection joins section onto body with a blank line. Empty sections are
// dropped.
func appendSection(body, section string) string {
	switch {
	case section == "":
		return body
	case body == "":
		return section
	default:
		return body + sectionSeparator + section
	}
}

// ContextHash fingerprints the raw capture (URL, timestamp, user agent, HTML snippet,
// CSS selector) with DJB2 over UTF-16 code units, as 8 lowercase hex digits. Values
// are hashed before redaction so the hash identifies the capture itself.
func ContextHash(ctx CapturedContext) string {
	var timestamp string
	if ctx.Timestamp != nil && *ctx.Timestamp != 0 {
		timestamp = strconv.FormatInt(*ctx.Timestamp, 10)
	}
	combined := strings.Join([]string{
		str(ctx.URL),
		timestamp,
		str(ctx.UserAgent),
		str(ctx.HTMLSnippet),
		str(ctx.CSSSelector),
	}, "|")

	var hash uint32 = 5381
	for _, unit := range utf16.Encode([]rune(combined)) {
		hash = hash<<5 + hash + uint32(unit)
	}
	return fmt.Sprintf("%08x", hash)
}

// HashFromBody extracts the Context-Hash value from an assembled body.
func HashFromBody(body string) (string, bool) {
	i := strings.LastIndex(body, HashLinePrefix)
	if i < 0 {
		return "", false
	}
	rest := body[i+len(HashLinePrefix):]
	if j := strings.IndexByte(rest, '\n'); j >= 0 {
		rest = rest[:j]
	}
	if len(rest) != 8 {
		return "", false
	}
	return rest, true
}

// IsTruncated reports whether an assembled body lost information, either through
// the global cut or a truncated section.
func IsTruncated(body string) bool {
	return strings.Contains(body, TruncatedMarker) ||
		strings.Contains(body, TruncatedLabelSuffix+"</summary>")
}
