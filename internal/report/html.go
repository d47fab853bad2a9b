package report

import (
	"regexp"
	"strings"
)

// The DOM snippet ends up inside a fenced code block that the tracker sanitizes
// again before rendering. These patterns only strip noise and values that change on
// every page load; they are not an XSS filter.
var (
	// scriptBlockRegex and styleBlockRegex match closed elements with their content
	scriptBlockRegex = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)
	styleBlockRegex  = regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style\s*>`)

	// selfClosingRegex matches <script .../> and <style .../>
	selfClosingRegex = regexp.MustCompile(`(?is)<(?:script|style)\b[^>]*/>`)

	// danglingRegex matches an unclosed script/style element through end of input
	danglingRegex = regexp.MustCompile(`(?is)<(?:script|style)\b.*$`)

	// tagRegex matches a start tag, allowing '>' inside quoted attribute values
	tagRegex = regexp.MustCompile(`<[A-Za-z][^<>"']*(?:(?:"[^"]*"|'[^']*')[^<>"']*)*>`)

	// eventHandlerAttrRegex matches on* attributes with quoted, unquoted or no value.
	// The trailing group keeps the delimiter that follows the attribute.
	eventHandlerAttrRegex = attrRegex(`on[a-z0-9_:-]+`)

	// volatileAttrRegex matches attributes whose values differ per page load
	volatileAttrRegex = attrRegex(strings.Join(volatileAttrs, "|"))
)

// volatileAttrs are removed so snippets captured on different loads hash alike.
var volatileAttrs = []string{"nonce", "integrity", "crossorigin"}

func attrRegex(names string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\s+(?:` + names + `)(?:\s*=\s*(?:"[^"]*"|'[^']*'|[^\s"'=<>` + "`" + `]+))?(\s|/?>)`)
}

// StripDOMNoise removes script and style elements, inline event handlers and
// volatile attributes from an HTML fragment. Text content is left untouched.
func StripDOMNoise(html string) string {
	s := clean(html)
	s = scriptBlockRegex.ReplaceAllString(s, "")
	s = styleBlockRegex.ReplaceAllString(s, "")
	s = selfClosingRegex.ReplaceAllString(s, "")
	s = danglingRegex.ReplaceAllString(s, "")
	return tagRegex.ReplaceAllStringFunc(s, func(tag string) string {
		tag = stripAttrs(tag, eventHandlerAttrRegex)
		return stripAttrs(tag, volatileAttrRegex)
	})
}

// stripAttrs removes matching attributes from a single tag. Adjacent matches share
// the whitespace between them, so it repeats until nothing changes.
func stripAttrs(tag string, re *regexp.Regexp) string {
	for {
		next := re.ReplaceAllString(tag, "$1")
		if next == tag {
			return tag
		}
		tag = next
	}
}
