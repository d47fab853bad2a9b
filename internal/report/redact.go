package report

import "regexp"

// Redaction placeholders.
const (
	RedactedEmail = "[redacted-email]"
	RedactedJWT   = "[redacted-jwt]"
	RedactedToken = "[redacted-token]"
	RedactedQuery = "?[redacted-query]"
	RedactedValue = "[redacted]"
)

// redactionRule replaces every match of pattern with replacement.
// replacement may reference capture groups.
type redactionRule struct {
	name        string
	pattern     *regexp.Regexp
	replacement string
}

// redactionRules run in order. Each placeholder is shaped so that no rule matches
// it in a way that changes it, which keeps Redact idempotent.
var redactionRules = []redactionRule{
	{
		name:        "email",
		pattern:     regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
		replacement: RedactedEmail,
	},
	{
		name:        "jwt",
		pattern:     regexp.MustCompile(`\beyJ[A-Za-z0-9_-]+\.eyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\b`),
		replacement: RedactedJWT,
	},
	{
		// Long hex strings (32-64 chars): API keys, session ids, digests
		name:        "hex_token",
		pattern:     regexp.MustCompile(`\b[A-Fa-f0-9]{32,64}\b`),
		replacement: RedactedToken,
	},
	{
		name:        "url_query",
		pattern:     regexp.MustCompile(`\?[^#\s]+`),
		replacement: RedactedQuery,
	},
	{
		name:        "authorization",
		pattern:     regexp.MustCompile(`(?i)(authorization:[ \t]*)[^\r\n]+`),
		replacement: "${1}" + RedactedValue,
	},
}

// Redact masks emails, JWTs, long hex tokens, URL query strings and Authorization
// header values. It is best-effort pattern matching, not a security boundary.
// Redact(Redact(s)) == Redact(s) for every s.
func Redact(text string) string {
	if text == "" {
		return ""
	}
	result := clean(text)
	for _, rule := range redactionRules {
		result = rule.pattern.ReplaceAllString(result, rule.replacement)
	}
	return result
}
