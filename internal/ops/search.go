package ops

import (
	"context"
	"database/sql"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/hpungsan/snag/internal/db"
	"github.com/hpungsan/snag/internal/errors"
	"github.com/hpungsan/snag/internal/report"
)

// Search limits
const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
	MaxQueryLength     = db.MaxSearchQueryChars
	MaxSnippetChars    = 300
)

// SearchInput contains parameters for the Search operation.
type SearchInput struct {
	Query  string // required
	Limit  int    // default: 20, max: 100
	Offset int    // default: 0
}

// SearchResultItem wraps a Summary with a match snippet.
type SearchResultItem struct {
	report.Summary
	// Snippet is HTML-safe: report content is escaped; only <b>...</b>
	// highlight tags are present.
	Snippet string `json:"snippet"`
}

// SearchOutput contains the result of the Search operation.
type SearchOutput struct {
	Items      []SearchResultItem `json:"items"`
	Pagination Pagination         `json:"pagination"`
	Sort       string             `json:"sort"` // "relevance"
}

// Search performs full-text search over active report titles and bodies. Every
// whitespace-separated term must match; title matches rank higher.
func Search(ctx context.Context, database *sql.DB, input SearchInput) (*SearchOutput, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, errors.NewInvalidRequest("query is required")
	}
	if utf8.RuneCountInString(query) > MaxQueryLength {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("query exceeds maximum length of %d characters", MaxQueryLength))
	}

	limit, offset := page(input.Limit, input.Offset, DefaultSearchLimit, MaxSearchLimit)

	results, total, err := db.SearchFullText(ctx, database, ftsQuery(query), limit, offset)
	if err != nil {
		return nil, err
	}

	items := make([]SearchResultItem, len(results))
	for i, r := range results {
		items[i] = SearchResultItem{
			Summary: r.Summary,
			Snippet: truncateSnippet(escapeSnippetHTML(r.Snippet), MaxSnippetChars),
		}
	}

	return &SearchOutput{
		Items:      items,
		Pagination: newPagination(limit, offset, len(items), total),
		Sort:       "relevance",
	}, nil
}

// ftsQuery quotes each term as an FTS5 string so user input cannot use query
// syntax. Terms are implicitly ANDed; a trailing * keeps prefix matching.
func ftsQuery(query string) string {
	terms := strings.Fields(query)
	for i, t := range terms {
		prefix := ""
		if len(t) > 1 && strings.HasSuffix(t, "*") {
			t, prefix = strings.TrimSuffix(t, "*"), "*"
		}
		terms[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"` + prefix
	}
	return strings.Join(terms, " ")
}

// truncateSnippet cuts an escaped snippet to about maxBytes, on a rune boundary and
// preferably a word boundary. Partial tags and entities at the cut are dropped and
// open <b> tags are closed.
func truncateSnippet(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	cut := max(maxBytes, 0)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	out := s[:cut]

	if i := strings.LastIndexByte(out, '<'); i >= 0 && !strings.Contains(out[i:], ">") {
		out = out[:i]
	}
	if i := strings.LastIndexByte(out, '&'); i >= 0 && !strings.Contains(out[i:], ";") {
		out = out[:i]
	}
	if i := strings.LastIndexByte(out, ' '); i > cut/2 {
		out = out[:i]
	}

	for range strings.Count(out, "<b>") - strings.Count(out, "</b>") {
		out += "</b>"
	}
	return out + "..."
}

// snippetMarks turns the FTS highlight markers from db.SearchFullText into <b> tags
// after everything else has been escaped.
var snippetMarks = strings.NewReplacer("[[[B]]]", "<b>", "[[[/B]]]", "</b>")

// escapeSnippetHTML escapes report content in a snippet. The highlight markers are
// plain ASCII that html.EscapeString leaves alone, so they survive escaping and are
// the only source of tags in the result.
func escapeSnippetHTML(s string) string {
	return snippetMarks.Replace(html.EscapeString(s))
}
