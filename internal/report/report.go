// Package report turns a captured page context plus the reporter's free text into a
// bounded, redacted Markdown issue body.
//
// Everything in this package is a pure function of its arguments. Nothing here
// performs I/O, keeps state between calls, or returns an error: malformed or missing
// input degrades to omitted sections, and information loss is signalled in-band via
// "(truncated)" labels and the TruncatedMarker.
package report

// ConsoleType is the severity of a captured console entry.
type ConsoleType string

const (
	ConsoleLog   ConsoleType = "log"
	ConsoleInfo  ConsoleType = "info"
	ConsoleDebug ConsoleType = "debug"
	ConsoleWarn  ConsoleType = "warn"
	ConsoleError ConsoleType = "error"
)

// CapturedContext is a snapshot of page and browser state taken when the user starts
// an issue report. Every field is optional; nil means "not captured".
type CapturedContext struct {
	// URL is the page address, possibly carrying a query string and fragment
	URL *string `json:"url,omitempty"`

	// Title is the document title, used as the issue title fallback
	Title *string `json:"title,omitempty"`

	// UserAgent is the browser user agent string
	UserAgent *string `json:"user_agent,omitempty"`

	// Viewport is the window size, e.g. "1920x1080"
	Viewport *string `json:"viewport,omitempty"`

	// SelectedText is the text the user highlighted
	SelectedText *string `json:"selected_text,omitempty"`

	// HTMLSnippet is the outerHTML of the anchor element
	HTMLSnippet *string `json:"html_snippet,omitempty"`

	// ScriptSnippet is the text of the nearest script element (captured, not rendered)
	ScriptSnippet *string `json:"script_snippet,omitempty"`

	// CSSSelector locates the anchor element
	CSSSelector *string `json:"css_selector,omitempty"`

	// ElementDescription is a short tag#id.class - "text" description
	ElementDescription *string `json:"element_description,omitempty"`

	// JSError is the single most recent uncaught error
	JSError *JSError `json:"js_error,omitempty"`

	// ConsoleLogs are console entries in capture order, capped upstream
	ConsoleLogs []ConsoleEntry `json:"console_logs,omitempty"`

	// NetworkRequests are observed requests in capture order
	NetworkRequests []NetworkRequest `json:"network_requests,omitempty"`

	// Timestamp is the capture time in epoch milliseconds
	Timestamp *int64 `json:"timestamp,omitempty"`
}

// JSError is the most recent JavaScript error seen on the page.
type JSError struct {
	Message   *string `json:"message,omitempty"`
	Source    *string `json:"source,omitempty"`
	Line      *int64  `json:"line,omitempty"`
	Column    *int64  `json:"column,omitempty"`
	Stack     *string `json:"stack,omitempty"`
	Timestamp *int64  `json:"timestamp,omitempty"`
}

// ConsoleEntry is one captured console call.
type ConsoleEntry struct {
	Type      ConsoleType `json:"type"`
	Message   string      `json:"message"`
	Timestamp *int64      `json:"timestamp,omitempty"` // epoch millis
}

// NetworkRequest is one observed request/response pair.
type NetworkRequest struct {
	Method          *string `json:"method,omitempty"`
	URL             *string `json:"url,omitempty"`
	Status          *int    `json:"status,omitempty"`
	ResponsePreview *string `json:"response_preview,omitempty"`
}

// UserInput is the free text supplied by the person filing the issue.
type UserInput struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

// SanitizedIssue is the assembled result. SizeBytes is the UTF-8 length of Body.
type SanitizedIssue struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	SizeBytes int    `json:"size_bytes"`
}

// str dereferences an optional string, treating nil as empty.
func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
