package report

// Size limits. Byte limits are measured on the UTF-8 encoding, character limits in
// runes.
const (
	// MaxBodyBytes is the ceiling for the whole body, a safety margin under
	// TrackerHardLimitBytes.
	MaxBodyBytes = 40 * 1024

	// TrackerHardLimitBytes is the destination tracker's own body limit.
	TrackerHardLimitBytes = 65 * 1024

	MaxTitleChars          = 80
	MaxHeaderChars         = 300
	MaxDescriptionBytes    = 2 * 1024
	MaxJSErrorBytes        = 2 * 1024
	MaxConsoleDumpBytes    = 3 * 1024
	MaxConsoleEntries      = 20
	MaxNetworkSampleBytes  = 512
	MaxDOMSnippetBytes     = 1024
	MaxSelectedTextChars   = 180
	MaxSummaryMessageChars = 200
)

// Markers and fixed strings that appear in assembled bodies.
const (
	// FallbackTitle is used when no usable title survives sanitization.
	FallbackTitle = "Issue Report"

	// TruncatedMarker is appended when the body had to be cut at the global ceiling.
	TruncatedMarker = "[…] truncated"

	// TruncatedLabelSuffix is appended to a section label whose content was cut.
	TruncatedLabelSuffix = " (truncated)"

	// HashLinePrefix starts the trailing content hash line.
	HashLinePrefix = "Context-Hash: "

	sectionSeparator = "\n\n"
	ellipsis         = "…"
)
