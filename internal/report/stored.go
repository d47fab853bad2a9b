package report

// Report is an assembled issue persisted for later filing.
type Report struct {
	// ID is a ULID that uniquely identifies this report
	ID string `json:"id"`

	// Title is the sanitized issue title
	Title string `json:"title"`

	// Body is the assembled Markdown body, screenshot line included
	Body string `json:"body,omitempty"`

	// SizeBytes is the UTF-8 length of Body
	SizeBytes int `json:"size_bytes"`

	// ContextHash is the fingerprint of the raw capture the body was built from
	ContextHash string `json:"context_hash"`

	// SourceURL is the captured page URL with query and fragment removed (nullable)
	SourceURL *string `json:"source_url,omitempty"`

	// Labels are passed to the tracker when the issue is filed (stored as JSON in DB)
	Labels []string `json:"labels,omitempty"`

	// Milestone is the tracker milestone number (nullable)
	Milestone *int `json:"milestone,omitempty"`

	// Sections lists the section labels present in Body, in order (stored as JSON in DB)
	Sections []string `json:"sections,omitempty"`

	// Truncated reports whether any content was cut while assembling Body
	Truncated bool `json:"truncated"`

	// ScreenshotURL is the image attached after assembly (nullable)
	ScreenshotURL *string `json:"screenshot_url,omitempty"`

	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
	DeletedAt *int64 `json:"deleted_at,omitempty"`
}

// Summary is a report's metadata without the body, used by list operations.
type Summary struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	SizeBytes     int      `json:"size_bytes"`
	ContextHash   string   `json:"context_hash"`
	SourceURL     *string  `json:"source_url,omitempty"`
	Labels        []string `json:"labels,omitempty"`
	Milestone     *int     `json:"milestone,omitempty"`
	Sections      []string `json:"sections,omitempty"`
	Truncated     bool     `json:"truncated"`
	HasScreenshot bool     `json:"has_screenshot"`
	CreatedAt     int64    `json:"created_at"`
	UpdatedAt     int64    `json:"updated_at"`
	DeletedAt     *int64   `json:"deleted_at,omitempty"`
}

// ToSummary converts a Report to a Summary by stripping the body.
func (r *Report) ToSummary() Summary {
	return Summary{
		ID:            r.ID,
		Title:         r.Title,
		SizeBytes:     r.SizeBytes,
		ContextHash:   r.ContextHash,
		SourceURL:     r.SourceURL,
		Labels:        r.Labels,
		Milestone:     r.Milestone,
		Sections:      r.Sections,
		Truncated:     r.Truncated,
		HasScreenshot: r.ScreenshotURL != nil,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
		DeletedAt:     r.DeletedAt,
	}
}

// ExportRecord is one line of a JSONL export file. The first line of a file is a
// header with SnagExport set and no report fields.
type ExportRecord struct {
	SnagExport    bool   `json:"_snag_export,omitempty"`
	SchemaVersion string `json:"schema_version,omitempty"`
	ExportedAt    int64  `json:"exported_at,omitempty"`

	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Body          string   `json:"body"`
	SizeBytes     int      `json:"size_bytes"`   // IGNORED on import, recomputed
	ContextHash   string   `json:"context_hash"` // used only when the body has no hash line
	SourceURL     *string  `json:"source_url"`
	Labels        []string `json:"labels"`
	Milestone     *int     `json:"milestone"`
	Sections      []string `json:"sections"`  // IGNORED on import, recomputed
	Truncated     bool     `json:"truncated"` // IGNORED on import, recomputed
	ScreenshotURL *string  `json:"screenshot_url"`
	CreatedAt     int64    `json:"created_at"`
	UpdatedAt     int64    `json:"updated_at"`
	DeletedAt     *int64   `json:"deleted_at"`
}

// ToExportRecord converts a Report to an ExportRecord for export.
func (r *Report) ToExportRecord() *ExportRecord {
	return &ExportRecord{
		ID:            r.ID,
		Title:         r.Title,
		Body:          r.Body,
		SizeBytes:     r.SizeBytes,
		ContextHash:   r.ContextHash,
		SourceURL:     r.SourceURL,
		Labels:        r.Labels,
		Milestone:     r.Milestone,
		Sections:      r.Sections,
		Truncated:     r.Truncated,
		ScreenshotURL: r.ScreenshotURL,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
		DeletedAt:     r.DeletedAt,
	}
}

// ToReport converts an ExportRecord to a Report, recomputing fields derived from
// the body.
func (e *ExportRecord) ToReport() *Report {
	r := &Report{
		ID:            e.ID,
		Title:         SanitizeTitle(e.Title),
		Body:          e.Body,
		SizeBytes:     len(e.Body),
		ContextHash:   e.ContextHash,
		SourceURL:     e.SourceURL,
		Labels:        e.Labels,
		Milestone:     e.Milestone,
		Sections:      OutlineLabels(e.Body),
		Truncated:     IsTruncated(e.Body),
		ScreenshotURL: e.ScreenshotURL,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
		DeletedAt:     e.DeletedAt,
	}
	if h, ok := HashFromBody(e.Body); ok {
		r.ContextHash = h
	}
	return r
}
