package mcp

import "github.com/mark3labs/mcp-go/mcp"

const captureDescription = "Capture document as an object: either {context, input, labels, milestone, screenshot_url} " +
	"or a bare context object (url, title, userAgent, viewport, selectedText, htmlSnippet, scriptSnippet, " +
	"cssSelector, elementDescription, jsError, consoleLogs, networkRequests, timestamp)"

const documentDescription = "Capture document as JSON or YAML text. Used when capture is not given"

var buildToolDef = mcp.NewTool("report_build",
	mcp.WithDescription("Assemble a sanitized issue from a page capture and store it as a report. "+
		"Secrets are redacted, the body is kept under the tracker limit, and the last line carries the capture's Context-Hash."),
	mcp.WithObject("capture", mcp.Description(captureDescription)),
	mcp.WithString("document", mcp.Description(documentDescription)),
	mcp.WithString("format", mcp.Description("Format of document"), mcp.Enum("json", "yaml")),
	mcp.WithString("mode",
		mcp.Description("What to do when a report with the same context hash exists (default from config, else allow)"),
		mcp.Enum("allow", "error")),
)

var previewToolDef = mcp.NewTool("report_preview",
	mcp.WithDescription("Assemble a sanitized issue without storing it. Returns the title, body, outline and a short summary of what was captured."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithObject("capture", mcp.Description(captureDescription)),
	mcp.WithString("document", mcp.Description(documentDescription)),
	mcp.WithString("format", mcp.Description("Format of document"), mcp.Enum("json", "yaml")),
)

var fetchToolDef = mcp.NewTool("report_fetch",
	mcp.WithDescription("Fetch a stored report by ID, with its section outline."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("id", mcp.Required(), mcp.Description("Report ID (ULID)")),
	mcp.WithBoolean("include_deleted", mcp.Description("Return soft-deleted reports too")),
	mcp.WithBoolean("include_body", mcp.Description("Include the body (default true)")),
)

var listToolDef = mcp.NewTool("report_list",
	mcp.WithDescription("List stored reports, newest first. Bodies are not included."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("label", mcp.Description("Only reports carrying this label")),
	mcp.WithNumber("limit", mcp.Description("Page size (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Items to skip")),
	mcp.WithBoolean("include_deleted", mcp.Description("Include soft-deleted reports")),
)

var duplicatesToolDef = mcp.NewTool("report_duplicates",
	mcp.WithDescription("List active reports of the same capture, oldest first. Give a context hash or a report ID."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("hash", mcp.Description("8 hex digit context hash")),
	mcp.WithString("id", mcp.Description("Report ID whose context hash to look up")),
)

var attachToolDef = mcp.NewTool("report_attach_screenshot",
	mcp.WithDescription("Add a screenshot image line to the end of a report body. Attaching again replaces the previous line."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Report ID")),
	mcp.WithString("url", mcp.Required(), mcp.Description("Absolute http or https URL of the uploaded image")),
)

var deleteToolDef = mcp.NewTool("report_delete",
	mcp.WithDescription("Soft-delete a report. It stays fetchable with include_deleted until purged."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Report ID")),
)

var purgeToolDef = mcp.NewTool("report_purge",
	mcp.WithDescription("Permanently delete soft-deleted reports."),
	mcp.WithDestructiveHintAnnotation(true),
	mcp.WithNumber("older_than_days", mcp.Description("Only purge reports deleted more than N days ago")),
)

var searchToolDef = mcp.NewTool("report_search",
	mcp.WithDescription("Full-text search over report titles and bodies. Terms are matched literally and all must appear; "+
		"a trailing * makes a term a prefix match. Title matches rank first."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("query", mcp.Required(), mcp.Description("Search terms (max 500 characters)")),
	mcp.WithNumber("limit", mcp.Description("Page size (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Items to skip")),
)

var exportToolDef = mcp.NewTool("report_export",
	mcp.WithDescription("Export reports to a JSONL file. The default path is under ~/.snag/exports."),
	mcp.WithString("path", mcp.Description("Destination .jsonl file")),
	mcp.WithString("label", mcp.Description("Only reports carrying this label")),
	mcp.WithBoolean("include_deleted", mcp.Description("Include soft-deleted reports")),
)

var importToolDef = mcp.NewTool("report_import",
	mcp.WithDescription("Import reports from a JSONL export file."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Source .jsonl file")),
	mcp.WithString("mode",
		mcp.Description("On ID collision: error aborts the whole import, replace overwrites, rename assigns a new ID (default error)"),
		mcp.Enum("error", "replace", "rename")),
)
