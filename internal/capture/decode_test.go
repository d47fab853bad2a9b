package capture

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/snag/internal/errors"
	"github.com/hpungsan/snag/internal/report"
)

func TestDecode_WrapperJSON(t *testing.T) {
	data := []byte(`{
		"context": {
			"url": "https://example.com/page?x=1",
			"title": "Page",
			"userAgent": "Mozilla/5.0",
			"viewport": "1920x1080",
			"selectedText": "hello",
			"htmlSnippet": "<div>hi</div>",
			"scriptSnippet": "go()",
			"cssSelector": "#main",
			"elementDescription": "div#main",
			"jsError": {"message": "x is not defined", "source": "app.js", "line": 10, "column": 3, "stack": "..."},
			"consoleLogs": [
				{"type": "warn", "message": "careful", "timestamp": 1700000000001},
				{"type": "error", "message": "boom"}
			],
			"networkRequests": [{"method": "GET", "url": "/api", "status": 500, "responsePreview": "oops"}],
			"timestamp": 1700000000000
		},
		"input": {"title": "Broken", "description": "it's broken"},
		"labels": ["bug", " ui "],
		"milestone": 4,
		"screenshot_url": "https://img.example.com/a.png"
	}`)

	doc, err := Decode(data, FormatAuto)
	require.NoError(t, err)

	c := doc.Context
	require.Equal(t, "https://example.com/page?x=1", *c.URL)
	require.Equal(t, "Mozilla/5.0", *c.UserAgent)
	require.Equal(t, "1920x1080", *c.Viewport)
	require.Equal(t, "go()", *c.ScriptSnippet)
	require.Equal(t, int64(1700000000000), *c.Timestamp)
	require.Equal(t, "x is not defined", *c.JSError.Message)
	require.Equal(t, int64(10), *c.JSError.Line)
	require.Equal(t, int64(3), *c.JSError.Column)
	require.Len(t, c.ConsoleLogs, 2)
	require.Equal(t, report.ConsoleWarn, c.ConsoleLogs[0].Type)
	require.Equal(t, int64(1700000000001), *c.ConsoleLogs[0].Timestamp)
	require.Nil(t, c.ConsoleLogs[1].Timestamp)
	require.Equal(t, 500, *c.NetworkRequests[0].Status)
	require.Equal(t, "oops", *c.NetworkRequests[0].ResponsePreview)

	require.Equal(t, "Broken", *doc.Input.Title)
	require.Equal(t, "it's broken", *doc.Input.Description)
	require.Equal(t, []string{"bug", "ui"}, doc.Labels)
	require.Equal(t, 4, *doc.Milestone)
	require.Equal(t, "https://img.example.com/a.png", *doc.ScreenshotURL)
}

func TestDecode_BareContextSnakeCase(t *testing.T) {
	doc, err := Decode([]byte(`{"user_agent": "curl", "css_selector": ".btn", "js_error": {"message": "m", "lineno": "7", "colno": 2.0}}`), FormatJSON)
	require.NoError(t, err)

	require.Equal(t, "curl", *doc.Context.UserAgent)
	require.Equal(t, ".btn", *doc.Context.CSSSelector)
	require.Equal(t, int64(7), *doc.Context.JSError.Line)
	require.Equal(t, int64(2), *doc.Context.JSError.Column)
	require.Nil(t, doc.Input.Description)
	require.Empty(t, doc.Labels)
}

func TestDecode_YAML(t *testing.T) {
	data := []byte(`
context:
  url: https://example.com/a
  viewport:
    width: 800
    height: 600
  consoleLogs:
    - type: ERROR
      message: failed
    - message:
        code: 42
    - just a string
  timestamp: "1700000000000"
input:
  description: |
    line one
    line two
labels: bug, regression
`)
	doc, err := Decode(data, FormatAuto)
	require.NoError(t, err)

	require.Equal(t, "https://example.com/a", *doc.Context.URL)
	require.Equal(t, "800x600", *doc.Context.Viewport)
	require.Equal(t, int64(1700000000000), *doc.Context.Timestamp)
	require.Len(t, doc.Context.ConsoleLogs, 2, "non-object entries are ignored")
	require.Equal(t, report.ConsoleError, doc.Context.ConsoleLogs[0].Type)
	require.Equal(t, report.ConsoleLog, doc.Context.ConsoleLogs[1].Type)
	require.Equal(t, `{"code":42}`, doc.Context.ConsoleLogs[1].Message)
	require.Equal(t, "line one\nline two\n", *doc.Input.Description)
	require.Equal(t, []string{"bug", "regression"}, doc.Labels)
}

func TestDecode_Coercion(t *testing.T) {
	doc, err := Decode([]byte(`{
		"url": 42,
		"title": {"nested": true},
		"timestamp": "soon",
		"jsError": "Uncaught TypeError",
		"consoleLogs": "not a list",
		"networkRequests": [{"status": "404"}, 7]
	}`), FormatJSON)
	require.NoError(t, err)

	c := doc.Context
	require.Equal(t, "42", *c.URL)
	require.Nil(t, c.Title)
	require.Nil(t, c.Timestamp)
	require.Equal(t, "Uncaught TypeError", *c.JSError.Message)
	require.Nil(t, c.ConsoleLogs)
	require.Len(t, c.NetworkRequests, 1)
	require.Equal(t, 404, *c.NetworkRequests[0].Status)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format Format
	}{
		{name: "empty", data: "   ", format: FormatAuto},
		{name: "bad json", data: `{"url": `, format: FormatAuto},
		{name: "bad yaml", data: "a: [1, 2", format: FormatYAML},
		{name: "array root", data: `[1, 2]`, format: FormatJSON},
		{name: "scalar root", data: `hello`, format: FormatYAML},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data), tt.format)
			require.Error(t, err)
			require.True(t, errors.Is(err, errors.ErrInvalidRequest), "got %v", err)
		})
	}
}

func TestDecode_NullIsEmpty(t *testing.T) {
	doc, err := Decode([]byte("null"), FormatJSON)
	require.NoError(t, err)
	require.Equal(t, &Document{}, doc)
}

func TestFromValue_TypedSlices(t *testing.T) {
	doc, err := FromValue(map[string]any{
		"input":  map[string]any{"title": "Labels from Go"},
		"labels": []string{"bug", " ui ", ""},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"bug", "ui"}, doc.Labels)

	doc, err = FromValue(map[string]any{
		"context": map[string]any{"url": "https://example.com"},
		"labels":  []any{"bug", 7, map[string]any{"x": 1}},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"bug", "7"}, doc.Labels)
}

func TestDecode_FeedsBuilder(t *testing.T) {
	doc, err := Decode([]byte(`{"input": {"description": "it's broken"}}`), FormatJSON)
	require.NoError(t, err)

	issue := report.BuildSanitizedIssue(doc.Context, doc.Input)
	require.Equal(t, "## Description\n\nit's broken\n\nContext-Hash: 7ca32e75", issue.Body)
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatAuto, "auto": FormatAuto, "JSON": FormatJSON, "yml": FormatYAML, "yaml": FormatYAML} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
	_, err := ParseFormat("xml")
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}
