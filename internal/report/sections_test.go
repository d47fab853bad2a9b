package report

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildHeader(t *testing.T) {
	ctx := CapturedContext{
		URL:       ptr("https://example.com/page?session=1#x"),
		Timestamp: ptr(int64(1700000000000)),
		UserAgent: ptr("Mozilla/5.0"),
		Viewport:  ptr("1920x1080"),
	}
	want := "**URL:** https://example.com/page\n" +
		"**Timestamp:** 2023-11-14T22:13:20.000Z\n" +
		"**User Agent:** Mozilla/5.0\n" +
		"**Viewport:** 1920x1080"
	require.Equal(t, want, buildHeader(ctx))
}

func TestBuildHeader_Empty(t *testing.T) {
	require.Empty(t, buildHeader(CapturedContext{}))
}

func TestBuildHeader_CharCap(t *testing.T) {
	ctx := CapturedContext{UserAgent: ptr(strings.Repeat("ü", 1000))}
	got := buildHeader(ctx)
	require.LessOrEqual(t, CountChars(got), MaxHeaderChars)
	require.True(t, strings.HasPrefix(got, "**User Agent:** ü"))
}

func TestBuildElementContext(t *testing.T) {
	ctx := CapturedContext{
		ElementDescription: ptr("button \"Submit order\""),
		CSSSelector:        ptr("#checkout > button.primary"),
		SelectedText:       ptr(strings.Repeat("s", 300)),
	}
	got := buildElementContext(ctx)

	require.True(t, strings.HasPrefix(got, "## Element Context\n\n"))
	require.Contains(t, got, "**Element:** button \"Submit order\"")
	require.Contains(t, got, "**Selector:** `#checkout > button.primary`")

	idx := strings.Index(got, "**Selected Text:** ")
	require.GreaterOrEqual(t, idx, 0)
	selected := got[idx+len("**Selected Text:** "):]
	require.Equal(t, MaxSelectedTextChars, CountChars(selected))
	require.True(t, strings.HasSuffix(selected, "…"))
	require.NotContains(t, got, "<details>")
}

func TestBuildElementContext_RedactsSelection(t *testing.T) {
	got := buildElementContext(CapturedContext{SelectedText: ptr("mail ops@example.org\nplease")})
	require.Contains(t, got, "**Selected Text:** mail [redacted-email] please")
}

func TestBuildDescription(t *testing.T) {
	require.Empty(t, buildDescription(""))
	require.Empty(t, buildDescription("  \n\n "))
	require.Equal(t, "## Description\n\nline one\n\nline two", buildDescription("line one\n\n\n\n\nline two  "))
}

func TestBuildDescription_Truncated(t *testing.T) {
	got := buildDescription(strings.Repeat("lorem ipsum ", 450))

	require.True(t, strings.HasPrefix(got, "<details>\n<summary>Description (truncated)</summary>\n\n"))
	require.True(t, strings.HasSuffix(got, "\n</details>"))
	content := strings.TrimSuffix(strings.TrimPrefix(got, "<details>\n<summary>Description (truncated)</summary>\n\n"), "\n</details>")
	require.LessOrEqual(t, len(content), MaxDescriptionBytes)
}

func TestBuildConsoleSummary(t *testing.T) {
	logs := []ConsoleEntry{
		{Type: ConsoleLog, Message: "boot"},
		{Type: ConsoleError, Message: "first failure"},
		{Type: ConsoleWarn, Message: "deprecated api"},
		{Type: ConsoleError, Message: "second failure"},
		{Type: ConsoleInfo, Message: "ready"},
		{Type: ConsoleDebug, Message: "tick"},
	}
	want := "## Console Summary\n\n" +
		"**Entries:** 6 (errors: 2, warnings: 1, info: 1, debug: 1)\n" +
		"**Last Error:** second failure\n" +
		"**Last Warning:** deprecated api"
	require.Equal(t, want, buildConsoleSummary(logs))
	require.Empty(t, buildConsoleSummary(nil))
}

func TestBuildConsoleSummary_LongMessage(t *testing.T) {
	got := buildConsoleSummary([]ConsoleEntry{{Type: ConsoleError, Message: strings.Repeat("m", 500)}})
	line := got[strings.Index(got, "**Last Error:** ")+len("**Last Error:** "):]
	require.Equal(t, MaxSummaryMessageChars, CountChars(line))
	require.NotContains(t, got, "Last Warning")
}

func TestBuildJSError(t *testing.T) {
	got := buildJSError(&JSError{
		Message: ptr("x is not defined"),
		Source:  ptr("app.js"),
		Line:    ptr(int64(10)),
		Column:  ptr(int64(3)),
		Stack:   ptr("ReferenceError: x is not defined\n    at main (app.js:10:3)"),
	})
	want := "## JavaScript Error\n\n" +
		"**Message:** x is not defined\n" +
		"**Source:** app.js:10:3\n" +
		"**Stack:**\n```\nReferenceError: x is not defined\n at main (app.js:10:3)\n```"
	require.Equal(t, want, got)
	require.Empty(t, buildJSError(nil))
}

func TestBuildJSError_MissingPosition(t *testing.T) {
	got := buildJSError(&JSError{Message: ptr("boom"), Source: ptr("vendor.js")})
	require.Contains(t, got, "**Source:** vendor.js:0:0")
	require.NotContains(t, got, "Stack")
}

func TestBuildJSError_Truncated(t *testing.T) {
	got := buildJSError(&JSError{Message: ptr("overflow"), Stack: ptr(strings.Repeat("at frame (a.js:1:1)\n", 300))})

	require.True(t, strings.HasPrefix(got, "<details>\n<summary>JavaScript Error (truncated)</summary>"))
	require.Empty(t, openFence(got), "truncated stack must close its fence")
}

func TestBuildNetworkSample(t *testing.T) {
	requests := []NetworkRequest{
		{Method: ptr("GET"), URL: ptr("/ok"), Status: ptr(200)},
		{Method: ptr("POST"), URL: ptr("https://api.example.com/orders?id=9"), Status: ptr(502), ResponsePreview: ptr("Bad gateway")},
		{Method: ptr("GET"), URL: ptr("/missing"), Status: ptr(404)},
	}
	want := "## Network Sample\n\n" +
		"**Method:** POST\n" +
		"**URL:** https://api.example.com/orders\n" +
		"**Status:** 502\n" +
		"**Response Preview:**\n```\nBad gateway\n```"
	require.Equal(t, want, buildNetworkSample(requests))
}

func TestBuildNetworkSample_NoFailures(t *testing.T) {
	require.Empty(t, buildNetworkSample(nil))
	require.Empty(t, buildNetworkSample([]NetworkRequest{
		{URL: ptr("/a"), Status: ptr(204)},
		{URL: ptr("/b")},
	}))
}

func TestBuildNetworkSample_Truncated(t *testing.T) {
	got := buildNetworkSample([]NetworkRequest{{Status: ptr(500), ResponsePreview: ptr(strings.Repeat("<html>", 200))}})
	require.Contains(t, got, "<summary>Network Sample (truncated)</summary>")
	require.Empty(t, openFence(got))
}

func TestBuildConsoleDump_LastEntries(t *testing.T) {
	var logs []ConsoleEntry
	for i := range 25 {
		typ := ConsoleWarn
		if i%2 == 1 {
			typ = ConsoleError
		}
		logs = append(logs, ConsoleEntry{Type: typ, Message: fmt.Sprintf("msg-%02d", i)})
	}
	got := buildConsoleDump(logs)

	require.True(t, strings.HasPrefix(got, "<details>\n<summary>Console Logs</summary>"))
	for i := range 5 {
		require.NotContains(t, got, fmt.Sprintf("msg-%02d", i))
	}
	for i := 5; i < 25; i++ {
		require.Contains(t, got, fmt.Sprintf("msg-%02d", i))
	}
	require.Contains(t, got, "[WARN] msg-24")
	require.Contains(t, got, "[ERROR] msg-23")
}

func TestBuildConsoleDump_Format(t *testing.T) {
	got := buildConsoleDump([]ConsoleEntry{
		{Type: ConsoleInfo, Message: "loaded", Timestamp: ptr(int64(1700000000000))},
		{Type: "", Message: "untyped"},
		{Type: "TRACE", Message: "custom"},
	})
	want := "<details>\n<summary>Console Logs</summary>\n\n```\n" +
		"[2023-11-14T22:13:20.000Z] [INFO] loaded\n" +
		"[LOG] untyped\n" +
		"[TRACE] custom\n" +
		"```\n</details>"
	require.Equal(t, want, got)
}

func TestBuildConsoleDump_AdjacentDedup(t *testing.T) {
	got := buildConsoleDump([]ConsoleEntry{
		{Type: ConsoleLog, Message: "a"},
		{Type: ConsoleLog, Message: "a"},
		{Type: ConsoleWarn, Message: "a"},
		{Type: ConsoleLog, Message: "b"},
		{Type: ConsoleLog, Message: "a"},
	})
	require.Equal(t, 2, strings.Count(got, "[LOG] a"))
	require.Equal(t, 1, strings.Count(got, "[WARN] a"))
	require.Equal(t, 1, strings.Count(got, "[LOG] b"))
}

func TestBuildConsoleDump_TruncatedKeepsNewest(t *testing.T) {
	var logs []ConsoleEntry
	for i := range 20 {
		logs = append(logs, ConsoleEntry{Type: ConsoleLog, Message: fmt.Sprintf("entry-%02d %s", i, strings.Repeat("x", 300))})
	}
	got := buildConsoleDump(logs)

	require.Contains(t, got, "<summary>Console Logs (truncated)</summary>")
	require.Contains(t, got, "entry-19")
	require.NotContains(t, got, "entry-00")
	require.Empty(t, openFence(got))
}

func TestBuildConsoleDump_FenceInjection(t *testing.T) {
	got := buildConsoleDump([]ConsoleEntry{{Type: ConsoleLog, Message: "```\n## injected"}})
	require.True(t, strings.Contains(got, "````\n"), "fence must outgrow embedded backticks")
	require.NotContains(t, OutlineLabels(got), "injected")
}

func TestBuildDOMSnippet(t *testing.T) {
	got := buildDOMSnippet(`<script>alert(1)</script><div onclick="x()">hi</div>`)
	require.Equal(t, "<details>\n<summary>DOM Snippet</summary>\n\n```html\n<div>hi</div>\n```\n</details>", got)
	require.Empty(t, buildDOMSnippet(""))
	require.Empty(t, buildDOMSnippet("<script>only()</script>"))
}

func TestBuildDOMSnippet_Truncated(t *testing.T) {
	got := buildDOMSnippet(strings.Repeat("<li>item</li>", 200))
	require.Contains(t, got, "<summary>DOM Snippet (truncated)</summary>")
	require.True(t, strings.HasSuffix(got, "\n```\n</details>"))
}
