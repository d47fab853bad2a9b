package report

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExportRecord_ToReportRecomputes(t *testing.T) {
	issue := BuildSanitizedIssue(fullContext(), UserInput{Description: ptr("broken")})
	rec := &ExportRecord{
		ID:          "01HZZZZZZZZZZZZZZZZZZZZZZZ",
		Title:       "Line one\nline two 🐛",
		Body:        issue.Body,
		SizeBytes:   1,
		ContextHash: "ffffffff",
		Sections:    []string{"stale"},
		Truncated:   true,
		CreatedAt:   10,
		UpdatedAt:   20,
	}

	r := rec.ToReport()
	require.Equal(t, "Line one line two", r.Title)
	require.Equal(t, len(issue.Body), r.SizeBytes)
	require.Equal(t, ContextHash(fullContext()), r.ContextHash)
	require.Equal(t, OutlineLabels(issue.Body), r.Sections)
	require.False(t, r.Truncated)
	require.Equal(t, int64(10), r.CreatedAt)
}

func TestExportRecord_ToReportKeepsHashWithoutHashLine(t *testing.T) {
	r := (&ExportRecord{ID: "x", Body: "## Description\n\nhand written", ContextHash: "0badcafe"}).ToReport()
	require.Equal(t, "0badcafe", r.ContextHash)
	require.Equal(t, []string{LabelDescription}, r.Sections)
}

func TestReport_RoundTripExport(t *testing.T) {
	shot := "https://img.example.com/a.png"
	r := &Report{
		ID:            "01J0000000000000000000000A",
		Title:         "t",
		Body:          "## Description\n\nx\n\nContext-Hash: 7ca32e75",
		SizeBytes:     41,
		ContextHash:   "7ca32e75",
		Labels:        []string{"bug"},
		Milestone:     ptr(3),
		Sections:      []string{LabelDescription},
		ScreenshotURL: &shot,
		CreatedAt:     1,
		UpdatedAt:     2,
	}
	back := r.ToExportRecord().ToReport()
	require.Equal(t, r, back)

	s := r.ToSummary()
	require.True(t, s.HasScreenshot)
	require.Equal(t, r.Labels, s.Labels)
}
