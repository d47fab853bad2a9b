package ops

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/snag/internal/config"
	"github.com/hpungsan/snag/internal/errors"
)

func TestAttachScreenshot(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	cfg := config.DefaultConfig()

	built, err := Build(ctx, database, cfg, BuildInput{Document: testDocument("https://a.example/", 1, "see shot")})
	require.NoError(t, err)

	out, err := AttachScreenshot(ctx, database, cfg, AttachInput{ID: built.ID, URL: "https://img.example/1.png"})
	require.NoError(t, err)
	require.False(t, out.Replaced)
	require.Greater(t, out.SizeBytes, built.SizeBytes)

	fetched, err := Fetch(ctx, database, FetchInput{ID: built.ID})
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(fetched.Body, "![Screenshot](https://img.example/1.png)"))
	require.Equal(t, len(fetched.Body), fetched.SizeBytes)

	// Re-attaching replaces the line instead of stacking another one
	out, err = AttachScreenshot(ctx, database, cfg, AttachInput{ID: built.ID, URL: "https://img.example/2.png"})
	require.NoError(t, err)
	require.True(t, out.Replaced)

	fetched, err = Fetch(ctx, database, FetchInput{ID: built.ID})
	require.NoError(t, err)
	require.Equal(t, 1, strings.Count(fetched.Body, "![Screenshot]("))
	require.Contains(t, fetched.Body, "2.png")
	require.NotNil(t, fetched.ScreenshotURL)
	require.Equal(t, "https://img.example/2.png", *fetched.ScreenshotURL)
}

func TestAttachScreenshot_Errors(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	cfg := config.DefaultConfig()

	built, err := Build(ctx, database, cfg, BuildInput{Document: testDocument("https://a.example/", 1, "x")})
	require.NoError(t, err)

	_, err = AttachScreenshot(ctx, database, cfg, AttachInput{URL: "https://img.example/1.png"})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest), "missing id: %v", err)

	_, err = AttachScreenshot(ctx, database, cfg, AttachInput{ID: built.ID, URL: "file:///etc/passwd"})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest), "file url: %v", err)

	_, err = AttachScreenshot(ctx, database, cfg, AttachInput{ID: "01MISSING", URL: "https://img.example/1.png"})
	require.True(t, errors.Is(err, errors.ErrNotFound), "missing report: %v", err)

	tight := config.DefaultConfig()
	tight.BodyRejectBytes = built.SizeBytes + 10
	_, err = AttachScreenshot(ctx, database, tight, AttachInput{ID: built.ID, URL: "https://img.example/long-name.png"})
	require.True(t, errors.Is(err, errors.ErrBodyTooLarge), "over limit: %v", err)
}
