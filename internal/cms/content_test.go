package cms

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writePage(t *testing.T, dir, lang, slug, body string) {
	t.Helper()
	p := filepath.Join(dir, "pages", lang)
	require.NoError(t, os.MkdirAll(p, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(p, slug+".md"), []byte(body), 0o644))
}

func TestGetPageRendersShippedContent(t *testing.T) {
	c := NewClient("../../content")
	page, err := c.GetPage(context.Background(), "solution", "en")
	require.NoError(t, err)
	require.Equal(t, "Solution", page.Title)
	require.Len(t, page.Steps, 5)
	require.Equal(t, "Step 1: Analysing & Cleaning the Dataset", page.Steps[0].Title)
	require.Contains(t, string(page.Steps[2].Description), "<p>")
	require.True(t, strings.HasPrefix(page.Excerpt, "Our end-to-end methodology"))

	problem, err := c.GetPage(context.Background(), "problem", "en")
	require.NoError(t, err)
	require.NotNil(t, problem.Hero)
	require.Equal(t, "Real Estate Investing Made Simple", problem.Hero.Title)
	require.Contains(t, string(problem.HTML), "<h2")
}

func TestGetPageFallsBackToDefaultLanguage(t *testing.T) {
	dir := t.TempDir()
	writePage(t, dir, "en", "about", "---\ntitle: About\n---\nHello")
	c := NewClient(dir)

	page, err := c.GetPage(context.Background(), "about", "fr-CA")
	require.NoError(t, err)
	require.Equal(t, "en", page.Lang)
	require.Equal(t, "About", page.Title)
}

func TestGetPageNotFoundAndTraversal(t *testing.T) {
	c := NewClient(t.TempDir())
	_, err := c.GetPage(context.Background(), "missing", "en")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = c.GetPage(context.Background(), "../secrets", "en")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetPageSanitizesMarkup(t *testing.T) {
	dir := t.TempDir()
	writePage(t, dir, "en", "xss", "Hi <script>alert(1)</script> <a href=\"javascript:alert(1)\">x</a>")
	c := NewClient(dir)

	page, err := c.GetPage(context.Background(), "xss", "en")
	require.NoError(t, err)
	require.NotContains(t, string(page.HTML), "<script")
	require.NotContains(t, string(page.HTML), "javascript:")
	require.Equal(t, "Xss", page.Title)
}

func TestGetPageReportsBrokenFrontMatter(t *testing.T) {
	dir := t.TempDir()
	writePage(t, dir, "en", "bad", "---\ntitle: [unclosed\n---\nbody")
	c := NewClient(dir)

	_, err := c.GetPage(context.Background(), "bad", "en")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
}

func TestGetPageCachesUntilExpiry(t *testing.T) {
	dir := t.TempDir()
	writePage(t, dir, "en", "news", "---\ntitle: First\n---\nbody")
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewClient(dir, WithCacheTTL(time.Minute), WithClock(func() time.Time { return now }))

	page, err := c.GetPage(context.Background(), "news", "en")
	require.NoError(t, err)
	require.Equal(t, "First", page.Title)

	writePage(t, dir, "en", "news", "---\ntitle: Second\n---\nbody")
	page, err = c.GetPage(context.Background(), "news", "en")
	require.NoError(t, err)
	require.Equal(t, "First", page.Title)

	now = now.Add(2 * time.Minute)
	page, err = c.GetPage(context.Background(), "news", "en")
	require.NoError(t, err)
	require.Equal(t, "Second", page.Title)
}

func TestExcerpt(t *testing.T) {
	require.Equal(t, "First para.", Excerpt("<h2>Head</h2><p>  First\n para.</p><p>Second</p>", 160))
	require.Equal(t, "", Excerpt("<h2>Only heading</h2>", 160))
	require.Equal(t, "alpha beta…", Excerpt("<p>alpha beta gamma delta</p>", 14))
}
