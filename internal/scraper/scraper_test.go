package scraper_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/fyrsmithlabs/webingest/internal/scraper"
)

const pageHTML = `<html>
<head><title>Docs</title><style>body { color: red }</style></head>
<body>
  <script>console.log("rendered")</script>
  <h1>Welcome</h1>
  <p>Refunds are processed within 14 days.</p>
  <img src="/static/logo.png">
  <img src="https://cdn.example.com/a/photo.jpg?v=2">
  <img src="diagram.svg">
  <img src="banner.jpeg">
  <img src="banner.jpeg">
  <a href="/files/manual.pdf">manual</a>
  <a href="/about">about</a>
  <a href="HANDBOOK.PDF">handbook</a>
  <a href="mailto:x@example.com">mail</a>
</body>
</html>`

func TestParsePage_AssetDiscovery(t *testing.T) {
	capture, err := scraper.ParsePage(pageHTML, "https://docs.example.com/guide/")
	require.NoError(t, err)

	assert.Equal(t, "https://docs.example.com/guide/", capture.FinalURL)

	// Raster images only, resolved absolute, deduplicated. SVG is not a
	// recognized raster extension; the query string does not hide .jpg.
	assert.Equal(t, []string{
		"https://docs.example.com/static/logo.png",
		"https://cdn.example.com/a/photo.jpg?v=2",
		"https://docs.example.com/guide/banner.jpeg",
	}, capture.ImageURLs)

	// PDF anchors only, case-insensitive extension, mailto skipped.
	assert.Equal(t, []string{
		"https://docs.example.com/files/manual.pdf",
		"https://docs.example.com/guide/HANDBOOK.PDF",
	}, capture.PDFURLs)
}

func TestParsePage_TextExtraction(t *testing.T) {
	capture, err := scraper.ParsePage(pageHTML, "https://docs.example.com/")
	require.NoError(t, err)

	assert.Contains(t, capture.Text, "Welcome")
	assert.Contains(t, capture.Text, "Refunds are processed within 14 days.")
	assert.NotContains(t, capture.Text, "console.log")
	assert.NotContains(t, capture.Text, "color: red")

	// Lines are trimmed and blank lines dropped.
	for _, line := range strings.Split(capture.Text, "\n") {
		assert.Equal(t, line, strings.TrimSpace(line))
		assert.NotEmpty(t, line)
	}
}

func TestAssetFilename(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{name: "plain file", url: "https://x.test/a/b/manual.pdf", want: "manual.pdf"},
		{name: "query ignored", url: "https://x.test/photo.jpg?v=2", want: "photo.jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, scraper.AssetFilename(tt.url, "image", ".jpg"))
		})
	}

	// No usable base name: random fallback with the requested prefix and
	// extension, unique across calls.
	a := scraper.AssetFilename("https://x.test/", "image", ".jpg")
	b := scraper.AssetFilename("https://x.test/", "image", ".jpg")
	assert.True(t, strings.HasPrefix(a, "image_"))
	assert.True(t, strings.HasSuffix(a, ".jpg"))
	assert.NotEqual(t, a, b)
}

func TestDownloadAsset(t *testing.T) {
	var gotUserAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.jpg":
			gotUserAgent = r.Header.Get("User-Agent")
			_, _ = w.Write([]byte("jpeg-bytes"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	svc := scraper.NewService(scraper.Config{UserAgent: "Mozilla/5.0"}, zaptest.NewLogger(t))
	dir := t.TempDir()

	dest := filepath.Join(dir, "ok.jpg")
	require.NoError(t, svc.DownloadAsset(context.Background(), srv.URL+"/ok.jpg", dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))
	assert.Equal(t, "Mozilla/5.0", gotUserAgent)
}

func TestDownloadAsset_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	svc := scraper.NewService(scraper.Config{}, zaptest.NewLogger(t))
	dest := filepath.Join(t.TempDir(), "missing.jpg")

	err := svc.DownloadAsset(context.Background(), srv.URL+"/missing.jpg", dest)
	assert.ErrorIs(t, err, scraper.ErrDownloadFailed)

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr), "no file should be left behind")
}
