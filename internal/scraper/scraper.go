// Package scraper renders web pages in headless Chrome and downloads the
// binary assets they reference.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Sentinel errors for scraper operations.
var (
	// ErrNavigationFailed indicates the rendering engine could not load the page.
	ErrNavigationFailed = errors.New("navigation failed")

	// ErrDownloadFailed indicates an asset download failed.
	ErrDownloadFailed = errors.New("download failed")
)

// imageExtensions are the raster extensions harvested from <img> sources.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// Config holds configuration for the scraper service.
type Config struct {
	// SettleDelay is how long to wait after navigation for client-side
	// rendering to finish.
	SettleDelay time.Duration

	// DownloadTimeout bounds a single asset download.
	DownloadTimeout time.Duration

	// WorkspaceRoot is the directory under which per-domain workspaces
	// are created.
	WorkspaceRoot string

	// UserAgent is sent on asset downloads.
	UserAgent string
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.SettleDelay == 0 {
		c.SettleDelay = 3 * time.Second
	}
	if c.DownloadTimeout == 0 {
		c.DownloadTimeout = 30 * time.Second
	}
	if c.WorkspaceRoot == "" {
		c.WorkspaceRoot = "."
	}
	if c.UserAgent == "" {
		c.UserAgent = "Mozilla/5.0"
	}
}

// Service fetches rendered pages and their assets.
type Service struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewService creates a scraper service.
func NewService(cfg Config, logger *zap.Logger) *Service {
	cfg.ApplyDefaults()
	return &Service{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.DownloadTimeout,
		},
		logger: logger.Named("scraper"),
	}
}

// Fetch renders the URL in headless Chrome and returns the capture.
//
// The browser context is created per call and cancelled on every exit path,
// so no engine process outlives the fetch. A navigation or engine failure is
// returned as an error; callers treat it as "skip this URL".
func (s *Service) Fetch(ctx context.Context, pageURL string) (*PageCapture, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.DisableGPU,
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var html, finalURL string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(pageURL),
		chromedp.Sleep(s.config.SettleDelay),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNavigationFailed, pageURL, err)
	}

	capture, err := ParsePage(html, finalURL)
	if err != nil {
		return nil, fmt.Errorf("parsing page %s: %w", finalURL, err)
	}
	return capture, nil
}

// ParsePage extracts text and asset URLs from rendered HTML.
//
// Image assets are <img> sources whose URL path ends in a recognized raster
// extension; PDF assets are anchor targets ending in .pdf. Both are resolved
// absolute against the final URL. Unresolvable references are skipped.
func ParsePage(html, finalURL string) (*PageCapture, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	base, err := url.Parse(finalURL)
	if err != nil {
		return nil, fmt.Errorf("parsing final URL: %w", err)
	}

	capture := &PageCapture{
		FinalURL: finalURL,
		HTML:     html,
		Text:     extractText(doc),
	}

	seen := make(map[string]bool)
	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		src, ok := sel.Attr("src")
		if !ok || src == "" {
			return
		}
		abs, ok := resolveURL(base, src)
		if !ok || seen[abs] {
			return
		}
		if imageExtensions[strings.ToLower(urlPathExt(abs))] {
			seen[abs] = true
			capture.ImageURLs = append(capture.ImageURLs, abs)
		}
	})

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		abs, ok := resolveURL(base, href)
		if !ok || seen[abs] {
			return
		}
		if strings.EqualFold(urlPathExt(abs), ".pdf") {
			seen[abs] = true
			capture.PDFURLs = append(capture.PDFURLs, abs)
		}
	})

	return capture, nil
}

// extractText returns the page's visible text, one trimmed line per text
// block, with script and style content removed.
func extractText(doc *goquery.Document) string {
	doc.Find("script, style, noscript").Remove()

	sel := doc.Find("body")
	if sel.Length() == 0 {
		sel = doc.Selection
	}

	var lines []string
	for _, raw := range strings.Split(sel.Text(), "\n") {
		if line := strings.TrimSpace(raw); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func resolveURL(base *url.URL, ref string) (string, bool) {
	parsed, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", false
	}
	abs := base.ResolveReference(parsed)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	return abs.String(), true
}

func urlPathExt(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return path.Ext(parsed.Path)
}

// DownloadAsset streams a binary resource to destPath.
//
// Any non-2xx status is a failure. A failed download is non-fatal to the
// overall run; the caller logs and continues with the remaining assets.
func (s *Service) DownloadAsset(ctx context.Context, assetURL, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, assetURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	req.Header.Set("User-Agent", s.config.UserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s returned %d", ErrDownloadFailed, assetURL, resp.StatusCode)
	}

	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("%w: creating %s: %v", ErrDownloadFailed, destPath, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(destPath)
		return fmt.Errorf("%w: writing %s: %v", ErrDownloadFailed, destPath, err)
	}
	return nil
}

// Capture renders a page and populates a per-domain workspace directory with
// the page text and, per opts, its image and PDF assets.
//
// The workspace directory name is the final URL's host with dots replaced by
// underscores, under WorkspaceRoot. One missing asset must not abort the
// page: individual download failures are logged and skipped.
func (s *Service) Capture(ctx context.Context, pageURL string, opts CaptureOptions) (string, error) {
	capture, err := s.Fetch(ctx, pageURL)
	if err != nil {
		return "", err
	}

	final, err := url.Parse(capture.FinalURL)
	if err != nil || final.Host == "" {
		return "", fmt.Errorf("%w: no host in final URL %q", ErrNavigationFailed, capture.FinalURL)
	}

	workspace := filepath.Join(s.config.WorkspaceRoot, strings.ReplaceAll(final.Host, ".", "_"))
	if err := os.MkdirAll(workspace, 0o755); err != nil {
		return "", fmt.Errorf("creating workspace %s: %w", workspace, err)
	}

	textPath := filepath.Join(workspace, PageTextFile)
	if err := os.WriteFile(textPath, []byte(capture.Text), 0o644); err != nil {
		return "", fmt.Errorf("writing page text: %w", err)
	}

	if opts.Images {
		for _, imgURL := range capture.ImageURLs {
			dest := filepath.Join(workspace, AssetFilename(imgURL, "image", ".jpg"))
			if err := s.DownloadAsset(ctx, imgURL, dest); err != nil {
				s.logger.Warn("skipping image", zap.String("url", imgURL), zap.Error(err))
				continue
			}
			s.logger.Info("downloaded image", zap.String("url", imgURL), zap.String("path", dest))
		}
	}

	if opts.PDFs {
		for _, pdfURL := range capture.PDFURLs {
			dest := filepath.Join(workspace, AssetFilename(pdfURL, "file", ".pdf"))
			if err := s.DownloadAsset(ctx, pdfURL, dest); err != nil {
				s.logger.Warn("skipping pdf", zap.String("url", pdfURL), zap.Error(err))
				continue
			}
			s.logger.Info("downloaded pdf", zap.String("url", pdfURL), zap.String("path", dest))
		}
	}

	return workspace, nil
}

// AssetFilename derives a local filename from an asset URL. Assets whose URL
// path has no usable base name get a random fallback name to avoid collisions.
func AssetFilename(rawURL, prefix, fallbackExt string) string {
	parsed, err := url.Parse(rawURL)
	if err == nil {
		if name := path.Base(parsed.Path); name != "" && name != "." && name != "/" {
			return name
		}
	}
	return fmt.Sprintf("%s_%s%s", prefix, uuid.NewString()[:8], fallbackExt)
}
