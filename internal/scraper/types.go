package scraper

// PageTextFile is the name of the extracted-text file inside a workspace.
const PageTextFile = "page_content.txt"

// PageCapture is the result of rendering one page. Immutable once returned.
type PageCapture struct {
	// FinalURL is the URL after redirects.
	FinalURL string

	// HTML is the rendered page source, after client-side scripts ran.
	HTML string

	// Text is the visible text extracted from the rendered HTML.
	Text string

	// ImageURLs are absolute URLs of raster images referenced by the page.
	ImageURLs []string

	// PDFURLs are absolute URLs of PDFs linked from the page.
	PDFURLs []string
}

// CaptureOptions controls which asset classes are downloaded.
type CaptureOptions struct {
	Images bool
	PDFs   bool
}
