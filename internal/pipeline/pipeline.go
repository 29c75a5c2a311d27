// Package pipeline drives an ingestion run: capture, consolidate, structure,
// index, clean up.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/webingest/internal/llamaparse"
	"github.com/fyrsmithlabs/webingest/internal/scraper"
)

// CombinedPDFName is the consolidated document's filename inside a workspace.
const CombinedPDFName = "combined_output.pdf"

// Capturer renders a page into a workspace directory.
type Capturer interface {
	Capture(ctx context.Context, url string, opts scraper.CaptureOptions) (string, error)
}

// Consolidator merges a workspace into one PDF.
type Consolidator interface {
	Consolidate(workspaceDir, outputPath string) (string, error)
}

// Structurer converts a PDF into structured Markdown.
type Structurer interface {
	Process(ctx context.Context, pdfPath string) (string, error)
}

// Ingestor indexes structured Markdown into the vector store.
type Ingestor interface {
	Ingest(ctx context.Context, path string) error
}

// Options controls which asset classes a run captures.
type Options struct {
	Images bool
	PDFs   bool
}

// Result is the outcome of one URL in a batch.
type Result struct {
	URL string
	Err error
}

// Pipeline wires the ingestion stages together. Collaborators are injected,
// not ambient, so each stage is testable in isolation.
type Pipeline struct {
	capturer     Capturer
	consolidator Consolidator
	structurer   Structurer
	ingestor     Ingestor
	logger       *zap.Logger
}

// New creates a pipeline.
func New(capturer Capturer, consolidator Consolidator, structurer Structurer, ingestor Ingestor, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		capturer:     capturer,
		consolidator: consolidator,
		structurer:   structurer,
		ingestor:     ingestor,
		logger:       logger.Named("pipeline"),
	}
}

// Run ingests one URL end to end.
//
// The workspace directory is removed only on success; on failure it is kept
// for diagnosis. With both asset toggles off the raw page text is used
// directly as the structured input and the consolidation and structuring
// stages are skipped entirely.
func (p *Pipeline) Run(ctx context.Context, url string, opts Options) error {
	workspace, err := p.capturer.Capture(ctx, url, scraper.CaptureOptions{
		Images: opts.Images,
		PDFs:   opts.PDFs,
	})
	if err != nil {
		return fmt.Errorf("capturing %s: %w", url, err)
	}
	p.logger.Info("page captured", zap.String("url", url), zap.String("workspace", workspace))

	var mdPath string
	if !opts.Images && !opts.PDFs {
		mdPath, err = p.textOnlyMarkdown(workspace)
		if err != nil {
			return fmt.Errorf("preparing text-only input for %s: %w", url, err)
		}
	} else {
		pdfPath := filepath.Join(workspace, CombinedPDFName)
		if _, err := p.consolidator.Consolidate(workspace, pdfPath); err != nil {
			return fmt.Errorf("consolidating %s: %w", url, err)
		}
		p.logger.Info("workspace consolidated", zap.String("pdf", pdfPath))

		mdPath, err = p.structurer.Process(ctx, pdfPath)
		if err != nil {
			return fmt.Errorf("structuring %s: %w", url, err)
		}
		p.logger.Info("document structured", zap.String("markdown", mdPath))
	}

	if err := p.ingestor.Ingest(ctx, mdPath); err != nil {
		return fmt.Errorf("indexing %s: %w", url, err)
	}

	if err := os.RemoveAll(workspace); err != nil {
		p.logger.Warn("could not remove workspace", zap.String("workspace", workspace), zap.Error(err))
	} else {
		p.logger.Info("workspace cleaned up", zap.String("workspace", workspace))
	}
	return nil
}

// RunAll ingests a batch of URLs. Each URL is processed independently; a
// failure aborts only that URL's run.
func (p *Pipeline) RunAll(ctx context.Context, urls []string, opts Options) []Result {
	results := make([]Result, 0, len(urls))
	for _, url := range urls {
		err := p.Run(ctx, url, opts)
		if err != nil {
			p.logger.Error("ingestion failed", zap.String("url", url), zap.Error(err))
		}
		results = append(results, Result{URL: url, Err: err})
	}
	return results
}

// textOnlyMarkdown copies the captured page text to the structured-data
// filename, standing in for the structuring service.
func (p *Pipeline) textOnlyMarkdown(workspace string) (string, error) {
	text, err := os.ReadFile(filepath.Join(workspace, scraper.PageTextFile))
	if err != nil {
		return "", fmt.Errorf("reading page text: %w", err)
	}
	mdPath := filepath.Join(workspace, llamaparse.MarkdownFile)
	if err := os.WriteFile(mdPath, text, 0o644); err != nil {
		return "", fmt.Errorf("writing structured text: %w", err)
	}
	return mdPath, nil
}
