package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/webingest/internal/consolidate"
	"github.com/fyrsmithlabs/webingest/internal/ingest"
	"github.com/fyrsmithlabs/webingest/internal/llamaparse"
	"github.com/fyrsmithlabs/webingest/internal/logging"
	"github.com/fyrsmithlabs/webingest/internal/pipeline"
	"github.com/fyrsmithlabs/webingest/internal/scraper"
)

var (
	ingestImages bool
	ingestPDFs   bool
)

// ingestCmd scrapes one or more URLs and indexes their content.
var ingestCmd = &cobra.Command{
	Use:   "ingest <url>...",
	Short: "Scrape pages and index their content",
	Long: `Render each URL with a headless browser, harvest text and assets into a
consolidated PDF, structure the content, and chunk-index it into the vector
store. URLs are processed independently: one failure does not abort the rest.

Examples:
  # Ingest a single page with all assets
  webingest ingest https://example.com/docs

  # Text only, skipping image and PDF harvesting
  webingest ingest --images=false --pdfs=false https://example.com/docs`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestImages, "images", true, "harvest linked images")
	ingestCmd.Flags().BoolVar(&ingestPDFs, "pdfs", true, "harvest linked PDFs")
}

func runIngest(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer logging.Sync(a.logger)

	embedder, store, err := a.openStore(cmd)
	if err != nil {
		return err
	}
	defer embedder.Close()
	defer store.Close()

	parser, err := llamaparse.NewClient(llamaparse.Config{
		APIKey:       a.cfg.LlamaParse.APIKey.Value(),
		BaseURL:      a.cfg.LlamaParse.BaseURL,
		PollInterval: a.cfg.LlamaParse.PollInterval.Duration(),
		MaxPolls:     a.cfg.LlamaParse.MaxPolls,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("creating structuring client: %w", err)
	}

	scrape := scraper.NewService(scraper.Config{
		SettleDelay:     a.cfg.Scraper.SettleDelay.Duration(),
		DownloadTimeout: a.cfg.Scraper.DownloadTimeout.Duration(),
		WorkspaceRoot:   a.cfg.Scraper.WorkspaceRoot,
		UserAgent:       a.cfg.Scraper.UserAgent,
	}, a.logger)

	indexer := ingest.NewService(ingest.Config{
		ChunkSize:    a.cfg.Ingest.ChunkSize,
		ChunkOverlap: a.cfg.Ingest.ChunkOverlap,
	}, store, a.logger)

	pipe := pipeline.New(scrape, consolidate.NewService(a.logger), parser, indexer, a.logger)

	results := pipe.RunAll(cmd.Context(), args, pipeline.Options{
		Images: ingestImages,
		PDFs:   ingestPDFs,
	})

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "FAILED  %s: %v\n", r.URL, r.Err)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ok      %s\n", r.URL)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d URLs failed", failed, len(results))
	}
	return nil
}
