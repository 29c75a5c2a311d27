// Package ingest splits structured text into overlapping chunks and upserts
// them into the vector index.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/tmc/langchaingo/textsplitter"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/webingest/internal/vectorstore"
)

// ErrEmptyDocument indicates the input file had no text to index.
var ErrEmptyDocument = errors.New("document is empty")

// DocumentStore is the slice of the vector store the ingestor needs.
type DocumentStore interface {
	AddDocuments(ctx context.Context, docs []vectorstore.Document) ([]string, error)
}

// Config holds chunking configuration.
type Config struct {
	// ChunkSize is the maximum chunk length in runes.
	// Default: 500
	ChunkSize int

	// ChunkOverlap is the overlap between consecutive chunks in runes.
	// Default: 200
	ChunkOverlap int
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.ChunkSize == 0 {
		c.ChunkSize = 500
	}
	if c.ChunkOverlap == 0 {
		c.ChunkOverlap = 200
	}
}

// Service chunks structured text and stores it.
type Service struct {
	config   Config
	store    DocumentStore
	splitter textsplitter.TextSplitter
	logger   *zap.Logger
}

// NewService creates an ingest service.
func NewService(cfg Config, store DocumentStore, logger *zap.Logger) *Service {
	cfg.ApplyDefaults()
	return &Service{
		config: cfg,
		store:  store,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(cfg.ChunkSize),
			textsplitter.WithChunkOverlap(cfg.ChunkOverlap),
		),
		logger: logger.Named("ingest"),
	}
}

// Ingest loads the structured text, splits it, and upserts all chunks in one
// batch.
//
// Partial upserts are not rolled back; re-ingesting the same file is safe
// but appends, it does not replace.
func (s *Service) Ingest(ctx context.Context, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("loading document %s: %w", path, err)
	}
	if len(content) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyDocument, path)
	}

	chunks, err := s.splitter.SplitText(string(content))
	if err != nil {
		return fmt.Errorf("splitting document %s: %w", path, err)
	}
	if len(chunks) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyDocument, path)
	}

	docs := make([]vectorstore.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = vectorstore.Document{
			Content: chunk,
			Metadata: map[string]interface{}{
				"source": path,
				"chunk":  i,
			},
		}
	}

	ids, err := s.store.AddDocuments(ctx, docs)
	if err != nil {
		return fmt.Errorf("upserting %d chunks from %s: %w", len(docs), path, err)
	}

	s.logger.Info("document indexed",
		zap.String("path", path),
		zap.Int("chunks", len(ids)))
	return nil
}
