// Package main implements the webingest CLI: scrape web pages into a vector
// index and answer questions against it.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/webingest/internal/config"
	"github.com/fyrsmithlabs/webingest/internal/embeddings"
	"github.com/fyrsmithlabs/webingest/internal/logging"
	"github.com/fyrsmithlabs/webingest/internal/vectorstore"
)

var (
	// configFile is the optional YAML configuration path.
	configFile string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "webingest",
	Short: "Scrape web pages into a searchable knowledge base",
	Long: `webingest renders web pages with a headless browser, harvests their text
and assets into a consolidated PDF, structures the content, and indexes it
into a vector store for retrieval-augmented question answering.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to YAML config file")
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(purgeCmd)
}

// app holds the shared startup state every command needs.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
}

// setup loads configuration and builds the logger. Missing credentials are
// fatal here, before any work starts.
func setup() (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	return &app{cfg: cfg, logger: logger}, nil
}

// openStore builds the embedding provider and connects to the vector index,
// ensuring the collection exists. The caller owns both and must Close them.
func (a *app) openStore(cmd *cobra.Command) (*embeddings.Provider, *vectorstore.Store, error) {
	embedder, err := embeddings.NewProvider(embeddings.Config{
		Model:    a.cfg.Embedding.Model,
		CacheDir: a.cfg.Embedding.CacheDir,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("initializing embedder: %w", err)
	}

	store, err := vectorstore.NewStore(vectorstore.Config{
		Host:       a.cfg.Qdrant.Host,
		Port:       a.cfg.Qdrant.Port,
		Collection: a.cfg.Qdrant.Collection,
		VectorSize: uint64(embedder.Dimension()),
		UseTLS:     a.cfg.Qdrant.UseTLS,
	}, embedder)
	if err != nil {
		embedder.Close()
		return nil, nil, fmt.Errorf("connecting to vector store: %w", err)
	}

	if err := store.EnsureCollection(cmd.Context()); err != nil {
		store.Close()
		embedder.Close()
		return nil, nil, fmt.Errorf("ensuring collection: %w", err)
	}

	return embedder, store, nil
}
