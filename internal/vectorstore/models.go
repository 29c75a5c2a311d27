package vectorstore

import "context"

// Document represents a chunk to be stored in the vector index.
type Document struct {
	// ID is the unique identifier for the document. Assigned at insertion
	// when empty.
	ID string

	// Content is the text content of the chunk.
	Content string

	// Metadata contains additional key-value pairs (source path, chunk
	// index).
	Metadata map[string]interface{}
}

// SearchResult represents one nearest-neighbour match.
type SearchResult struct {
	// ID is the document identifier.
	ID string

	// Content is the chunk text.
	Content string

	// Score is the cosine similarity score (higher = more similar).
	Score float32

	// Metadata contains the document metadata.
	Metadata map[string]interface{}
}

// Embedder generates vector embeddings from text.
//
// The same embedder must serve ingestion and query so cosine similarity is
// well-defined; every vector it produces must match the collection's
// configured dimension.
type Embedder interface {
	// EmbedDocuments generates embeddings for multiple texts.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a single query. Some models
	// optimize differently for queries vs documents.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}
