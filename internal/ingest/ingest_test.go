package ingest_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/textsplitter"
	"go.uber.org/zap/zaptest"

	"github.com/fyrsmithlabs/webingest/internal/ingest"
	"github.com/fyrsmithlabs/webingest/internal/vectorstore"
)

// fakeStore records upserted documents.
type fakeStore struct {
	docs []vectorstore.Document
	err  error
}

func (f *fakeStore) AddDocuments(_ context.Context, docs []vectorstore.Document) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.docs = append(f.docs, docs...)
	ids := make([]string, len(docs))
	for i := range ids {
		ids[i] = uuid.NewString()
	}
	return ids, nil
}

func writeDoc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "structured_data.md")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func sampleText() string {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&b, "Section %d covers topic %d in enough detail to fill a sentence. ", i, i)
	}
	return b.String()
}

func TestIngest_ChunksAndUpserts(t *testing.T) {
	store := &fakeStore{}
	svc := ingest.NewService(ingest.Config{ChunkSize: 500, ChunkOverlap: 200}, store, zaptest.NewLogger(t))

	path := writeDoc(t, sampleText())
	require.NoError(t, svc.Ingest(context.Background(), path))
	require.NotEmpty(t, store.docs)

	for i, doc := range store.docs {
		assert.LessOrEqual(t, utf8.RuneCountInString(doc.Content), 500, "chunk %d too long", i)
		assert.Equal(t, path, doc.Metadata["source"])
		assert.Equal(t, i, doc.Metadata["chunk"])
	}

	// Every sentence of the source survives in at least one chunk.
	joined := strings.Join(chunkTexts(store.docs), "\n")
	for i := 0; i < 40; i++ {
		assert.Contains(t, joined, fmt.Sprintf("Section %d covers topic %d", i, i))
	}
}

func TestIngest_RechunkingIsIdempotent(t *testing.T) {
	text := sampleText()

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(500),
		textsplitter.WithChunkOverlap(200),
	)
	first, err := splitter.SplitText(text)
	require.NoError(t, err)
	second, err := splitter.SplitText(text)
	require.NoError(t, err)

	assert.Equal(t, first, second, "same text must yield identical chunk boundaries")
}

func TestIngest_ConsecutiveChunksOverlap(t *testing.T) {
	store := &fakeStore{}
	svc := ingest.NewService(ingest.Config{}, store, zaptest.NewLogger(t))

	path := writeDoc(t, sampleText())
	require.NoError(t, svc.Ingest(context.Background(), path))
	require.Greater(t, len(store.docs), 1)

	// Each chunk shares a suffix/prefix with its successor.
	chunks := chunkTexts(store.docs)
	for i := 0; i < len(chunks)-1; i++ {
		assert.True(t, overlaps(chunks[i], chunks[i+1]),
			"chunks %d and %d share no overlap", i, i+1)
	}
}

func TestIngest_Failures(t *testing.T) {
	logger := zaptest.NewLogger(t)

	t.Run("missing file", func(t *testing.T) {
		svc := ingest.NewService(ingest.Config{}, &fakeStore{}, logger)
		err := svc.Ingest(context.Background(), filepath.Join(t.TempDir(), "nope.md"))
		assert.Error(t, err)
	})

	t.Run("empty file", func(t *testing.T) {
		svc := ingest.NewService(ingest.Config{}, &fakeStore{}, logger)
		err := svc.Ingest(context.Background(), writeDoc(t, ""))
		assert.ErrorIs(t, err, ingest.ErrEmptyDocument)
	})

	t.Run("store failure surfaces", func(t *testing.T) {
		store := &fakeStore{err: errors.New("qdrant down")}
		svc := ingest.NewService(ingest.Config{}, store, logger)
		err := svc.Ingest(context.Background(), writeDoc(t, sampleText()))
		assert.ErrorContains(t, err, "qdrant down")
	})
}

func chunkTexts(docs []vectorstore.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Content
	}
	return out
}

// overlaps reports whether some suffix of a appears in b.
func overlaps(a, b string) bool {
	const probe = 40
	if len(a) < probe {
		return strings.Contains(b, a)
	}
	return strings.Contains(b, a[len(a)-probe:])
}
