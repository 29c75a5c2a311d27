package embeddings_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fyrsmithlabs/webingest/internal/embeddings"
	"github.com/fyrsmithlabs/webingest/internal/vectorstore"
)

// The provider must satisfy the store's Embedder contract.
var _ vectorstore.Embedder = (*embeddings.Provider)(nil)

func TestNewProvider_UnsupportedModel(t *testing.T) {
	_, err := embeddings.NewProvider(embeddings.Config{Model: "no-such/model"})
	assert.ErrorIs(t, err, embeddings.ErrInvalidConfig)
}
