// Package rag answers questions from retrieved context and a chat model.
package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/prompts"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/webingest/internal/vectorstore"
)

// User-facing fixed responses. Failures inside the composer are never
// surfaced as errors, only as these strings.
const (
	// NoContextMessage is returned when retrieval finds nothing relevant.
	NoContextMessage = "I'm sorry, but I couldn't find relevant information in the database."

	// FailureMessage is returned when composition or the model call fails.
	FailureMessage = "An error occurred while generating the answer. Please try again."
)

// ErrEmptyResponse indicates the model returned no usable text.
var ErrEmptyResponse = errors.New("model returned no text")

// promptTemplate constrains the model to the retrieved context.
var promptTemplate = prompts.NewPromptTemplate(
	`You are a helpful assistant that answers questions based on the provided context only.
The user's question is: {{.question}}

Context:
{{.context}}

Answer:`,
	[]string{"question", "context"},
)

// Searcher is the slice of the vector store the retriever needs.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]vectorstore.SearchResult, error)
}

// Config holds retrieval configuration.
type Config struct {
	// TopK is the number of nearest neighbours fetched per query.
	// Default: 10
	TopK int
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.TopK == 0 {
		c.TopK = 10
	}
}

// Service retrieves context and composes answers.
type Service struct {
	config   Config
	searcher Searcher
	model    llms.Model
	logger   *zap.Logger
}

// NewService creates a RAG service.
func NewService(cfg Config, searcher Searcher, model llms.Model, logger *zap.Logger) *Service {
	cfg.ApplyDefaults()
	return &Service{
		config:   cfg,
		searcher: searcher,
		model:    model,
		logger:   logger.Named("rag"),
	}
}

// NewGroqModel creates a chat model client against Groq's OpenAI-compatible
// API.
func NewGroqModel(baseURL, model, apiKey string) (llms.Model, error) {
	llm, err := openai.New(
		openai.WithBaseURL(baseURL),
		openai.WithModel(model),
		openai.WithToken(apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("creating chat model client: %w", err)
	}
	return llm, nil
}

// Retrieve performs a nearest-neighbour search and concatenates the matched
// chunk texts with a blank-line separator, preserving ranked order.
//
// found is false when there are zero matches, distinct from an empty context
// string, so the caller can short-circuit instead of feeding the model
// nothing.
func (s *Service) Retrieve(ctx context.Context, query string) (contextText string, found bool, err error) {
	results, err := s.searcher.Search(ctx, query, s.config.TopK)
	if err != nil {
		return "", false, fmt.Errorf("retrieving documents: %w", err)
	}
	if len(results) == 0 {
		s.logger.Info("no relevant context found", zap.String("query", query))
		return "", false, nil
	}

	texts := make([]string, len(results))
	for i, result := range results {
		texts[i] = result.Content
	}
	return strings.Join(texts, "\n\n"), true, nil
}

// Answer answers the query from retrieved context.
//
// With no relevant context it returns NoContextMessage without invoking the
// model. Any failure during retrieval, composition, or the model call is
// logged and converted to FailureMessage; Answer never returns an error.
func (s *Service) Answer(ctx context.Context, query string) string {
	contextText, found, err := s.Retrieve(ctx, query)
	if err != nil {
		s.logger.Error("retrieval failed", zap.String("query", query), zap.Error(err))
		return FailureMessage
	}
	if !found {
		return NoContextMessage
	}

	prompt, err := promptTemplate.Format(map[string]any{
		"question": query,
		"context":  contextText,
	})
	if err != nil {
		s.logger.Error("prompt formatting failed", zap.Error(err))
		return FailureMessage
	}

	resp, err := s.model.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	})
	if err != nil {
		s.logger.Error("model call failed", zap.Error(err))
		return FailureMessage
	}

	answer, err := normalizeResponse(resp)
	if err != nil {
		s.logger.Error("unexpected model response", zap.Error(err))
		return FailureMessage
	}
	return answer
}

// normalizeResponse reduces whatever shape the model response takes to a
// plain string.
func normalizeResponse(resp *llms.ContentResponse) (string, error) {
	if resp == nil {
		return "", ErrEmptyResponse
	}
	for _, choice := range resp.Choices {
		if choice == nil {
			continue
		}
		if text := strings.TrimSpace(choice.Content); text != "" {
			return text, nil
		}
	}
	return "", ErrEmptyResponse
}
