package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/webingest/internal/logging"
	"github.com/fyrsmithlabs/webingest/internal/rag"
)

// askCmd answers a single question against the indexed content.
var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question using the indexed content",
	Long: `Retrieve the most relevant indexed chunks for the question and generate an
answer grounded in them.

Examples:
  webingest ask "What ports does the service listen on?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer logging.Sync(a.logger)

	svc, closeFn, err := a.buildRAG(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	question := strings.Join(args, " ")
	fmt.Fprintln(cmd.OutOrStdout(), svc.Answer(cmd.Context(), question))
	return nil
}

// buildRAG wires the retrieval service. The returned func releases the
// embedder and store.
func (a *app) buildRAG(cmd *cobra.Command) (*rag.Service, func(), error) {
	embedder, store, err := a.openStore(cmd)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		store.Close()
		embedder.Close()
	}

	model, err := rag.NewGroqModel(a.cfg.Groq.BaseURL, a.cfg.Groq.Model, a.cfg.Groq.APIKey.Value())
	if err != nil {
		closeFn()
		return nil, nil, err
	}

	svc := rag.NewService(rag.Config{TopK: a.cfg.Retrieval.TopK}, store, model, a.logger)
	return svc, closeFn, nil
}
