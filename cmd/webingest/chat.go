package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/webingest/internal/logging"
)

// chatTurn is one question/answer exchange in a chat session.
type chatTurn struct {
	Question string
	Answer   string
}

// chatCmd runs an interactive question loop against the indexed content.
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive question answering session",
	Long: `Start an interactive session. Each question is answered independently
against the indexed content; earlier turns are kept for review with the
"history" command but are not fed back into answer generation.

Type "history" to review the session, "exit" or "quit" to leave.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
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

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Ask a question, or type \"exit\" to leave.")

	// Newest turn first, so "history" shows the most recent exchange
	// without scrolling.
	var history []chatTurn

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())

		switch {
		case question == "":
			continue
		case question == "exit" || question == "quit":
			return scanner.Err()
		case question == "history":
			if len(history) == 0 {
				fmt.Fprintln(out, "No questions asked yet.")
				continue
			}
			for _, turn := range history {
				fmt.Fprintf(out, "Q: %s\nA: %s\n\n", turn.Question, turn.Answer)
			}
			continue
		}

		answer := svc.Answer(cmd.Context(), question)
		fmt.Fprintln(out, answer)
		history = append([]chatTurn{{Question: question, Answer: answer}}, history...)
	}
	return scanner.Err()
}
