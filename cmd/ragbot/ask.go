package main

import (
	"fmt"
	"strings"

	"github.com/perbu/campusrag/pkg/bootstrap"
	"github.com/spf13/cobra"
)

var askRetrieveOnly bool

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer one question",
	Long: `Answer one question and print the retrieval decision.

With --retrieve-only no model is called; the command prints which path the
retrieval policy took and the chunks it found.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askRetrieveOnly, "retrieve-only", false, "show retrieval results without generating")
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	stack, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stack.Close()

	if err := stack.EnsureIndex(ctx, cfg.Data.ChunksDir, logger); err != nil {
		return err
	}

	question := strings.Join(args, " ")
	if askRetrieveOnly {
		decision, err := stack.Orchestrator.Retrieve(ctx, stack.Orchestrator.Bound(question))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Source: %s\n", decision.Source)
		if decision.Query != "" {
			fmt.Fprintf(out, "Query:  %s\n", decision.Query)
		}
		if decision.Cached != "" {
			fmt.Fprintf(out, "\n%s\n", decision.Cached)
			return nil
		}
		if len(decision.Results) == 0 {
			fmt.Fprintln(out, "No results found")
			return nil
		}
		fmt.Fprintf(out, "\nFound %d results:\n\n", len(decision.Results))
		for _, r := range decision.Results {
			fmt.Fprintf(out, "Distance: %.3f | %s\n", r.Score, r.ChunkID)
			fmt.Fprintf(out, "%s\n\n", r.Text)
		}
		return nil
	}

	answer, err := stack.Orchestrator.Answer(ctx, question, nil)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "[%s]\n%s\n", answer.Source, answer.Text)
	return nil
}
