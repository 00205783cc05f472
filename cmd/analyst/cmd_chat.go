package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/analystloop/graph"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask follow-up questions in one conversation",
	Long: "chat keeps one conversation open so later questions can build on earlier\n" +
		"answers and datasets. Type 'exit' or send EOF to quit.",
	Args: cobra.NoArgs,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	return chatLoop(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), a.orch.NewSession().Ask)
}

// chatLoop reads one question per line and prints each answer. Turn-cap
// errors end only the current question; any other error ends the chat.
func chatLoop(ctx context.Context, in io.Reader, out io.Writer, ask func(context.Context, string) (graph.Result, error)) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		question := strings.TrimSpace(scanner.Text())
		switch question {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		res, err := ask(ctx, question)
		if errors.Is(err, graph.ErrMaxTurns) {
			fmt.Fprintf(out, "gave up: %v\n", err)
			continue
		}
		if err != nil {
			return err
		}

		printResult(out, res)
	}
}
