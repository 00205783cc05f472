package main

import (
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
)

var askFlags struct {
	quiet bool
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a single question",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().BoolVarP(&askFlags.quiet, "quiet", "q", false, "Do not narrate tool activity")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	narrate := cmd.ErrOrStderr()
	if askFlags.quiet {
		narrate = nil
	}

	a, err := newApp(ctx, cfg, narrate)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.orch.Ask(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}

	printResult(cmd.OutOrStdout(), res)
	return nil
}
