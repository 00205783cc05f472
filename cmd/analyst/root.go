// analyst answers questions about an imported chat history by letting a
// language model query PostgreSQL and run Python in a remote sandbox.
//
// Usage:
//
//	analyst import <export.json>
//	analyst ask "How many sessions used a tool?"
//	analyst chat
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	configPath string
	logLevel   string
}

var rootCmd = &cobra.Command{
	Use:   "analyst",
	Short: "Ask questions about your chat history",
	Long: "analyst lets a language model answer questions about imported chat sessions\n" +
		"by querying PostgreSQL and running Python analysis code in a sandbox.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&rootFlags.configPath, "config", "", "Path to YAML config file")
	f.StringVar(&rootFlags.logLevel, "log-level", "", "Override log level (debug, info, warn, error)")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
