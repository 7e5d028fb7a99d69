package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"classnotex/internal/interfaces/cli/migrate"
	"classnotex/internal/interfaces/cli/server"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "classnotex",
		Short: "ClassNoteX job orchestration service",
		Long:  `ClassNoteX orchestrates recording and summarization jobs with per-account quota enforcement.`,
	}

	rootCmd.AddCommand(server.NewCommand())
	rootCmd.AddCommand(migrate.NewCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
