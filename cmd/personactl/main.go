package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "personactl",
		Short: "personactl - build personas and try replies offline",
		Long: `personactl works on local files: persona profiles (YAML or JSON), chat
exports and the personabot SQLite database. It does not need a running server.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(newReplyCommand())
	rootCmd.AddCommand(newClassifyCommand())
	rootCmd.AddCommand(newSegmentCommand())
	rootCmd.AddCommand(newBuildCommand())
	rootCmd.AddCommand(newSearchCommand())
	rootCmd.AddCommand(newExportCommand())
	return rootCmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
