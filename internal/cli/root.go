// Package cli implements the kb operator commands.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"gopherai-kb/internal/bootstrap"
)

var (
	configPath   string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:           "kb",
	Short:         "Knowledge base operator tool",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configPath != "" {
			return os.Setenv("CONFIG_FILE", configPath)
		}
		return nil
	},
}

// Execute runs the command tree.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default configs/config.toml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "text", "Output format (text|json)")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(tokenCmd)
}

// withApp builds the application, runs fn and then drains background jobs.
func withApp(ctx context.Context, fn func(*bootstrap.App) error) error {
	a, err := bootstrap.New(ctx)
	if err != nil {
		return err
	}
	runErr := fn(a)
	if err := a.Close(); err != nil && runErr == nil {
		return fmt.Errorf("close resources failed: %w", err)
	}
	return runErr
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
