package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"gopherai-kb/internal/app"
	"gopherai-kb/internal/bootstrap"
	"gopherai-kb/internal/pkg/extract"
)

var importBatchSize int

var importCmd = &cobra.Command{
	Use:   "import <dir>",
	Short: "Ingest every supported file in a folder and exit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *bootstrap.App) error {
			results, err := importFolder(cmd.Context(), a.Ingest, args[0], importBatchSize)
			if err != nil {
				return err
			}
			return printFileResults(cmd.OutOrStdout(), results)
		})
	},
}

func init() {
	importCmd.Flags().IntVarP(&importBatchSize, "batch", "b", 10, "Files read into memory per batch")
}

type batchIngester interface {
	IngestBatch(ctx context.Context, inputs []app.IngestInput) []app.FileResult
}

// importFolder ingests the supported regular files directly inside dir.
// Subfolders and hidden files are skipped.
func importFolder(ctx context.Context, ingester batchIngester, dir string, batchSize int) ([]app.FileResult, error) {
	paths, err := supportedFiles(dir)
	if err != nil {
		return nil, err
	}
	log.Printf("import %s: %d supported file(s)", dir, len(paths))
	return importPaths(ctx, ingester, paths, batchSize)
}

// importPaths reads and ingests paths, batchSize files at a time.
func importPaths(ctx context.Context, ingester batchIngester, paths []string, batchSize int) ([]app.FileResult, error) {
	if batchSize <= 0 {
		batchSize = 1
	}

	results := make([]app.FileResult, 0, len(paths))
	for start := 0; start < len(paths); start += batchSize {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		end := min(start+batchSize, len(paths))

		inputs := make([]app.IngestInput, 0, end-start)
		for _, path := range paths[start:end] {
			input, err := readInput(path)
			if err != nil {
				results = append(results, app.NewFileResult(filepath.Base(path), nil, err))
				continue
			}
			inputs = append(inputs, input)
		}
		results = append(results, ingester.IngestBatch(ctx, inputs)...)
	}
	return results, nil
}

func supportedFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read folder %s failed: %w", dir, err)
	}
	var paths []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || strings.HasPrefix(name, ".") || !extract.SupportedFile(name) {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	return paths, nil
}

func readInput(path string) (app.IngestInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return app.IngestInput{}, fmt.Errorf("read file failed: %w", err)
	}
	return app.IngestInput{Name: filepath.Base(path), Data: data}, nil
}

func printFileResults(w io.Writer, results []app.FileResult) error {
	if outputFormat == "json" {
		return writeJSON(w, results)
	}
	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
			fmt.Fprintf(w, "ok      %s  (document %d, %d chunks)\n", r.Name, r.Document.ID, r.ChunkCount)
			continue
		}
		fmt.Fprintf(w, "failed  %s  %s\n", r.Name, r.Error)
	}
	fmt.Fprintf(w, "\n%d of %d file(s) ingested\n", succeeded, len(results))
	return nil
}
