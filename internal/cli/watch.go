package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"gopherai-kb/internal/app"
	"gopherai-kb/internal/bootstrap"
	"gopherai-kb/internal/pkg/extract"
)

var (
	watchSettle   time.Duration
	watchExisting bool
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Ingest files as they are added to a folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := args[0]
		return withApp(cmd.Context(), func(a *bootstrap.App) error {
			w, err := NewFolderWatcher(dir, watchSettle, func(ctx context.Context, path string) {
				input, err := readInput(path)
				var res *app.IngestResult
				if err == nil {
					res, err = a.Ingest.Ingest(ctx, input)
				}
				_ = printFileResults(cmd.OutOrStdout(), []app.FileResult{app.NewFileResult(filepath.Base(path), res, err)})
			})
			if err != nil {
				return err
			}

			// events raised during the import queue up in the watcher
			if watchExisting {
				results, err := w.ImportExisting(cmd.Context(), a.Ingest, importBatchSize)
				if err != nil {
					_ = w.watcher.Close()
					return err
				}
				if err := printFileResults(cmd.OutOrStdout(), results); err != nil {
					_ = w.watcher.Close()
					return err
				}
			}
			log.Printf("watching %s, press Ctrl+C to stop", dir)
			return w.Run(cmd.Context())
		})
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchSettle, "settle", time.Second, "Quiet period after the last write before a file is ingested")
	watchCmd.Flags().BoolVar(&watchExisting, "existing", true, "Import files already in the folder first")
	watchCmd.Flags().IntVarP(&importBatchSize, "batch", "b", 10, "Files read into memory per batch for --existing")
}

// FolderWatcher calls handle once for each supported file created in a folder,
// after writes to it have been quiet for the settle period.
// A path is handled at most once per watcher; later modifications are ignored.
type FolderWatcher struct {
	dir     string
	settle  time.Duration
	handle  func(ctx context.Context, path string)
	watcher *fsnotify.Watcher

	pending map[string]time.Time
	handled map[string]bool
}

func NewFolderWatcher(dir string, settle time.Duration, handle func(ctx context.Context, path string)) (*FolderWatcher, error) {
	if settle <= 0 {
		settle = time.Second
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher failed: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s failed: %w", dir, err)
	}
	return &FolderWatcher{
		dir:     dir,
		settle:  settle,
		handle:  handle,
		watcher: watcher,
		pending: make(map[string]time.Time),
		handled: make(map[string]bool),
	}, nil
}

// ImportExisting ingests the supported files already in the folder and marks them
// handled, so later writes to them are ignored like those of any handled path.
func (w *FolderWatcher) ImportExisting(ctx context.Context, ingester batchIngester, batchSize int) ([]app.FileResult, error) {
	paths, err := supportedFiles(w.dir)
	if err != nil {
		return nil, err
	}
	for _, path := range paths {
		w.handled[path] = true
	}
	log.Printf("import %s: %d supported file(s)", w.dir, len(paths))
	return importPaths(ctx, ingester, paths, batchSize)
}

// Run processes events until ctx is done. It closes the underlying watcher on return.
func (w *FolderWatcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	ticker := time.NewTicker(w.settle / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.observe(event, time.Now())
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("watch %s error: %v", w.dir, err)
		case now := <-ticker.C:
			w.flush(ctx, now)
		}
	}
}

func (w *FolderWatcher) observe(event fsnotify.Event, now time.Time) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") || !extract.SupportedFile(name) {
		return
	}
	if w.handled[event.Name] {
		return
	}
	w.pending[event.Name] = now
}

func (w *FolderWatcher) flush(ctx context.Context, now time.Time) {
	for path, last := range w.pending {
		if now.Sub(last) < w.settle {
			continue
		}
		delete(w.pending, path)
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		w.handled[path] = true
		w.handle(ctx, path)
	}
}
