package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopherai-kb/internal/app"
	"gopherai-kb/internal/model"
)

type recordingBatchIngester struct {
	batches [][]string
}

func (r *recordingBatchIngester) IngestBatch(_ context.Context, inputs []app.IngestInput) []app.FileResult {
	names := make([]string, 0, len(inputs))
	results := make([]app.FileResult, 0, len(inputs))
	for i, in := range inputs {
		names = append(names, in.Name)
		res := &app.IngestResult{Document: model.Document{ID: uint(i + 1), Name: in.Name}, ChunkCount: 1, Stage: app.StageStored}
		results = append(results, app.NewFileResult(in.Name, res, nil))
	}
	r.batches = append(r.batches, names)
	return results
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestImportFolderSkipsUnsupportedAndBatches(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "alpha")
	writeFile(t, dir, "b.md", "# beta")
	writeFile(t, dir, "c.csv", "x,y\n1,2\n")
	writeFile(t, dir, "photo.png", "png")
	writeFile(t, dir, ".hidden.txt", "secret")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.txt"), 0o755))

	ingester := &recordingBatchIngester{}
	results, err := importFolder(context.Background(), ingester, dir, 2)
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"a.txt", "b.md"}, {"c.csv"}}, ingester.batches)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.True(t, r.Success)
	}
}

func TestImportFolderMissingDir(t *testing.T) {
	_, err := importFolder(context.Background(), &recordingBatchIngester{}, filepath.Join(t.TempDir(), "missing"), 10)
	assert.Error(t, err)
}

func TestPrintFileResults(t *testing.T) {
	var buf bytes.Buffer
	results := []app.FileResult{
		app.NewFileResult("a.txt", &app.IngestResult{Document: model.Document{ID: 3}, ChunkCount: 2, Stage: app.StageStored}, nil),
		app.NewFileResult("b.png", nil, assert.AnError),
	}
	require.NoError(t, printFileResults(&buf, results))
	out := buf.String()
	assert.Contains(t, out, "ok      a.txt  (document 3, 2 chunks)")
	assert.Contains(t, out, "failed  b.png")
	assert.Contains(t, out, "1 of 2 file(s) ingested")
}

func TestFolderWatcherDebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	w, err := NewFolderWatcher(dir, 50*time.Millisecond, nil)
	require.NoError(t, err)
	defer w.watcher.Close()

	var handled []string
	w.handle = func(_ context.Context, path string) { handled = append(handled, filepath.Base(path)) }

	report := filepath.Join(dir, "report.txt")
	require.NoError(t, os.WriteFile(report, []byte("x"), 0o644))
	start := time.Now()
	w.observe(fsnotify.Event{Name: report, Op: fsnotify.Create}, start)
	w.observe(fsnotify.Event{Name: report, Op: fsnotify.Write}, start.Add(40*time.Millisecond))
	w.observe(fsnotify.Event{Name: filepath.Join(dir, "photo.png"), Op: fsnotify.Create}, start)
	w.observe(fsnotify.Event{Name: filepath.Join(dir, ".draft.txt"), Op: fsnotify.Create}, start)
	w.observe(fsnotify.Event{Name: report, Op: fsnotify.Chmod}, start.Add(45*time.Millisecond))

	w.flush(context.Background(), start.Add(60*time.Millisecond))
	assert.Empty(t, handled, "a write inside the settle period restarts it")

	w.flush(context.Background(), start.Add(100*time.Millisecond))
	assert.Equal(t, []string{"report.txt"}, handled)

	w.observe(fsnotify.Event{Name: report, Op: fsnotify.Write}, start.Add(200*time.Millisecond))
	w.flush(context.Background(), start.Add(time.Second))
	assert.Equal(t, []string{"report.txt"}, handled, "handled paths are not ingested twice")
}

func TestFolderWatcherImportsExistingFilesOnce(t *testing.T) {
	dir := t.TempDir()
	existing := writeFile(t, dir, "existing.txt", "already here")
	writeFile(t, dir, "photo.png", "png")

	var handled []string
	w, err := NewFolderWatcher(dir, 10*time.Millisecond, func(_ context.Context, path string) {
		handled = append(handled, filepath.Base(path))
	})
	require.NoError(t, err)
	defer w.watcher.Close()

	ingester := &recordingBatchIngester{}
	results, err := w.ImportExisting(context.Background(), ingester, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, [][]string{{"existing.txt"}}, ingester.batches)

	added := writeFile(t, dir, "added.txt", "new")
	start := time.Now()
	w.observe(fsnotify.Event{Name: existing, Op: fsnotify.Write}, start)
	w.observe(fsnotify.Event{Name: added, Op: fsnotify.Create}, start)
	w.flush(context.Background(), start.Add(time.Second))

	assert.Equal(t, []string{"added.txt"}, handled, "imported files are not ingested again")
}

func TestFolderWatcherRun(t *testing.T) {
	dir := t.TempDir()
	got := make(chan string, 4)
	w, err := NewFolderWatcher(dir, 20*time.Millisecond, func(_ context.Context, path string) {
		got <- filepath.Base(path)
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	writeFile(t, dir, "ignored.png", "png")
	writeFile(t, dir, "notes.md", "# notes")
	writeFile(t, dir, "memo.txt", "memo")

	var names []string
	for len(names) < 2 {
		select {
		case name := <-got:
			names = append(names, name)
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out, handled %v", names)
		}
	}
	sort.Strings(names)
	assert.Equal(t, []string{"memo.txt", "notes.md"}, names)

	cancel()
	require.NoError(t, <-done)
}

func TestNewFolderWatcherMissingDir(t *testing.T) {
	_, err := NewFolderWatcher(filepath.Join(t.TempDir(), "missing"), time.Second, nil)
	assert.Error(t, err)
}
