// Package watch uploads files as they appear in a local directory.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"docs-go/internal/docs"
	"docs-go/internal/fs"
)

// DefaultQuiet is how long a file must go without writes before it is uploaded.
const DefaultQuiet = 500 * time.Millisecond

// UploadFunc uploads one settled file.
type UploadFunc func(ctx context.Context, f fs.LocalFile) error

// Watcher watches a single directory (not its subdirectories) and calls
// Upload once for each file that is created or rewritten, after the file has
// been quiet for Quiet. Upload errors are logged and do not stop the watch
// unless Fatal says so.
type Watcher struct {
	Dir    string
	Upload UploadFunc
	Ignore []string
	Quiet  time.Duration
	Logger docs.Logger

	// Fatal, when set, reports whether an Upload error ends the watch.
	Fatal func(error) bool

	// ready, when set, is closed once the directory is being watched.
	ready chan struct{}
}

// Run watches until ctx is cancelled or an upload fails fatally. It returns
// nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	if w.Logger == nil {
		w.Logger = docs.NewNopLogger()
	}
	quiet := w.Quiet
	if quiet <= 0 {
		quiet = DefaultQuiet
	}

	extra, err := fs.ParseIgnoreFile(filepath.Join(w.Dir, fs.IgnoreFileName))
	if err != nil {
		return err
	}
	matcher := fs.DefaultIgnoreMatcher(append(append([]string{}, w.Ignore...), extra...))

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.Dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.Dir, err)
	}
	w.Logger.Info("watching directory", "dir", w.Dir)
	if w.ready != nil {
		close(w.ready)
	}

	pending := make(map[string]time.Time)
	tick := time.NewTicker(quiet / 2)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return errors.New("watcher closed")
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if matcher.Match(filepath.Base(ev.Name)) {
				continue
			}
			pending[ev.Name] = time.Now()

		case err, ok := <-fw.Errors:
			if !ok {
				return errors.New("watcher closed")
			}
			w.Logger.Warn("watch error", "error", err)

		case now := <-tick.C:
			for _, path := range settled(pending, now, quiet) {
				delete(pending, path)
				if err := w.upload(ctx, path); err != nil && w.Fatal != nil && w.Fatal(err) {
					return fmt.Errorf("uploading %s: %w", filepath.Base(path), err)
				}
			}
		}
	}
}

// settled returns the pending paths last touched at least quiet ago, sorted.
func settled(pending map[string]time.Time, now time.Time, quiet time.Duration) []string {
	var out []string
	for path, last := range pending {
		if now.Sub(last) >= quiet {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out
}

func (w *Watcher) upload(ctx context.Context, path string) error {
	info, err := os.Lstat(path)
	if err != nil || !info.Mode().IsRegular() {
		return nil
	}
	f := fs.LocalFile{Path: path, Rel: filepath.Base(path), Size: info.Size(), ModTime: info.ModTime()}
	if err := w.Upload(ctx, f); err != nil {
		w.Logger.Error("upload failed", "file", f.Rel, "error", err)
		return err
	}
	w.Logger.Info("uploaded", "file", f.Rel, "size", f.Size)
	return nil
}
