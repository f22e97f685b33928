// Package fs finds local files to upload.
package fs

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// LocalFile is a regular file selected for upload.
type LocalFile struct {
	Path    string // absolute path
	Rel     string // path relative to the discovery root, slash-separated
	Size    int64
	ModTime time.Time
}

// Discover resolves each argument to the regular files it names. Files are
// taken as given; directories are listed (recursively when recursive is set)
// with patterns from extra and the directory's .docsignore applied.
// Symlinks and special files are skipped. The result is sorted by path and
// contains each file once.
func Discover(args []string, recursive bool, extra []string) ([]LocalFile, error) {
	seen := make(map[string]bool)
	var files []LocalFile
	add := func(f LocalFile) {
		if !seen[f.Path] {
			seen[f.Path] = true
			files = append(files, f)
		}
	}

	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, fmt.Errorf("resolving absolute path: %w", err)
		}
		info, err := os.Lstat(abs)
		if err != nil {
			return nil, fmt.Errorf("stat path: %w", err)
		}

		switch {
		case info.Mode().IsRegular():
			add(LocalFile{Path: abs, Rel: filepath.Base(abs), Size: info.Size(), ModTime: info.ModTime()})
		case info.IsDir():
			found, err := discoverDir(abs, recursive, extra)
			if err != nil {
				return nil, err
			}
			for _, f := range found {
				add(f)
			}
		default:
			return nil, fmt.Errorf("unsupported file type: %s", abs)
		}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func discoverDir(root string, recursive bool, extra []string) ([]LocalFile, error) {
	fromFile, err := ParseIgnoreFile(filepath.Join(root, IgnoreFileName))
	if err != nil {
		return nil, err
	}
	matcher := DefaultIgnoreMatcher(append(append([]string{}, extra...), fromFile...))

	var files []LocalFile
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !recursive || matcher.MatchDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || matcher.Match(rel) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", p, err)
		}
		files = append(files, LocalFile{Path: p, Rel: filepath.ToSlash(rel), Size: info.Size(), ModTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}
	return files, nil
}
