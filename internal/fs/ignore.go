package fs

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// IgnoreFileName is the per-directory file listing patterns to skip on upload.
const IgnoreFileName = ".docsignore"

// defaultIgnorePatterns come before configured and .docsignore patterns.
var defaultIgnorePatterns = []string{IgnoreFileName, ".DS_Store", "Thumbs.db", "~$*"}

type ignorePattern struct {
	glob     string
	anchored bool // contains '/': matched against the slash-separated relative path
	dirOnly  bool // trailing '/'
	negate   bool // leading '!': re-includes what an earlier pattern excluded
}

func (p ignorePattern) matches(slashPath, base string, isDir bool) bool {
	if p.dirOnly && !isDir {
		return false
	}
	target := base
	if p.anchored {
		target = slashPath
	}
	ok, err := filepath.Match(p.glob, target)
	return err == nil && ok
}

// IgnoreMatcher decides which files an upload skips. Patterns follow a
// subset of .gitignore: a pattern without '/' matches the base name at any
// depth, one with '/' matches the path relative to the upload root, a
// trailing '/' only matches directories and a leading '!' re-includes.
// The last matching pattern decides.
type IgnoreMatcher struct {
	patterns []ignorePattern
}

// NewIgnoreMatcher compiles lines of ignore patterns. Blank lines and
// '#' comments are dropped.
func NewIgnoreMatcher(lines []string) *IgnoreMatcher {
	m := &IgnoreMatcher{}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var p ignorePattern
		if rest, ok := strings.CutPrefix(line, "!"); ok {
			p.negate = true
			line = rest
		}
		if rest, ok := strings.CutSuffix(line, "/"); ok {
			p.dirOnly = true
			line = strings.TrimRight(rest, "/")
		}
		if line == "" {
			continue
		}
		p.glob = line
		p.anchored = strings.Contains(line, "/")
		m.patterns = append(m.patterns, p)
	}
	return m
}

// DefaultIgnoreMatcher puts the built-in patterns ahead of extra, so extra
// can re-include one of them.
func DefaultIgnoreMatcher(extra []string) *IgnoreMatcher {
	return NewIgnoreMatcher(append(append([]string{}, defaultIgnorePatterns...), extra...))
}

// Match reports whether the file at relativePath is skipped.
func (m *IgnoreMatcher) Match(relativePath string) bool {
	return m.ignored(relativePath, false)
}

// MatchDir reports whether the directory at relativePath is skipped whole.
func (m *IgnoreMatcher) MatchDir(relativePath string) bool {
	return m.ignored(relativePath, true)
}

func (m *IgnoreMatcher) ignored(relativePath string, isDir bool) bool {
	if relativePath == "" {
		return false
	}
	slashPath := filepath.ToSlash(relativePath)
	base := filepath.Base(relativePath)

	ignored := false
	for _, p := range m.patterns {
		if p.matches(slashPath, base, isDir) {
			ignored = !p.negate
		}
	}
	return ignored
}

// ParseIgnoreFile returns the lines of the ignore file at path, or nil when
// there is none.
func ParseIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		patterns = append(patterns, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return patterns, nil
}
