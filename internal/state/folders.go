package state

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"docs-go/internal/docs"
)

// FolderStore holds the user's folders and the folder currently being browsed.
// This implementation is safe for concurrent use.
type FolderStore struct {
	mu      sync.RWMutex
	folders []docs.Folder
	current *docs.Folder
}

func NewFolderStore() *FolderStore {
	return &FolderStore{}
}

// Folders returns a copy of the held folders.
func (s *FolderStore) Folders() []docs.Folder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.folders)
}

// Set replaces the held folders.
func (s *FolderStore) Set(list []docs.Folder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.folders = slices.Clone(list)
}

// Add appends f.
func (s *FolderStore) Add(f docs.Folder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.folders = append(s.folders, f)
}

// Update applies patch to the folder with the given id. Unknown ids are ignored.
func (s *FolderStore) Update(id int64, patch docs.FolderPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		s.folders[i] = patch.Apply(s.folders[i])
	}
}

func (s *FolderStore) Remove(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.folders = slices.DeleteFunc(s.folders, func(f docs.Folder) bool { return f.ID == id })
}

func (s *FolderStore) indexLocked(id int64) int {
	return slices.IndexFunc(s.folders, func(f docs.Folder) bool { return f.ID == id })
}

// SetCurrent records the folder being browsed. nil means the root.
func (s *FolderStore) SetCurrent(f *docs.Folder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f == nil {
		s.current = nil
		return
	}
	c := *f
	s.current = &c
}

func (s *FolderStore) Current() *docs.Folder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	c := *s.current
	return &c
}

// Roots returns the folders without a parent.
func (s *FolderStore) Roots() []docs.Folder {
	return s.ByParent(nil)
}

// ByParent returns the children of parentID, or the roots when parentID is nil.
func (s *FolderStore) ByParent(parentID *int64) []docs.Folder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []docs.Folder
	for _, f := range s.folders {
		if parentID == nil && f.ParentID == nil ||
			parentID != nil && f.ParentID != nil && *f.ParentID == *parentID {
			out = append(out, f)
		}
	}
	return out
}

// Path returns the chain of folders from the root down to id. The walk stops
// at a parent that is not held or at a folder already visited, so an
// inconsistent parent chain yields a partial path.
func (s *FolderStore) Path(id int64) []docs.Folder {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var path []docs.Folder
	seen := make(map[int64]bool)
	next := &id
	for next != nil && !seen[*next] {
		i := s.indexLocked(*next)
		if i < 0 {
			break
		}
		f := s.folders[i]
		seen[f.ID] = true
		path = append(path, f)
		next = f.ParentID
	}
	slices.Reverse(path)
	return path
}

// Tree renders the folder hierarchy as indented lines, one folder per line.
// Folders unreachable from a root are not shown.
func (s *FolderStore) Tree() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	children := make(map[int64][]docs.Folder)
	var roots []docs.Folder
	for _, f := range s.folders {
		if f.ParentID == nil {
			roots = append(roots, f)
			continue
		}
		children[*f.ParentID] = append(children[*f.ParentID], f)
	}

	var b strings.Builder
	seen := make(map[int64]bool)
	var walk func(f docs.Folder, depth int)
	walk = func(f docs.Folder, depth int) {
		if seen[f.ID] {
			return
		}
		seen[f.ID] = true
		fmt.Fprintf(&b, "%s%s (%d)\n", strings.Repeat("  ", depth), f.Name, f.ID)
		for _, c := range children[f.ID] {
			walk(c, depth+1)
		}
	}
	for _, r := range roots {
		walk(r, 0)
	}
	return b.String()
}
