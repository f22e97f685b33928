// Package state holds client-side snapshots of server collections together
// with local edits and the views derived from them.
package state

import (
	"slices"
	"sync"

	"docs-go/internal/docs"
)

// Query defaults.
const (
	DefaultPageSize      = 20
	DefaultSortBy        = "createdAt"
	DefaultSortDirection = "DESC"
)

// Pagination describes the page last loaded into a DocumentStore.
type Pagination struct {
	Page          int
	TotalPages    int
	TotalElements int64
	Size          int
}

// DocumentStore holds the current page of documents, the user's selection,
// upload progress and the active list filters.
// This implementation is safe for concurrent use.
type DocumentStore struct {
	mu             sync.RWMutex
	documents      []docs.Document
	selected       []int64
	pagination     Pagination
	uploadProgress map[string]int // file id -> percent
	storage        *docs.StorageInfo

	keyword       string
	fileType      string
	folderID      *int64
	sortBy        string
	sortDirection string
}

// NewDocumentStore creates an empty store with the default query settings.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		pagination:     Pagination{Size: DefaultPageSize},
		uploadProgress: make(map[string]int),
		sortBy:         DefaultSortBy,
		sortDirection:  DefaultSortDirection,
	}
}

// Documents returns a copy of the held documents.
func (s *DocumentStore) Documents() []docs.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.documents)
}

// Set replaces the held documents.
func (s *DocumentStore) Set(list []docs.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents = slices.Clone(list)
}

// SetPage replaces the held documents and pagination from a server page.
func (s *DocumentStore) SetPage(p docs.Page[docs.Document]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents = slices.Clone(p.Content)
	s.pagination.Page = p.Number
	s.pagination.TotalPages = p.TotalPages
	s.pagination.TotalElements = p.TotalElements
	if p.Size > 0 {
		s.pagination.Size = p.Size
	}
}

// Add puts d at the front of the list.
func (s *DocumentStore) Add(d docs.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents = slices.Insert(s.documents, 0, d)
}

// Update applies patch to the document with the given id. Unknown ids are ignored.
func (s *DocumentStore) Update(id int64, patch docs.DocumentPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		s.documents[i] = patch.Apply(s.documents[i])
	}
}

// Remove drops the document with the given id from the list and the selection.
func (s *DocumentStore) Remove(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents = slices.DeleteFunc(s.documents, func(d docs.Document) bool { return d.ID == id })
	s.selected = slices.DeleteFunc(s.selected, func(v int64) bool { return v == id })
}

// Get returns the held document with the given id.
func (s *DocumentStore) Get(id int64) (docs.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.documents[i], true
	}
	return docs.Document{}, false
}

func (s *DocumentStore) indexLocked(id int64) int {
	return slices.IndexFunc(s.documents, func(d docs.Document) bool { return d.ID == id })
}

// SetPagination records the position of the loaded page.
func (s *DocumentStore) SetPagination(page, totalPages int, totalElements int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pagination.Page = page
	s.pagination.TotalPages = totalPages
	s.pagination.TotalElements = totalElements
}

// SetPageSize changes the number of documents requested per page.
// Non-positive sizes restore the default.
func (s *DocumentStore) SetPageSize(size int) {
	if size <= 0 {
		size = DefaultPageSize
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pagination.Size = size
}

func (s *DocumentStore) Pagination() Pagination {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pagination
}

// Toggle adds id to the selection, or removes it if already selected.
func (s *DocumentStore) Toggle(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := slices.Index(s.selected, id); i >= 0 {
		s.selected = slices.Delete(s.selected, i, i+1)
		return
	}
	s.selected = append(s.selected, id)
}

// SelectAll selects every held document.
func (s *DocumentStore) SelectAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = make([]int64, 0, len(s.documents))
	for _, d := range s.documents {
		s.selected = append(s.selected, d.ID)
	}
}

func (s *DocumentStore) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = nil
}

// Selected returns the selected ids in selection order.
func (s *DocumentStore) Selected() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.selected)
}

func (s *DocumentStore) HasSelection() bool {
	return s.SelectedCount() > 0
}

func (s *DocumentStore) SelectedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.selected)
}

// IsAllSelected reports whether the store holds documents and all of them are selected.
func (s *DocumentStore) IsAllSelected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents) > 0 && len(s.selected) == len(s.documents)
}

// SetUploadProgress records percent (0-100) for an in-flight upload.
func (s *DocumentStore) SetUploadProgress(fileID string, percent int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploadProgress[fileID] = percent
}

func (s *DocumentStore) RemoveUploadProgress(fileID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.uploadProgress, fileID)
}

func (s *DocumentStore) ClearUploadProgress() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.uploadProgress)
}

// UploadProgress returns the recorded percent for fileID.
func (s *DocumentStore) UploadProgress(fileID string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.uploadProgress[fileID]
	return p, ok
}

func (s *DocumentStore) SetStorageInfo(info docs.StorageInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.storage = &info
}

// StorageInfo returns the last recorded quota usage, or nil if none was loaded.
func (s *DocumentStore) StorageInfo() *docs.StorageInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.storage == nil {
		return nil
	}
	info := *s.storage
	return &info
}

func (s *DocumentStore) SetSearchKeyword(keyword string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keyword = keyword
}

// SetFileTypeFilter restricts the list to one file type. An empty string removes the filter.
func (s *DocumentStore) SetFileTypeFilter(fileType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fileType = fileType
}

// SetFolderFilter restricts the list to one folder. nil removes the filter.
func (s *DocumentStore) SetFolderFilter(folderID *int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.folderID = cloneID(folderID)
}

func (s *DocumentStore) SetSorting(field, direction string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sortBy = field
	s.sortDirection = direction
}

// ResetFilters clears the keyword, file type and folder filters and returns
// to the first page. Sorting is kept.
func (s *DocumentStore) ResetFilters() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keyword = ""
	s.fileType = ""
	s.folderID = nil
	s.pagination.Page = 0
}

// QueryParams builds the list query for the current page and filters.
func (s *DocumentStore) QueryParams() docs.DocumentQuery {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return docs.DocumentQuery{
		Page:          s.pagination.Page,
		Size:          s.pagination.Size,
		Keyword:       s.keyword,
		FileType:      s.fileType,
		FolderID:      cloneID(s.folderID),
		SortBy:        s.sortBy,
		SortDirection: s.sortDirection,
	}
}

func cloneID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
