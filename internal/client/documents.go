package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"docs-go/internal/docs"
)

// DocumentsService handles document upload, listing and retrieval.
type DocumentsService struct {
	client *Client
}

// File is an in-memory file for upload.
type File struct {
	Name string
	Data []byte
}

// Upload uploads a single document, optionally into a folder.
func (s *DocumentsService) Upload(ctx context.Context, file File, folderID *int64) (*docs.Document, error) {
	var d docs.Document
	files := []formFile{{field: "file", filename: file.Name, data: file.Data}}
	if err := s.client.postForm(ctx, "/documents/upload", folderField(folderID), files, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// BatchUpload uploads several documents in one request.
func (s *DocumentsService) BatchUpload(ctx context.Context, files []File, folderID *int64) (*docs.BatchOperationResult, error) {
	parts := make([]formFile, 0, len(files))
	for _, f := range files {
		parts = append(parts, formFile{field: "files", filename: f.Name, data: f.Data})
	}
	var result docs.BatchOperationResult
	if err := s.client.postForm(ctx, "/documents/batch-upload", folderField(folderID), parts, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// List returns a page of documents matching q.
func (s *DocumentsService) List(ctx context.Context, q docs.DocumentQuery) (*docs.Page[docs.Document], error) {
	var page docs.Page[docs.Document]
	if err := s.client.get(ctx, "/documents", documentQueryValues(q), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Get returns a single document.
func (s *DocumentsService) Get(ctx context.Context, id int64) (*docs.Document, error) {
	var d docs.Document
	if err := s.client.get(ctx, fmt.Sprintf("/documents/%d", id), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Preview returns either a URL to the document or its extracted text.
func (s *DocumentsService) Preview(ctx context.Context, id int64) (*docs.Preview, error) {
	var p docs.Preview
	if err := s.client.get(ctx, fmt.Sprintf("/documents/%d/preview", id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Download streams the document's content into w and returns the filename
// suggested by the server.
func (s *DocumentsService) Download(ctx context.Context, id int64, w io.Writer) (string, error) {
	return s.client.download(ctx, request{method: http.MethodGet, path: fmt.Sprintf("/documents/%d/download", id)}, w)
}

// BatchDownload streams a zip archive of the given documents into w.
func (s *DocumentsService) BatchDownload(ctx context.Context, ids []int64, w io.Writer) (string, error) {
	body, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}
	r := request{method: http.MethodPost, path: "/documents/batch-download", body: body, contentType: contentTypeJSON}
	return s.client.download(ctx, r, w)
}

// DownloadFolder streams a zip archive of a folder's documents into w.
func (s *DocumentsService) DownloadFolder(ctx context.Context, folderID int64, w io.Writer) (string, error) {
	r := request{method: http.MethodGet, path: fmt.Sprintf("/documents/batch-download/folder/%d", folderID)}
	return s.client.download(ctx, r, w)
}

// Update renames a document or moves it between folders.
func (s *DocumentsService) Update(ctx context.Context, id int64, req docs.UpdateDocumentRequest) (*docs.Document, error) {
	var d docs.Document
	if err := s.client.put(ctx, fmt.Sprintf("/documents/%d", id), req, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Delete removes a document.
func (s *DocumentsService) Delete(ctx context.Context, id int64) error {
	return s.client.delete(ctx, fmt.Sprintf("/documents/%d", id), nil)
}

// BatchDelete removes several documents. Per-document failures are
// reported in the result rather than as an error.
func (s *DocumentsService) BatchDelete(ctx context.Context, ids []int64) (*docs.BatchOperationResult, error) {
	var result docs.BatchOperationResult
	body := map[string][]int64{"ids": ids}
	if err := s.client.doRequest(ctx, http.MethodDelete, "/documents/batch", nil, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// StorageInfo returns the user's storage usage and quota.
func (s *DocumentsService) StorageInfo(ctx context.Context) (*docs.StorageInfo, error) {
	var info docs.StorageInfo
	if err := s.client.get(ctx, "/documents/storage-info", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func folderField(folderID *int64) []formField {
	if folderID == nil {
		return nil
	}
	return []formField{{name: "folderId", value: strconv.FormatInt(*folderID, 10)}}
}

// documentQueryValues omits zero-valued filters.
func documentQueryValues(q docs.DocumentQuery) url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page))
	if q.Size > 0 {
		v.Set("size", strconv.Itoa(q.Size))
	}
	if q.Keyword != "" {
		v.Set("keyword", q.Keyword)
	}
	if q.FileType != "" {
		v.Set("fileType", q.FileType)
	}
	if q.FolderID != nil {
		v.Set("folderId", strconv.FormatInt(*q.FolderID, 10))
	}
	if q.SortBy != "" {
		v.Set("sortBy", q.SortBy)
	}
	if q.SortDirection != "" {
		v.Set("sortDirection", q.SortDirection)
	}
	return v
}
