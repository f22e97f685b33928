package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"

	"docs-go/internal/docs"
)

// ErrUploadIncomplete is returned when every chunk was sent but the server
// did not assemble a document.
var ErrUploadIncomplete = errors.New("chunked upload finished without a document")

// ChunkedService handles resumable uploads of large files.
type ChunkedService struct {
	client *Client
}

// UploadProgress is called after every chunk with the bytes uploaded so far.
type UploadProgress func(uploaded, total int64)

// UploadedChunks returns the indexes of the chunks the server already holds
// for fileIdentifier.
func (s *ChunkedService) UploadedChunks(ctx context.Context, fileIdentifier string) ([]int, error) {
	var chunks []int
	query := url.Values{"fileIdentifier": {fileIdentifier}}
	if err := s.client.get(ctx, "/documents/chunked/uploaded-chunks", query, &chunks); err != nil {
		return nil, err
	}
	return chunks, nil
}

// UploadChunk uploads one chunk. The response carries the assembled
// document once the last chunk has arrived.
func (s *ChunkedService) UploadChunk(ctx context.Context, req docs.ChunkUploadRequest, data []byte) (*docs.ChunkUploadResponse, error) {
	fields := []formField{
		{name: "fileIdentifier", value: req.FileIdentifier},
		{name: "chunkIndex", value: strconv.Itoa(req.ChunkIndex)},
		{name: "totalChunks", value: strconv.Itoa(req.TotalChunks)},
		{name: "filename", value: req.Filename},
		{name: "totalSize", value: strconv.FormatInt(req.TotalSize, 10)},
	}
	fields = append(fields, folderField(req.FolderID)...)
	files := []formFile{{field: "chunk", filename: req.Filename, data: data}}

	var resp docs.ChunkUploadResponse
	if err := s.client.postForm(ctx, "/documents/chunked/upload", fields, files, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Cancel discards the chunks uploaded for fileIdentifier.
func (s *ChunkedService) Cancel(ctx context.Context, fileIdentifier string) error {
	return s.client.delete(ctx, "/documents/chunked/cancel", url.Values{"fileIdentifier": {fileIdentifier}})
}

// UploadFile uploads r in chunks under a fresh identifier.
func (s *ChunkedService) UploadFile(ctx context.Context, filename string, r io.ReaderAt, size int64, folderID *int64, progress UploadProgress) (*docs.Document, error) {
	return s.ResumeFile(ctx, s.client.ids.New(), filename, r, size, folderID, progress)
}

// ResumeFile uploads the chunks of r that the server does not yet hold for
// fileIdentifier, in index order. When the server already holds every chunk
// the last one is sent again, since the server only assembles the document
// when a chunk completes the set.
func (s *ChunkedService) ResumeFile(ctx context.Context, fileIdentifier, filename string, r io.ReaderAt, size int64, folderID *int64, progress UploadProgress) (*docs.Document, error) {
	chunkSize := s.client.chunkSize
	totalChunks := int((size + chunkSize - 1) / chunkSize)
	if totalChunks == 0 {
		totalChunks = 1
	}

	held, err := s.UploadedChunks(ctx, fileIdentifier)
	if err != nil {
		return nil, fmt.Errorf("listing uploaded chunks: %w", err)
	}
	done := make(map[int]bool, len(held))
	for _, idx := range held {
		if idx >= 0 && idx < totalChunks {
			done[idx] = true
		}
	}
	if len(done) == totalChunks {
		delete(done, totalChunks-1)
	}

	var uploaded int64
	var document *docs.Document
	buf := make([]byte, chunkSize)
	for idx := 0; idx < totalChunks; idx++ {
		offset := int64(idx) * chunkSize
		length := min(chunkSize, size-offset)
		if done[idx] {
			uploaded += length
			continue
		}

		chunk := buf[:length]
		if _, err := r.ReadAt(chunk, offset); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("reading chunk %d: %w", idx, err)
		}

		resp, err := s.UploadChunk(ctx, docs.ChunkUploadRequest{
			FileIdentifier: fileIdentifier,
			ChunkIndex:     idx,
			TotalChunks:    totalChunks,
			Filename:       filename,
			TotalSize:      size,
			FolderID:       folderID,
		}, chunk)
		if err != nil {
			return nil, fmt.Errorf("uploading chunk %d of %s (id %s): %w", idx, filename, fileIdentifier, err)
		}

		uploaded += length
		if progress != nil {
			progress(uploaded, size)
		}
		if resp.Completed && resp.Document != nil {
			document = resp.Document
		}
	}

	if document == nil {
		return nil, fmt.Errorf("%w (id %s)", ErrUploadIncomplete, fileIdentifier)
	}
	return document, nil
}
