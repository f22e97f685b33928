package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"docs-go/internal/client"
	"docs-go/internal/database"
	"docs-go/internal/docs"
	"docs-go/internal/fs"
	"docs-go/internal/state"
	"docs-go/internal/watch"
)

// DocumentFilter selects a page of documents. Zero values fall back to the
// list defaults (first page, 20 per page, newest first).
type DocumentFilter struct {
	Page          int
	Size          int
	Keyword       string
	FileType      string
	FolderID      *int64
	SortBy        string
	SortDirection string
}

// UploadResult is the outcome of uploading one local file.
type UploadResult struct {
	File     fs.LocalFile
	Document *docs.Document
	Chunked  bool
	Err      error
}

// DownloadResult is a document written to the vault.
type DownloadResult struct {
	ID       int64
	Filename string
	Location string
	Size     int64
}

// ListDocuments fetches one page of documents and returns it together with
// the resulting pagination.
func (a *DocsApp) ListDocuments(ctx context.Context, f DocumentFilter) ([]docs.Document, state.Pagination, error) {
	a.documents.SetSearchKeyword(f.Keyword)
	a.documents.SetFileTypeFilter(f.FileType)
	a.documents.SetFolderFilter(f.FolderID)
	if f.SortBy != "" || f.SortDirection != "" {
		by, dir := f.SortBy, f.SortDirection
		if by == "" {
			by = state.DefaultSortBy
		}
		if dir == "" {
			dir = state.DefaultSortDirection
		}
		a.documents.SetSorting(by, dir)
	}
	a.documents.SetPageSize(f.Size)
	a.documents.SetPagination(f.Page, 0, 0)

	page, err := a.client.Documents.List(ctx, a.documents.QueryParams())
	if err != nil {
		return nil, state.Pagination{}, err
	}
	a.documents.SetPage(*page)
	return a.documents.Documents(), a.documents.Pagination(), nil
}

// GetDocument returns a single document's metadata.
func (a *DocsApp) GetDocument(ctx context.Context, id int64) (*docs.Document, error) {
	return a.client.Documents.Get(ctx, id)
}

// PreviewDocument returns a document's preview URL or extracted text.
func (a *DocsApp) PreviewDocument(ctx context.Context, id int64) (*docs.Preview, error) {
	return a.client.Documents.Preview(ctx, id)
}

// UploadDocuments uploads the files named by args one at a time. Files larger
// than the configured chunk threshold use the resumable chunked upload.
// A failed file does not stop the others; the returned error joins every
// per-file failure.
func (a *DocsApp) UploadDocuments(ctx context.Context, args []string, recursive bool, folderID *int64) ([]UploadResult, error) {
	if err := a.persistOperation(strings.Join(args, " ")); err != nil {
		return nil, err
	}
	files, err := fs.Discover(args, recursive, a.cfg.Upload.Ignore)
	if err != nil {
		return nil, a.op.Fail(err)
	}

	results := make([]UploadResult, 0, len(files))
	var errs []error
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res := UploadResult{File: f, Chunked: f.Size > a.cfg.Upload.ChunkThreshold}
		res.Document, res.Err = a.uploadFile(ctx, f, folderID)
		if res.Err != nil {
			a.logger.Error("upload failed", "file", f.Rel, "error", res.Err)
			errs = append(errs, fmt.Errorf("%s: %w", f.Rel, res.Err))
		}
		results = append(results, res)
	}
	return results, a.op.Fail(errors.Join(errs...))
}

func (a *DocsApp) uploadFile(ctx context.Context, f fs.LocalFile, folderID *int64) (*docs.Document, error) {
	name := filepath.Base(f.Path)

	var d *docs.Document
	if f.Size > a.cfg.Upload.ChunkThreshold {
		file, err := os.Open(f.Path)
		if err != nil {
			return nil, fmt.Errorf("opening file: %w", err)
		}
		defer file.Close()

		progress := func(uploaded, total int64) {
			a.documents.SetUploadProgress(f.Rel, percent(uploaded, total))
			a.logger.Debug("chunk uploaded", "file", f.Rel, "uploaded", uploaded, "total", total)
		}
		d, err = a.uploadChunked(ctx, f, file, folderID, progress)
		a.documents.RemoveUploadProgress(f.Rel)
		if err != nil {
			return nil, err
		}
	} else {
		data, err := os.ReadFile(f.Path)
		if err != nil {
			return nil, fmt.Errorf("reading file: %w", err)
		}
		if d, err = a.client.Documents.Upload(ctx, client.File{Name: name, Data: data}, folderID); err != nil {
			return nil, err
		}
	}

	a.documents.Add(*d)
	a.logger.Info("uploaded", "file", f.Rel, "document_id", d.ID, "size", f.Size)
	return d, nil
}

// uploadChunked uploads f in chunks. The file identifier is kept in the
// local store until the upload completes, so an interrupted upload of the
// same unchanged file resumes with the chunks the server already holds.
func (a *DocsApp) uploadChunked(ctx context.Context, f fs.LocalFile, r io.ReaderAt, folderID *int64, progress client.UploadProgress) (*docs.Document, error) {
	store := a.db.Store(database.ScopeLocal)
	key := pendingUploadKey(f)

	ident, ok, err := store.Get(key)
	if err != nil {
		return nil, fmt.Errorf("reading pending upload: %w", err)
	}
	if ok {
		a.logger.Info("resuming upload", "file", f.Rel, "file_identifier", ident)
	} else {
		ident = a.ids.New()
		if err := store.Set(key, ident); err != nil {
			return nil, fmt.Errorf("recording pending upload: %w", err)
		}
	}

	d, err := a.client.Chunked.ResumeFile(ctx, ident, filepath.Base(f.Path), r, f.Size, folderID, progress)
	if errors.Is(err, client.ErrUploadIncomplete) {
		// Resuming these chunks again would end the same way; the next run starts over.
		if cerr := a.client.Chunked.Cancel(ctx, ident); cerr != nil {
			a.logger.Warn("cancelling incomplete upload", "file", f.Rel, "file_identifier", ident, "error", cerr)
		}
		if derr := store.Delete(key); derr != nil {
			a.logger.Warn("clearing pending upload", "file", f.Rel, "error", derr)
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	if err := store.Delete(key); err != nil {
		a.logger.Warn("clearing pending upload", "file", f.Rel, "error", err)
	}
	return d, nil
}

// pendingUploadKey identifies a local file version; any change to the file
// starts a fresh upload.
func pendingUploadKey(f fs.LocalFile) string {
	return fmt.Sprintf("pending_upload:%s:%d:%d", f.Path, f.Size, f.ModTime.UnixNano())
}

func percent(done, total int64) int {
	if total <= 0 {
		return 100
	}
	return int(done * 100 / total)
}

// BatchUploadDocuments uploads the files named by args in a single request.
func (a *DocsApp) BatchUploadDocuments(ctx context.Context, args []string, recursive bool, folderID *int64) (*docs.BatchOperationResult, error) {
	if err := a.persistOperation(strings.Join(args, " ")); err != nil {
		return nil, err
	}
	files, err := fs.Discover(args, recursive, a.cfg.Upload.Ignore)
	if err != nil {
		return nil, a.op.Fail(err)
	}
	if len(files) == 0 {
		return nil, a.op.Fail(errors.New("no files to upload"))
	}

	upload := make([]client.File, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f.Path)
		if err != nil {
			return nil, a.op.Fail(fmt.Errorf("reading %s: %w", f.Rel, err))
		}
		upload = append(upload, client.File{Name: filepath.Base(f.Path), Data: data})
	}

	result, err := a.client.Documents.BatchUpload(ctx, upload, folderID)
	if err != nil {
		return nil, a.op.Fail(err)
	}
	if result.FailureCount > 0 {
		a.op.Status = StatusError
	}
	return result, nil
}

// DownloadDocuments downloads documents concurrently, at most
// download.concurrency at a time, and writes each to the vault under the
// filename the server suggests. The first failure cancels the rest.
func (a *DocsApp) DownloadDocuments(ctx context.Context, ids []int64) ([]DownloadResult, error) {
	if err := a.vault.ValidateSetup(); err != nil {
		return nil, err
	}

	results := make([]DownloadResult, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Download.Concurrency)
	for i, id := range ids {
		g.Go(func() error {
			var buf bytes.Buffer
			filename, err := a.client.Documents.Download(gctx, id, &buf)
			if err != nil {
				return fmt.Errorf("downloading document %d: %w", id, err)
			}
			name := vaultName(filename, fmt.Sprintf("document-%d", id))
			size := int64(buf.Len())
			if err := a.vault.Put(name, &buf, size); err != nil {
				return fmt.Errorf("storing document %d: %w", id, err)
			}
			results[i] = DownloadResult{ID: id, Filename: name, Location: a.vault.Location(name), Size: size}
			a.logger.Info("downloaded", "document_id", id, "location", results[i].Location)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// vaultName reduces a server-suggested filename to a single path element.
func vaultName(filename, fallback string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == ".." || name == "" {
		return fallback
	}
	return name
}

// RenameDocument changes a document's filename.
func (a *DocsApp) RenameDocument(ctx context.Context, id int64, filename string) (*docs.Document, error) {
	if err := a.persistOperation(fmt.Sprintf("%d %s", id, filename)); err != nil {
		return nil, err
	}
	d, err := a.client.Documents.Update(ctx, id, docs.UpdateDocumentRequest{Filename: &filename})
	if err != nil {
		return nil, a.op.Fail(err)
	}
	a.documents.Update(id, docs.DocumentPatch{Filename: &d.Filename})
	return d, nil
}

// MoveDocument moves a document into a folder.
func (a *DocsApp) MoveDocument(ctx context.Context, id, folderID int64) (*docs.Document, error) {
	if err := a.persistOperation(fmt.Sprintf("%d %d", id, folderID)); err != nil {
		return nil, err
	}
	d, err := a.client.Documents.Update(ctx, id, docs.UpdateDocumentRequest{FolderID: &folderID})
	if err != nil {
		return nil, a.op.Fail(err)
	}
	a.documents.Update(id, docs.DocumentPatch{FolderID: &folderID, FolderName: &d.FolderName})
	return d, nil
}

// DeleteDocuments deletes one document directly or several in one batch.
// Per-document failures of a batch are reported in the result.
func (a *DocsApp) DeleteDocuments(ctx context.Context, ids []int64) (*docs.BatchOperationResult, error) {
	if err := a.persistOperation(joinIDs(ids)); err != nil {
		return nil, err
	}
	switch len(ids) {
	case 0:
		return nil, a.op.Fail(errors.New("no documents given"))
	case 1:
		if err := a.client.Documents.Delete(ctx, ids[0]); err != nil {
			return nil, a.op.Fail(err)
		}
		a.documents.Remove(ids[0])
		return &docs.BatchOperationResult{SuccessCount: 1, SuccessIDs: ids}, nil
	}

	result, err := a.client.Documents.BatchDelete(ctx, ids)
	if err != nil {
		return nil, a.op.Fail(err)
	}
	for _, id := range result.SuccessIDs {
		a.documents.Remove(id)
	}
	if result.FailureCount > 0 {
		a.op.Status = StatusError
	}
	return result, nil
}

// DeleteSelected deletes the documents selected in the document store and
// clears the selection.
func (a *DocsApp) DeleteSelected(ctx context.Context) (*docs.BatchOperationResult, error) {
	ids := a.documents.Selected()
	result, err := a.DeleteDocuments(ctx, ids)
	if err != nil {
		return nil, err
	}
	a.documents.ClearSelection()
	return result, nil
}

// StorageInfo fetches the user's storage usage.
func (a *DocsApp) StorageInfo(ctx context.Context) (*docs.StorageInfo, error) {
	info, err := a.client.Documents.StorageInfo(ctx)
	if err != nil {
		return nil, err
	}
	a.documents.SetStorageInfo(*info)
	return info, nil
}

// ZipDocuments downloads the documents as one zip archive into the vault.
func (a *DocsApp) ZipDocuments(ctx context.Context, ids []int64) (*DownloadResult, error) {
	if len(ids) == 0 {
		return nil, errors.New("no documents given")
	}
	return a.storeArchive("", "documents.zip", func(buf *bytes.Buffer) (string, error) {
		return a.client.Documents.BatchDownload(ctx, ids, buf)
	})
}

func (a *DocsApp) storeArchive(dir, fallback string, fetch func(*bytes.Buffer) (string, error)) (*DownloadResult, error) {
	if err := a.vault.ValidateSetup(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	filename, err := fetch(&buf)
	if err != nil {
		return nil, err
	}
	name := vaultName(filename, fallback)
	if dir != "" {
		name = path.Join(dir, name)
	}
	size := int64(buf.Len())
	if err := a.vault.Put(name, &buf, size); err != nil {
		return nil, fmt.Errorf("storing archive: %w", err)
	}
	return &DownloadResult{Filename: name, Location: a.vault.Location(name), Size: size}, nil
}

// WatchDirectory uploads files as they appear in dir until ctx is cancelled.
// onUpload, when set, is called after each successful upload.
func (a *DocsApp) WatchDirectory(ctx context.Context, dir string, folderID *int64, onUpload func(*docs.Document)) error {
	if err := a.persistOperation(dir); err != nil {
		return err
	}
	w := &watch.Watcher{
		Dir:    dir,
		Ignore: a.cfg.Upload.Ignore,
		Logger: a.logger,
		Upload: func(ctx context.Context, f fs.LocalFile) error {
			d, err := a.uploadFile(ctx, f, folderID)
			if err != nil {
				return err
			}
			if onUpload != nil {
				onUpload(d)
			}
			return nil
		},
		// The request that triggered a rejected refresh gets its own 401
		// back, so a cleared session ends the watch as well.
		Fatal: func(err error) bool {
			return errors.Is(err, client.ErrSessionExpired) || !a.session.IsAuthenticated()
		},
	}
	return a.op.Fail(w.Run(ctx))
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, " ")
}
