package app

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"docs-go/internal/docs"
)

// CreateFolder creates a folder, optionally under parentID.
func (a *DocsApp) CreateFolder(ctx context.Context, name string, parentID *int64) (*docs.Folder, error) {
	if err := a.persistOperation(name); err != nil {
		return nil, err
	}
	f, err := a.client.Folders.Create(ctx, docs.CreateFolderRequest{Name: name, ParentID: parentID})
	if err != nil {
		return nil, a.op.Fail(err)
	}
	a.folders.Add(*f)
	return f, nil
}

// ListFolders returns the folders under parentID, or every folder when nil.
func (a *DocsApp) ListFolders(ctx context.Context, parentID *int64) ([]docs.Folder, error) {
	list, err := a.client.Folders.List(ctx, parentID)
	if err != nil {
		return nil, err
	}
	a.folders.Set(list)
	return list, nil
}

// GetFolder returns a folder together with its path from the root.
// The path is built from every folder, so ancestors are fetched too.
func (a *DocsApp) GetFolder(ctx context.Context, id int64) (*docs.Folder, []docs.Folder, error) {
	f, err := a.client.Folders.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if _, err := a.ListFolders(ctx, nil); err != nil {
		return nil, nil, fmt.Errorf("loading folder hierarchy: %w", err)
	}
	a.folders.SetCurrent(f)
	return f, a.folders.Path(id), nil
}

// RenameFolder changes a folder's name.
func (a *DocsApp) RenameFolder(ctx context.Context, id int64, name string) (*docs.Folder, error) {
	if err := a.persistOperation(fmt.Sprintf("%d %s", id, name)); err != nil {
		return nil, err
	}
	f, err := a.client.Folders.Update(ctx, id, docs.UpdateFolderRequest{Name: name})
	if err != nil {
		return nil, a.op.Fail(err)
	}
	a.folders.Update(id, docs.FolderPatch{Name: &f.Name})
	return f, nil
}

// DeleteFolder removes a folder.
func (a *DocsApp) DeleteFolder(ctx context.Context, id int64) error {
	if err := a.persistOperation(strconv.FormatInt(id, 10)); err != nil {
		return err
	}
	if err := a.client.Folders.Delete(ctx, id); err != nil {
		return a.op.Fail(err)
	}
	a.folders.Remove(id)
	return nil
}

// FolderDocuments returns the documents in a folder.
func (a *DocsApp) FolderDocuments(ctx context.Context, id int64) ([]docs.Document, error) {
	list, err := a.client.Folders.Documents(ctx, id)
	if err != nil {
		return nil, err
	}
	a.documents.Set(list)
	return list, nil
}

// FolderTree loads every folder and renders the hierarchy.
func (a *DocsApp) FolderTree(ctx context.Context) (string, error) {
	if _, err := a.ListFolders(ctx, nil); err != nil {
		return "", err
	}
	return a.folders.Tree(), nil
}

// ZipFolder downloads a folder's documents as one zip archive into the
// vault's folders/ directory.
func (a *DocsApp) ZipFolder(ctx context.Context, id int64) (*DownloadResult, error) {
	return a.storeArchive("folders", fmt.Sprintf("folder-%d.zip", id), func(buf *bytes.Buffer) (string, error) {
		return a.client.Documents.DownloadFolder(ctx, id, buf)
	})
}
