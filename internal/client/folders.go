package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"docs-go/internal/docs"
)

// FoldersService handles folder management.
type FoldersService struct {
	client *Client
}

// Create creates a folder, optionally under a parent.
func (s *FoldersService) Create(ctx context.Context, req docs.CreateFolderRequest) (*docs.Folder, error) {
	var f docs.Folder
	if err := s.client.post(ctx, "/folders", req, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// List returns the folders under parentID, or every folder when parentID is nil.
func (s *FoldersService) List(ctx context.Context, parentID *int64) ([]docs.Folder, error) {
	var query url.Values
	if parentID != nil {
		query = url.Values{"parentId": {strconv.FormatInt(*parentID, 10)}}
	}
	var folders []docs.Folder
	if err := s.client.get(ctx, "/folders", query, &folders); err != nil {
		return nil, err
	}
	return folders, nil
}

// Get returns a single folder.
func (s *FoldersService) Get(ctx context.Context, id int64) (*docs.Folder, error) {
	var f docs.Folder
	if err := s.client.get(ctx, fmt.Sprintf("/folders/%d", id), nil, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Update renames a folder.
func (s *FoldersService) Update(ctx context.Context, id int64, req docs.UpdateFolderRequest) (*docs.Folder, error) {
	var f docs.Folder
	if err := s.client.put(ctx, fmt.Sprintf("/folders/%d", id), req, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Delete removes a folder.
func (s *FoldersService) Delete(ctx context.Context, id int64) error {
	return s.client.delete(ctx, fmt.Sprintf("/folders/%d", id), nil)
}

// Documents returns the documents in a folder.
func (s *FoldersService) Documents(ctx context.Context, id int64) ([]docs.Document, error) {
	var documents []docs.Document
	if err := s.client.get(ctx, fmt.Sprintf("/folders/%d/documents", id), nil, &documents); err != nil {
		return nil, err
	}
	return documents, nil
}
