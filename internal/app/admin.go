package app

import (
	"context"
	"fmt"

	"docs-go/internal/client"
	"docs-go/internal/docs"
)

// AdminUser returns any user's profile.
func (a *DocsApp) AdminUser(ctx context.Context, id int64) (*docs.User, error) {
	return a.client.Admin.User(ctx, id)
}

// UpdateRole changes a user's role.
func (a *DocsApp) UpdateRole(ctx context.Context, id int64, role docs.Role) (*docs.MessageResponse, error) {
	if role != docs.RoleRegularUser && role != docs.RoleAdministrator {
		return nil, fmt.Errorf("unknown role %q", role)
	}
	if err := a.persistOperation(fmt.Sprintf("%d %s", id, role)); err != nil {
		return nil, err
	}
	resp, err := a.client.Admin.UpdateRole(ctx, id, role)
	return resp, a.op.Fail(err)
}

// LoginLogs returns a page of login audit entries.
func (a *DocsApp) LoginLogs(ctx context.Context, page, size int) (*docs.Page[docs.SystemLog], error) {
	return a.client.Admin.LoginLogs(ctx, page, size)
}

// DocumentLogs returns a page of document audit entries, optionally for one
// user and/or one operation type.
func (a *DocsApp) DocumentLogs(ctx context.Context, page, size int, userID *int64, operationType string) (*docs.Page[docs.SystemLog], error) {
	return a.client.Admin.DocumentLogs(ctx, page, size, client.DocumentLogFilter{UserID: userID, OperationType: operationType})
}
