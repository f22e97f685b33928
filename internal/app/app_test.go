package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"filippo.io/age/armor"

	"docs-go/internal/client"
	"docs-go/internal/config"
	"docs-go/internal/database"
	"docs-go/internal/docs"
	"docs-go/internal/fs"
	"docs-go/internal/guard"
	"docs-go/internal/testutil"
	"docs-go/internal/vault"
)

func newTestConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	cfg := config.NewConfig(baseURL, t.TempDir())
	cfg.Database = config.DatabaseConfig{Type: "memory"}
	cfg.Encryption = config.EncryptionConfig{Type: "test"}
	cfg.Vault = config.VaultConfig{Type: "memory"}
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config, operation string) *DocsApp {
	t.Helper()
	a, err := NewDocsApp(cfg, Options{Operation: operation, Route: "test", Stderr: io.Discard, Clock: testutil.FixedClock()})
	if err != nil {
		t.Fatalf("NewDocsApp() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

// signedIn returns an app whose session belongs to a fresh regular user.
func signedIn(t *testing.T, api *testutil.FakeAPI, operation string) *DocsApp {
	t.Helper()
	api.AddUser("alice", "alice@example.com", "secret", docs.RoleRegularUser)
	a := newTestApp(t, newTestConfig(t, api.BaseURL()), operation)
	if _, err := a.Login(context.Background(), "alice", "secret", false); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	return a
}

func memoryVault(t *testing.T, a *DocsApp) *vault.MemoryVault {
	t.Helper()
	mv, ok := a.Vault().(*vault.MemoryVault)
	if !ok {
		t.Fatalf("vault is %T, want *vault.MemoryVault", a.Vault())
	}
	return mv
}

func vaultContent(t *testing.T, a *DocsApp, name string) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := a.Vault().Get(name, &buf); err != nil {
		t.Fatalf("vault Get(%q) error = %v", name, err)
	}
	return buf.Bytes()
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestNewDocsApp_RejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"database type", func(c *config.Config) { c.Database.Type = "postgres" }},
		{"encryption type", func(c *config.Config) { c.Encryption.Type = "rot13" }},
		{"vault type", func(c *config.Config) { c.Vault.Type = "ftp" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newTestConfig(t, "http://localhost")
			tt.mutate(cfg)
			if _, err := NewDocsApp(cfg, Options{Stderr: io.Discard}); err == nil {
				t.Error("NewDocsApp() should return error")
			}
		})
	}
}

func TestDocsApp_Login(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	a := signedIn(t, api, "Login")

	s := a.Session()
	if !s.IsAuthenticated() || s.RefreshToken() == "" {
		t.Fatalf("session not authenticated after login")
	}
	if u := s.User(); u == nil || u.Username != "alice" {
		t.Errorf("User() = %+v, want alice", u)
	}

	raw, ok, err := a.db.Store(database.ScopeLocal).Get(docs.AccessTokenKey)
	if err != nil || !ok {
		t.Fatalf("reading stored access token: ok=%v err=%v", ok, err)
	}
	if raw == s.AccessToken() || !strings.HasPrefix(raw, armor.Header) {
		t.Errorf("stored access token is not sealed: %q", raw)
	}

	if !a.op.Persisted() || a.op.Status != StatusSuccess {
		t.Errorf("operation = %+v, want persisted success", a.op)
	}
}

func TestDocsApp_LoginFailure(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	api.AddUser("alice", "alice@example.com", "secret", docs.RoleRegularUser)
	a := newTestApp(t, newTestConfig(t, api.BaseURL()), "Login")

	_, err := a.Login(context.Background(), "alice", "wrong", false)
	apiErr, ok := client.AsAPIError(err)
	if !ok || !apiErr.IsUnauthorized() {
		t.Fatalf("Login() error = %v, want 401 APIError", err)
	}
	if a.Session().IsAuthenticated() {
		t.Error("session authenticated after failed login")
	}
	if a.op.Status != StatusError {
		t.Errorf("Status = %q, want %q", a.op.Status, StatusError)
	}
}

func TestDocsApp_Logout(t *testing.T) {
	t.Run("server accepts", func(t *testing.T) {
		api := testutil.NewFakeAPI(t)
		a := signedIn(t, api, "Logout")

		if err := a.Logout(context.Background()); err != nil {
			t.Fatalf("Logout() error = %v", err)
		}
		if a.Session().IsAuthenticated() || a.Session().User() != nil {
			t.Error("session not cleared")
		}
	})

	t.Run("clears locally when the server call fails", func(t *testing.T) {
		api := testutil.NewFakeAPI(t)
		a := signedIn(t, api, "Logout")
		api.ExpireAccessTokens()
		api.RejectRefresh()

		if err := a.Logout(context.Background()); err != nil {
			t.Fatalf("Logout() error = %v", err)
		}
		if a.Session().IsAuthenticated() {
			t.Error("session not cleared")
		}
	})
}

func TestDocsApp_Refresh(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	a := signedIn(t, api, "Refresh")
	before := a.Session().AccessToken()

	if err := a.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if api.Refreshes() != 1 {
		t.Errorf("Refreshes() = %d, want 1", api.Refreshes())
	}
	if after := a.Session().AccessToken(); after == before || after == "" {
		t.Errorf("access token = %q, want a new token", after)
	}
}

func TestDocsApp_RefreshWithoutSession(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	a := newTestApp(t, newTestConfig(t, api.BaseURL()), "Refresh")

	if err := a.Refresh(context.Background()); !errors.Is(err, docs.ErrNotAuthenticated) {
		t.Errorf("Refresh() error = %v, want ErrNotAuthenticated", err)
	}
	if len(api.Requests()) != 0 {
		t.Errorf("Refresh() sent %d requests, want 0", len(api.Requests()))
	}
}

func TestDocsApp_Status(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	a := newTestApp(t, newTestConfig(t, api.BaseURL()), "Status")

	if st := a.Status(); st.Authenticated || st.User != nil {
		t.Errorf("Status() = %+v before login", st)
	}

	api.AddUser("alice", "alice@example.com", "secret", docs.RoleRegularUser)
	if _, err := a.Login(context.Background(), "alice", "secret", true); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	st := a.Status()
	if !st.Authenticated || !st.HasRefresh || st.User == nil {
		t.Errorf("Status() = %+v after login", st)
	}
	// The fake server issues opaque tokens.
	if st.Claims != nil {
		t.Errorf("Claims = %+v, want nil for an opaque token", st.Claims)
	}
}

func TestDocsApp_Profile(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	a := signedIn(t, api, "UpdateProfile")
	ctx := context.Background()

	name := "alice2"
	u, err := a.UpdateProfile(ctx, &name, nil)
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if u.Username != name || a.Session().DisplayName() != name {
		t.Errorf("username = %q, session display name = %q", u.Username, a.Session().DisplayName())
	}

	if _, err := a.UpdateEmail(ctx, "new@example.com", "123456"); err != nil {
		t.Fatalf("UpdateEmail() error = %v", err)
	}
	if got := a.Session().User().Email; got != "new@example.com" {
		t.Errorf("cached email = %q", got)
	}

	me, err := a.Me(ctx)
	if err != nil {
		t.Fatalf("Me() error = %v", err)
	}
	if me.Email != "new@example.com" || me.Username != name {
		t.Errorf("Me() = %+v", me)
	}

	if _, err := a.UpdatePassword(ctx, "secret", "better"); err != nil {
		t.Fatalf("UpdatePassword() error = %v", err)
	}
}

func TestDocsApp_UploadAvatar(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	a := signedIn(t, api, "UploadAvatar")

	img := image.NewRGBA(image.Rect(0, 0, 1024, 256))
	for x := 0; x < 1024; x++ {
		img.Set(x, x%256, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "face.png")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	avatarURL, err := a.UploadAvatar(context.Background(), path)
	if err != nil {
		t.Fatalf("UploadAvatar() error = %v", err)
	}
	if avatarURL != "/avatars/face.png" {
		t.Errorf("avatar URL = %q", avatarURL)
	}
	if got := a.Session().User().AvatarURL; got != avatarURL {
		t.Errorf("cached avatar URL = %q, want %q", got, avatarURL)
	}
}

func TestDocsApp_UploadDocuments(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	a := signedIn(t, api, "UploadDocuments")
	a.cfg.Upload.ChunkThreshold = 16
	a.cfg.Upload.Ignore = []string{"*.tmp"}

	dir := t.TempDir()
	writeFile(t, dir, "small.txt", "hello")
	writeFile(t, dir, "large.txt", "this file is larger than sixteen bytes")
	writeFile(t, dir, "scratch.tmp", "ignored")

	results, err := a.UploadDocuments(context.Background(), []string{dir}, false, nil)
	if err != nil {
		t.Fatalf("UploadDocuments() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}

	chunked := map[string]bool{}
	for _, r := range results {
		if r.Err != nil || r.Document == nil {
			t.Fatalf("result for %s: %+v", r.File.Rel, r)
		}
		chunked[r.File.Rel] = r.Chunked
		content, ok := api.DocumentContent(r.Document.ID)
		want, _ := os.ReadFile(r.File.Path)
		if !ok || !bytes.Equal(content, want) {
			t.Errorf("server content of %s = %q, want %q", r.File.Rel, content, want)
		}
	}
	if !chunked["large.txt"] || chunked["small.txt"] {
		t.Errorf("chunked = %v, want only large.txt", chunked)
	}
	if got := len(a.Documents().Documents()); got != 2 {
		t.Errorf("document store holds %d documents, want 2", got)
	}
	if _, ok := a.Documents().UploadProgress("large.txt"); ok {
		t.Error("upload progress left behind")
	}
}

func TestDocsApp_UploadDocuments_FolderAndMissingFile(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	a := signedIn(t, api, "UploadDocuments")

	dir := t.TempDir()
	good := writeFile(t, dir, "good.txt", "ok")
	folderID := int64(999)

	results, err := a.UploadDocuments(context.Background(), []string{good}, false, &folderID)
	if err != nil {
		t.Fatalf("UploadDocuments() error = %v", err)
	}
	if len(results) != 1 || results[0].Document.FolderID == nil || *results[0].Document.FolderID != folderID {
		t.Errorf("results = %+v", results)
	}

	_, err = a.UploadDocuments(context.Background(), []string{filepath.Join(dir, "missing.txt")}, false, nil)
	if err == nil {
		t.Fatal("UploadDocuments() of a missing file should return error")
	}
	if a.op.Status != StatusError {
		t.Errorf("Status = %q, want %q", a.op.Status, StatusError)
	}
}

func TestDocsApp_UploadAfterAccessTokenExpired(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	a := signedIn(t, api, "UploadDocuments")
	api.ExpireAccessTokens()

	path := writeFile(t, t.TempDir(), "notes.md", "# notes")
	results, err := a.UploadDocuments(context.Background(), []string{path}, false, nil)
	if err != nil {
		t.Fatalf("UploadDocuments() error = %v", err)
	}
	if results[0].Document == nil {
		t.Fatal("no document returned")
	}
	if api.Refreshes() != 1 {
		t.Errorf("Refreshes() = %d, want 1", api.Refreshes())
	}
}

func TestDocsApp_BatchUploadDocuments(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	a := signedIn(t, api, "BatchUploadDocuments")

	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "a")
	writeFile(t, dir, "b.txt", "b")

	result, err := a.BatchUploadDocuments(context.Background(), []string{dir}, false, nil)
	if err != nil {
		t.Fatalf("BatchUploadDocuments() error = %v", err)
	}
	if result.SuccessCount != 2 || len(api.Documents()) != 2 {
		t.Errorf("result = %+v, server holds %d documents", result, len(api.Documents()))
	}

	if _, err := a.BatchUploadDocuments(context.Background(), []string{t.TempDir()}, false, nil); err == nil {
		t.Error("BatchUploadDocuments() of an empty directory should return error")
	}
}

func TestDocsApp_ListDocuments(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	a := signedIn(t, api, "ListDocuments")
	for _, name := range []string{"report.pdf", "notes.txt", "report-2.pdf"} {
		api.AddDocument(name, []byte(name), nil)
	}

	list, p, err := a.ListDocuments(context.Background(), DocumentFilter{Keyword: "report", Size: 1})
	if err != nil {
		t.Fatalf("ListDocuments() error = %v", err)
	}
	if len(list) != 1 || p.TotalElements != 2 || p.TotalPages != 2 || p.Size != 1 {
		t.Errorf("list = %v, pagination = %+v", list, p)
	}

	var query string
	for _, r := range api.Requests() {
		if r.Path == "/api/documents" {
			query = r.RawQuery
		}
	}
	for _, want := range []string{"keyword=report", "size=1", "sortBy=createdAt", "sortDirection=DESC", "page=0"} {
		if !strings.Contains(query, want) {
			t.Errorf("query %q missing %q", query, want)
		}
	}
}

func TestDocsApp_DownloadDocuments(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	a := signedIn(t, api, "DownloadDocuments")
	a.cfg.Download.Concurrency = 3

	var ids []int64
	want := map[string]string{}
	for _, name := range []string{"a.txt", "b.txt", "c.txt", "d.txt", "e.txt"} {
		d := api.AddDocument(name, []byte("content of "+name), nil)
		ids = append(ids, d.ID)
		want[name] = "content of " + name
	}
	// Every first attempt is rejected, so the downloads race into the refresh.
	api.ExpireAccessTokens()

	results, err := a.DownloadDocuments(context.Background(), ids)
	if err != nil {
		t.Fatalf("DownloadDocuments() error = %v", err)
	}
	if len(results) != len(ids) {
		t.Fatalf("got %d results, want %d", len(results), len(ids))
	}
	for name, content := range want {
		if got := string(vaultContent(t, a, name)); got != content {
			t.Errorf("vault %s = %q, want %q", name, got, content)
		}
	}
	if api.Refreshes() < 1 {
		t.Error("no refresh happened")
	}
	if !a.Session().IsAuthenticated() {
		t.Error("session lost during concurrent refresh")
	}
}

func TestDocsApp_DownloadWithExpiredSession(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	api.AddUser("alice", "alice@example.com", "secret", docs.RoleRegularUser)
	var stderr bytes.Buffer
	a, err := NewDocsApp(newTestConfig(t, api.BaseURL()), Options{Operation: "DownloadDocuments", Route: "doc download 1", Stderr: &stderr})
	if err != nil {
		t.Fatalf("NewDocsApp() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })
	if _, err := a.Login(context.Background(), "alice", "secret", false); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	d := api.AddDocument("a.txt", []byte("a"), nil)
	api.ExpireAccessTokens()
	api.RejectRefresh()

	if _, err := a.DownloadDocuments(context.Background(), []int64{d.ID}); err == nil {
		t.Fatal("DownloadDocuments() should fail when the session cannot be refreshed")
	}
	if a.Session().IsAuthenticated() {
		t.Error("session not cleared")
	}
	r := a.Redirected()
	if r == nil || r.Name != docs.RouteLogin || r.Query["redirect"] != "doc download 1" {
		t.Errorf("Redirected() = %+v", r)
	}
	if !strings.Contains(stderr.String(), "docs auth login") {
		t.Errorf("stderr = %q, want a login hint", stderr.String())
	}
	if len(memoryVault(t, a).Names()) != 0 {
		t.Error("vault written despite failure")
	}
}

func TestDocsApp_RenameAndMoveDocument(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	a := signedIn(t, api, "RenameDocument")
	folder := api.AddFolder("Reports", nil)
	d := api.AddDocument("draft.txt", []byte("x"), nil)
	ctx := context.Background()

	if _, _, err := a.ListDocuments(ctx, DocumentFilter{}); err != nil {
		t.Fatalf("ListDocuments() error = %v", err)
	}

	if _, err := a.RenameDocument(ctx, d.ID, "final.txt"); err != nil {
		t.Fatalf("RenameDocument() error = %v", err)
	}
	moved, err := a.MoveDocument(ctx, d.ID, folder.ID)
	if err != nil {
		t.Fatalf("MoveDocument() error = %v", err)
	}
	if moved.FolderName != "Reports" {
		t.Errorf("FolderName = %q", moved.FolderName)
	}

	cached, ok := a.Documents().Get(d.ID)
	if !ok || cached.Filename != "final.txt" || cached.FolderID == nil || *cached.FolderID != folder.ID {
		t.Errorf("cached document = %+v", cached)
	}
}

func TestDocsApp_DeleteDocuments(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	a := signedIn(t, api, "DeleteDocuments")
	ctx := context.Background()
	d1 := api.AddDocument("a.txt", []byte("a"), nil)
	d2 := api.AddDocument("b.txt", []byte("b"), nil)
	d3 := api.AddDocument("c.txt", []byte("c"), nil)

	result, err := a.DeleteDocuments(ctx, []int64{d1.ID})
	if err != nil || result.SuccessCount != 1 {
		t.Fatalf("DeleteDocuments(single) = %+v, %v", result, err)
	}

	result, err = a.DeleteDocuments(ctx, []int64{d2.ID, 4242})
	if err != nil {
		t.Fatalf("DeleteDocuments(batch) error = %v", err)
	}
	if result.SuccessCount != 1 || result.FailureCount != 1 {
		t.Errorf("result = %+v", result)
	}
	if a.op.Status != StatusError {
		t.Errorf("Status = %q, want %q after a partial failure", a.op.Status, StatusError)
	}

	remaining := api.Documents()
	if len(remaining) != 1 || remaining[0].ID != d3.ID {
		t.Errorf("remaining = %+v", remaining)
	}

	if _, err := a.DeleteDocuments(ctx, nil); err == nil {
		t.Error("DeleteDocuments(nil) should return error")
	}
}

func TestDocsApp_DeleteSelected(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	a := signedIn(t, api, "DeleteDocuments")
	ctx := context.Background()
	api.AddDocument("a.txt", []byte("a"), nil)
	api.AddDocument("b.txt", []byte("b"), nil)

	if _, _, err := a.ListDocuments(ctx, DocumentFilter{}); err != nil {
		t.Fatalf("ListDocuments() error = %v", err)
	}
	a.Documents().SelectAll()

	result, err := a.DeleteSelected(ctx)
	if err != nil {
		t.Fatalf("DeleteSelected() error = %v", err)
	}
	if result.SuccessCount != 2 || len(api.Documents()) != 0 {
		t.Errorf("result = %+v, server holds %d", result, len(api.Documents()))
	}
	if a.Documents().HasSelection() || len(a.Documents().Documents()) != 0 {
		t.Error("store not updated after delete")
	}
}

func TestDocsApp_StorageInfo(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	a := signedIn(t, api, "StorageInfo")
	api.AddDocument("a.txt", []byte("0123456789"), nil)

	info, err := a.StorageInfo(context.Background())
	if err != nil {
		t.Fatalf("StorageInfo() error = %v", err)
	}
	if info.UsedSpace != 10 {
		t.Errorf("UsedSpace = %d, want 10", info.UsedSpace)
	}
	if cached := a.Documents().StorageInfo(); cached == nil || cached.UsedSpace != 10 {
		t.Errorf("cached storage info = %+v", cached)
	}
}

func TestDocsApp_Archives(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	a := signedIn(t, api, "ZipFolder")
	ctx := context.Background()
	folder := api.AddFolder("Reports", nil)
	d1 := api.AddDocument("q1.pdf", []byte("q1"), &folder.ID)
	d2 := api.AddDocument("q2.pdf", []byte("q2"), nil)

	res, err := a.ZipFolder(ctx, folder.ID)
	if err != nil {
		t.Fatalf("ZipFolder() error = %v", err)
	}
	if res.Filename != "folders/Reports.zip" || res.Size == 0 {
		t.Errorf("ZipFolder() = %+v", res)
	}

	res, err = a.ZipDocuments(ctx, []int64{d1.ID, d2.ID})
	if err != nil {
		t.Fatalf("ZipDocuments() error = %v", err)
	}
	if res.Filename != "documents.zip" || res.Location != "memory://documents.zip" {
		t.Errorf("ZipDocuments() = %+v", res)
	}

	names := memoryVault(t, a).Names()
	if len(names) != 2 {
		t.Errorf("vault names = %v", names)
	}

	if _, err := a.ZipDocuments(ctx, nil); err == nil {
		t.Error("ZipDocuments(nil) should return error")
	}
}

func TestDocsApp_Folders(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	a := signedIn(t, api, "CreateFolder")
	ctx := context.Background()

	work, err := a.CreateFolder(ctx, "Work", nil)
	if err != nil {
		t.Fatalf("CreateFolder() error = %v", err)
	}
	reports, err := a.CreateFolder(ctx, "Reports", &work.ID)
	if err != nil {
		t.Fatalf("CreateFolder(child) error = %v", err)
	}
	if _, err := a.CreateFolder(ctx, "Personal", nil); err != nil {
		t.Fatalf("CreateFolder() error = %v", err)
	}

	children, err := a.ListFolders(ctx, &work.ID)
	if err != nil || len(children) != 1 || children[0].ID != reports.ID {
		t.Fatalf("ListFolders(work) = %+v, %v", children, err)
	}

	f, path, err := a.GetFolder(ctx, reports.ID)
	if err != nil {
		t.Fatalf("GetFolder() error = %v", err)
	}
	if f.Name != "Reports" || len(path) != 2 || path[0].Name != "Work" || path[1].Name != "Reports" {
		t.Errorf("GetFolder() = %+v, path %+v", f, path)
	}
	if cur := a.Folders().Current(); cur == nil || cur.ID != reports.ID {
		t.Errorf("Current() = %+v", cur)
	}

	tree, err := a.FolderTree(ctx)
	if err != nil {
		t.Fatalf("FolderTree() error = %v", err)
	}
	for _, want := range []string{"Work (", "  Reports (", "Personal ("} {
		if !strings.Contains(tree, want) {
			t.Errorf("tree %q missing %q", tree, want)
		}
	}

	if _, err := a.RenameFolder(ctx, reports.ID, "Archive"); err != nil {
		t.Fatalf("RenameFolder() error = %v", err)
	}
	api.AddDocument("old.txt", []byte("old"), &reports.ID)
	list, err := a.FolderDocuments(ctx, reports.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("FolderDocuments() = %+v, %v", list, err)
	}

	if err := a.DeleteFolder(ctx, reports.ID); err != nil {
		t.Fatalf("DeleteFolder() error = %v", err)
	}
	err = a.DeleteFolder(ctx, reports.ID)
	if apiErr, ok := client.AsAPIError(err); !ok || !apiErr.IsNotFound() {
		t.Errorf("second DeleteFolder() error = %v, want 404", err)
	}
}

func TestDocsApp_Admin(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	ctx := context.Background()

	t.Run("regular user is forbidden", func(t *testing.T) {
		a := signedIn(t, api, "UpdateRole")
		_, err := a.UpdateRole(ctx, 1, docs.RoleAdministrator)
		if apiErr, ok := client.AsAPIError(err); !ok || !apiErr.IsForbidden() {
			t.Errorf("UpdateRole() error = %v, want 403", err)
		}
	})

	t.Run("administrator", func(t *testing.T) {
		admin := api.AddUser("root", "root@example.com", "toor", docs.RoleAdministrator)
		target := api.AddUser("bob", "bob@example.com", "pw", docs.RoleRegularUser)
		a := newTestApp(t, newTestConfig(t, api.BaseURL()), "UpdateRole")
		if _, err := a.Login(ctx, "root", "toor", false); err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		if !a.Session().IsAdmin() {
			t.Fatal("session is not admin")
		}

		if _, err := a.UpdateRole(ctx, target.ID, docs.RoleAdministrator); err != nil {
			t.Fatalf("UpdateRole() error = %v", err)
		}
		u, err := a.AdminUser(ctx, target.ID)
		if err != nil || u.Role != docs.RoleAdministrator {
			t.Errorf("AdminUser() = %+v, %v", u, err)
		}
		if _, err := a.UpdateRole(ctx, target.ID, "SUPERUSER"); err == nil {
			t.Error("UpdateRole() with an unknown role should return error")
		}

		logs, err := a.LoginLogs(ctx, 0, 10)
		if err != nil {
			t.Fatalf("LoginLogs() error = %v", err)
		}
		var sawAdmin bool
		for _, l := range logs.Content {
			if l.UserID != nil && *l.UserID == admin.ID {
				sawAdmin = true
			}
		}
		if !sawAdmin {
			t.Errorf("login logs %+v missing the admin login", logs.Content)
		}

		api.AddDocument("a.txt", []byte("a"), nil)
		docLogs, err := a.DocumentLogs(ctx, 0, 10, nil, "DOCUMENT_UPLOAD")
		if err != nil || len(docLogs.Content) == 0 {
			t.Errorf("DocumentLogs() = %+v, %v", docLogs, err)
		}
	})
}

func TestDocsApp_PersistsAcrossRuns(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	api.AddUser("alice", "alice@example.com", "secret", docs.RoleRegularUser)

	cfg := newTestConfig(t, api.BaseURL())
	cfg.Database = config.DatabaseConfig{Type: "sqlite", DataDir: filepath.Join(t.TempDir(), "db")}
	cfg.Encryption = config.EncryptionConfig{Type: "age", IdentityPath: filepath.Join(t.TempDir(), "keys", "docs.key")}
	cfg.Metrics.TextfilePath = filepath.Join(t.TempDir(), "docs.prom")

	clock := testutil.FixedClock()
	first, err := NewDocsApp(cfg, Options{Operation: "Login", Stderr: io.Discard, Clock: clock})
	if err != nil {
		t.Fatalf("NewDocsApp() error = %v", err)
	}
	if _, err := first.Login(context.Background(), "alice", "secret", false); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	clock.Advance(1500 * time.Millisecond)
	if err := first.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	metrics, err := os.ReadFile(cfg.Metrics.TextfilePath)
	if err != nil {
		t.Fatalf("reading metrics: %v", err)
	}
	if !strings.Contains(string(metrics), `docs_client_requests_total{status="200"}`) {
		t.Errorf("metrics = %s", metrics)
	}

	second := newTestApp(t, cfg, "History")
	if !second.Session().IsAuthenticated() || second.Session().DisplayName() != "alice" {
		t.Error("session not restored from the sealed store")
	}

	ops, err := second.History(10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(ops) != 1 || ops[0].Operation != "Login" || ops[0].Status != StatusSuccess || !ops[0].FinishedAt.Valid {
		t.Fatalf("History() = %+v", ops)
	}
	if d := ops[0].FinishedAt.Time.Sub(ops[0].StartedAt); d != 1500*time.Millisecond {
		t.Errorf("recorded duration = %v, want 1.5s", d)
	}
}

func TestDocsApp_Enter(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	documents := guard.Route{Name: docs.RouteDocuments, Path: "doc list", RequiresAuth: true}
	adminLogs := guard.Route{Name: "admin login-logs", Path: "admin login-logs", RequiresAuth: true, RequiresAdmin: true}
	login := guard.Route{Name: docs.RouteLogin, Path: "auth login"}

	t.Run("anonymous", func(t *testing.T) {
		var stderr bytes.Buffer
		a, err := NewDocsApp(newTestConfig(t, api.BaseURL()), Options{Route: "doc list", Stderr: &stderr})
		if err != nil {
			t.Fatalf("NewDocsApp() error = %v", err)
		}
		t.Cleanup(func() { a.Close() })

		if err := a.Enter(login); err != nil {
			t.Errorf("Enter(login) error = %v", err)
		}
		if err := a.Enter(documents); !errors.Is(err, ErrRedirected) {
			t.Fatalf("Enter(documents) error = %v, want ErrRedirected", err)
		}
		r := a.Redirected()
		if r == nil || r.Name != docs.RouteLogin || r.Query["redirect"] != "doc list" {
			t.Errorf("Redirected() = %+v", r)
		}
		if !strings.Contains(stderr.String(), "then retry `docs doc list`") {
			t.Errorf("stderr = %q", stderr.String())
		}
	})

	t.Run("regular user", func(t *testing.T) {
		a := signedIn(t, api, "Login")

		if err := a.Enter(documents); err != nil {
			t.Errorf("Enter(documents) error = %v", err)
		}
		if err := a.Enter(adminLogs); !errors.Is(err, ErrRedirected) {
			t.Errorf("Enter(admin) error = %v, want ErrRedirected", err)
		}
		if r := a.Redirected(); r == nil || r.Name != docs.RouteProfile {
			t.Errorf("Redirected() = %+v, want profile", r)
		}
	})
}

func TestDocsApp_ResumesChunkedUpload(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	api.AddUser("alice", "alice@example.com", "secret", docs.RoleRegularUser)
	cfg := newTestConfig(t, api.BaseURL())
	cfg.Upload.ChunkSize = 4
	cfg.Upload.ChunkThreshold = 8
	a := newTestApp(t, cfg, "UploadDocuments")
	if _, err := a.Login(context.Background(), "alice", "secret", false); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	path := writeFile(t, t.TempDir(), "scan.pdf", "0123456789AB")
	files, err := fs.Discover([]string{path}, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	// An earlier run sent the first chunk before being interrupted.
	store := a.db.Store(database.ScopeLocal)
	if err := store.Set(pendingUploadKey(files[0]), "interrupted-1"); err != nil {
		t.Fatal(err)
	}
	api.SeedChunk("interrupted-1", 0, []byte("0123"))

	results, err := a.UploadDocuments(context.Background(), []string{path}, false, nil)
	if err != nil {
		t.Fatalf("UploadDocuments() error = %v", err)
	}
	content, _ := api.DocumentContent(results[0].Document.ID)
	if string(content) != "0123456789AB" {
		t.Errorf("server content = %q", content)
	}

	var chunks int
	for _, r := range api.Requests() {
		if r.Path == "/api/documents/chunked/upload" {
			chunks++
		}
	}
	if chunks != 2 {
		t.Errorf("sent %d chunks, want 2", chunks)
	}
	if _, ok, _ := store.Get(pendingUploadKey(files[0])); ok {
		t.Error("pending upload not cleared")
	}
}

func TestDocsApp_DropsChunkedUploadWithoutDocument(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	api.AddUser("alice", "alice@example.com", "secret", docs.RoleRegularUser)
	api.HoldChunks()
	cfg := newTestConfig(t, api.BaseURL())
	cfg.Upload.ChunkSize = 4
	cfg.Upload.ChunkThreshold = 8
	a := newTestApp(t, cfg, "UploadDocuments")
	ctx := context.Background()
	if _, err := a.Login(ctx, "alice", "secret", false); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	path := writeFile(t, t.TempDir(), "scan.pdf", "0123456789AB")
	files, err := fs.Discover([]string{path}, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	store := a.db.Store(database.ScopeLocal)
	if err := store.Set(pendingUploadKey(files[0]), "stuck-1"); err != nil {
		t.Fatal(err)
	}

	results, err := a.UploadDocuments(ctx, []string{path}, false, nil)
	if !errors.Is(err, client.ErrUploadIncomplete) {
		t.Fatalf("UploadDocuments() error = %v, want ErrUploadIncomplete", err)
	}
	if len(results) != 1 || results[0].Document != nil {
		t.Errorf("results = %+v", results)
	}
	if _, ok, _ := store.Get(pendingUploadKey(files[0])); ok {
		t.Error("pending upload kept; the next run would resume the same chunks")
	}
	held, err := a.Client().Chunked.UploadedChunks(ctx, "stuck-1")
	if err != nil || len(held) != 0 {
		t.Errorf("server still holds chunks %v (err %v)", held, err)
	}
}

func TestDocsApp_WatchStopsWhenSessionExpires(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	a := signedIn(t, api, "WatchDirectory")
	dir := t.TempDir()
	api.ExpireAccessTokens()
	api.RejectRefresh()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- a.WatchDirectory(ctx, dir, nil, nil) }()

	// Keep writing until the watcher has picked a file up; it may not be
	// watching yet when the first one lands.
	deadline := time.After(10 * time.Second)
	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()
	for i := 0; ; i++ {
		select {
		case err := <-done:
			if err == nil {
				t.Fatal("WatchDirectory() = nil, want the upload failure")
			}
			if a.Session().IsAuthenticated() {
				t.Error("session not cleared")
			}
			if len(api.Documents()) != 0 {
				t.Errorf("documents = %+v, want none", api.Documents())
			}
			return
		case <-tick.C:
			writeFile(t, dir, fmt.Sprintf("scan-%d.txt", i), "page")
		case <-deadline:
			t.Fatal("watch kept running after the session expired")
		}
	}
}
