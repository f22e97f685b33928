package testutil

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"docs-go/internal/docs"
)

// FakeAPI is an in-memory document-assistant server for tests.
// Tokens are opaque strings ("access-1", "refresh-1", ...); any route outside
// /api/auth requires a live access token.
type FakeAPI struct {
	Server *httptest.Server

	mu            sync.Mutex
	now           time.Time
	nextID        int64
	tokenSeq      int
	users         map[int64]*fakeUser
	access        map[string]int64
	refresh       map[string]int64
	documents     map[int64]*fakeDocument
	folders       map[int64]*docs.Folder
	chunks        map[string]map[int][]byte
	logs          []docs.SystemLog
	requests      []RecordedRequest
	rejectRefresh bool
	holdChunks    bool
	refreshes     int
}

type fakeUser struct {
	user     docs.User
	password string
}

type fakeDocument struct {
	doc     docs.Document
	content []byte
}

// RecordedRequest is a request seen by the fake server.
type RecordedRequest struct {
	Method        string
	Path          string
	RawQuery      string
	Authorization string
	RequestID     string
}

// NewFakeAPI starts a fake server that is closed when the test completes.
func NewFakeAPI(t *testing.T) *FakeAPI {
	t.Helper()

	f := &FakeAPI{
		now:       time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		users:     make(map[int64]*fakeUser),
		access:    make(map[string]int64),
		refresh:   make(map[string]int64),
		documents: make(map[int64]*fakeDocument),
		folders:   make(map[int64]*docs.Folder),
		chunks:    make(map[string]map[int][]byte),
	}
	f.Server = httptest.NewServer(f.router())
	t.Cleanup(f.Server.Close)
	return f
}

// BaseURL returns the API root to configure clients with.
func (f *FakeAPI) BaseURL() string {
	return f.Server.URL + "/api"
}

// AddUser registers a verified account.
func (f *FakeAPI) AddUser(username, email, password string, role docs.Role) docs.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := docs.User{
		ID:              f.newID(),
		Username:        username,
		Email:           email,
		Role:            role,
		IsEmailVerified: true,
		CreatedAt:       docs.NewTimestamp(f.now),
	}
	f.users[u.ID] = &fakeUser{user: u, password: password}
	return u
}

// IssueTokens returns a live token pair for userID.
func (f *FakeAPI) IssueTokens(userID int64) (access, refresh string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.issueTokens(userID)
}

// ExpireAccessTokens invalidates every access token so the next request
// gets a 401. Refresh tokens stay valid.
func (f *FakeAPI) ExpireAccessTokens() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.access = make(map[string]int64)
}

// RejectRefresh makes the refresh endpoint answer 401.
func (f *FakeAPI) RejectRefresh() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejectRefresh = true
}

// HoldChunks makes the server keep every chunk without assembling a
// document, as it does when the final merge fails.
func (f *FakeAPI) HoldChunks() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.holdChunks = true
}

// Refreshes returns the number of successful token refreshes.
func (f *FakeAPI) Refreshes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshes
}

// AddDocument stores a document and returns it.
func (f *FakeAPI) AddDocument(filename string, content []byte, folderID *int64) docs.Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addDocument(filename, content, folderID)
}

// AddFolder stores a folder and returns it.
func (f *FakeAPI) AddFolder(name string, parentID *int64) docs.Folder {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addFolder(name, parentID)
}

// DocumentContent returns the stored bytes of a document.
func (f *FakeAPI) DocumentContent(id int64) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.documents[id]
	if !ok {
		return nil, false
	}
	return d.content, true
}

// Documents returns every stored document ordered by id.
func (f *FakeAPI) Documents() []docs.Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sortedDocuments()
}

// Requests returns the requests seen so far.
func (f *FakeAPI) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RecordedRequest(nil), f.requests...)
}

func (f *FakeAPI) router() *mux.Router {
	r := mux.NewRouter()
	r.Use(f.record)

	auth := r.PathPrefix("/api/auth").Subrouter()
	auth.HandleFunc("/register", f.handleRegister).Methods("POST")
	auth.HandleFunc("/verify-email", f.handleMessage("Email verified")).Methods("POST")
	auth.HandleFunc("/login", f.handleLogin).Methods("POST")
	auth.HandleFunc("/refresh-token", f.handleRefresh).Methods("POST")
	auth.HandleFunc("/forgot-password", f.handleMessage("Reset link sent")).Methods("POST")
	auth.HandleFunc("/reset-password", f.handleMessage("Password reset")).Methods("POST")
	auth.Handle("/logout", f.requireAuth(http.HandlerFunc(f.handleLogout))).Methods("POST")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(f.requireAuth)
	api.HandleFunc("/users/me", f.handleMe).Methods("GET")
	api.HandleFunc("/users/me", f.handleUpdateMe).Methods("PUT")
	api.HandleFunc("/users/me/avatar", f.handleAvatar).Methods("POST")
	api.HandleFunc("/users/me/email", f.handleUpdateEmail).Methods("PUT")
	api.HandleFunc("/users/me/password", f.handleMessage("Password updated")).Methods("PUT")
	api.HandleFunc("/users/{id:[0-9]+}", f.admin(f.handleGetUser)).Methods("GET")
	api.HandleFunc("/users/{id:[0-9]+}/role", f.admin(f.handleUpdateRole)).Methods("PUT")
	api.HandleFunc("/logs/login", f.admin(f.handleLogs("LOGIN"))).Methods("GET")
	api.HandleFunc("/admin/document-logs", f.admin(f.handleLogs(""))).Methods("GET")
	api.HandleFunc("/admin/document-logs/user/{userId:[0-9]+}", f.admin(f.handleLogs(""))).Methods("GET")
	api.HandleFunc("/admin/document-logs/type/{type}", f.admin(f.handleLogs(""))).Methods("GET")

	api.HandleFunc("/documents", f.handleListDocuments).Methods("GET")
	api.HandleFunc("/documents/upload", f.handleUpload).Methods("POST")
	api.HandleFunc("/documents/batch-upload", f.handleBatchUpload).Methods("POST")
	api.HandleFunc("/documents/storage-info", f.handleStorageInfo).Methods("GET")
	api.HandleFunc("/documents/batch", f.handleBatchDelete).Methods("DELETE")
	api.HandleFunc("/documents/batch-download", f.handleBatchDownload).Methods("POST")
	api.HandleFunc("/documents/batch-download/folder/{id:[0-9]+}", f.handleFolderDownload).Methods("GET")
	api.HandleFunc("/documents/chunked/upload", f.handleChunk).Methods("POST")
	api.HandleFunc("/documents/chunked/uploaded-chunks", f.handleUploadedChunks).Methods("GET")
	api.HandleFunc("/documents/chunked/cancel", f.handleCancelChunks).Methods("DELETE")
	api.HandleFunc("/documents/{id:[0-9]+}", f.handleGetDocument).Methods("GET")
	api.HandleFunc("/documents/{id:[0-9]+}", f.handleUpdateDocument).Methods("PUT")
	api.HandleFunc("/documents/{id:[0-9]+}", f.handleDeleteDocument).Methods("DELETE")
	api.HandleFunc("/documents/{id:[0-9]+}/preview", f.handlePreview).Methods("GET")
	api.HandleFunc("/documents/{id:[0-9]+}/download", f.handleDownload).Methods("GET")

	api.HandleFunc("/folders", f.handleCreateFolder).Methods("POST")
	api.HandleFunc("/folders", f.handleListFolders).Methods("GET")
	api.HandleFunc("/folders/{id:[0-9]+}", f.handleGetFolder).Methods("GET")
	api.HandleFunc("/folders/{id:[0-9]+}", f.handleUpdateFolder).Methods("PUT")
	api.HandleFunc("/folders/{id:[0-9]+}", f.handleDeleteFolder).Methods("DELETE")
	api.HandleFunc("/folders/{id:[0-9]+}/documents", f.handleFolderDocuments).Methods("GET")
	return r
}

// Middleware

func (f *FakeAPI) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, RecordedRequest{
			Method:        r.Method,
			Path:          r.URL.Path,
			RawQuery:      r.URL.RawQuery,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-ID"),
		})
		f.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

type userKey struct{}

func (f *FakeAPI) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		f.mu.Lock()
		_, ok := f.access[token]
		f.mu.Unlock()
		if !ok {
			writeError(w, r, http.StatusUnauthorized, "TOKEN_EXPIRED", "access token expired or invalid")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FakeAPI) admin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := f.caller(r)
		if u == nil || u.user.Role != docs.RoleAdministrator {
			writeError(w, r, http.StatusForbidden, "ACCESS_DENIED", "administrator role required")
			return
		}
		next(w, r)
	}
}

// caller returns the user owning the request's access token.
func (f *FakeAPI) caller(r *http.Request) *fakeUser {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[f.access[token]]
}

// Auth

func (f *FakeAPI) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req docs.RegisterRequest
	if !decode(w, r, &req) {
		return
	}
	f.mu.Lock()
	for _, u := range f.users {
		if u.user.Username == req.Username || u.user.Email == req.Email {
			f.mu.Unlock()
			writeError(w, r, http.StatusConflict, "USER_EXISTS", "username or email already registered")
			return
		}
	}
	u := docs.User{ID: f.newID(), Username: req.Username, Email: req.Email, Role: docs.RoleRegularUser, CreatedAt: docs.NewTimestamp(f.now)}
	f.users[u.ID] = &fakeUser{user: u, password: req.Password}
	f.mu.Unlock()
	writeJSON(w, http.StatusCreated, docs.RegisterResponse{UserID: u.ID, Username: u.Username, Email: u.Email, Message: "Registration successful"})
}

func (f *FakeAPI) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req docs.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	f.mu.Lock()
	var found *fakeUser
	for _, u := range f.users {
		if (u.user.Username == req.UsernameOrEmail || u.user.Email == req.UsernameOrEmail) && u.password == req.Password {
			found = u
		}
	}
	if found == nil {
		f.mu.Unlock()
		writeError(w, r, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid username or password")
		return
	}
	access, refresh := f.issueTokens(found.user.ID)
	f.logs = append(f.logs, docs.SystemLog{ID: f.newID(), UserID: &found.user.ID, OperationType: "LOGIN", Status: "SUCCESS", CreatedAt: docs.NewTimestamp(f.now)})
	user := found.user
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, docs.LoginResponse{AccessToken: access, RefreshToken: refresh, User: &user, ExpiresIn: 3600})
}

func (f *FakeAPI) handleRefresh(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("refreshToken")
	f.mu.Lock()
	userID, ok := f.refresh[token]
	if !ok || f.rejectRefresh {
		f.mu.Unlock()
		writeError(w, r, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN", "refresh token expired or invalid")
		return
	}
	delete(f.refresh, token)
	access, refresh := f.issueTokens(userID)
	f.refreshes++
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, docs.TokenResponse{AccessToken: access, RefreshToken: refresh, ExpiresIn: 3600})
}

func (f *FakeAPI) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	f.mu.Lock()
	delete(f.access, token)
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, docs.MessageResponse{Message: "Logged out"})
}

func (f *FakeAPI) handleMessage(msg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, docs.MessageResponse{Message: msg})
	}
}

// Users

func (f *FakeAPI) handleMe(w http.ResponseWriter, r *http.Request) {
	u := f.caller(r)
	if u == nil {
		writeError(w, r, http.StatusNotFound, "USER_NOT_FOUND", "user not found")
		return
	}
	f.mu.Lock()
	user := u.user
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, user)
}

func (f *FakeAPI) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var req docs.UpdateUserRequest
	if !decode(w, r, &req) {
		return
	}
	u := f.caller(r)
	f.mu.Lock()
	if req.Username != nil {
		u.user.Username = *req.Username
	}
	if req.Email != nil {
		u.user.Email = *req.Email
	}
	user := u.user
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, user)
}

func (f *FakeAPI) handleAvatar(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_FILE", err.Error())
		return
	}
	file.Close()
	u := f.caller(r)
	f.mu.Lock()
	u.user.AvatarURL = "/avatars/" + header.Filename
	url := u.user.AvatarURL
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"avatarUrl": url})
}

func (f *FakeAPI) handleUpdateEmail(w http.ResponseWriter, r *http.Request) {
	var req docs.UpdateEmailRequest
	if !decode(w, r, &req) {
		return
	}
	u := f.caller(r)
	f.mu.Lock()
	u.user.Email = req.NewEmail
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, docs.MessageResponse{Message: "Email updated"})
}

func (f *FakeAPI) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	f.mu.Lock()
	u, ok := f.users[id]
	var user docs.User
	if ok {
		user = u.user
	}
	f.mu.Unlock()
	if !ok {
		writeError(w, r, http.StatusNotFound, "USER_NOT_FOUND", "user not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (f *FakeAPI) handleUpdateRole(w http.ResponseWriter, r *http.Request) {
	var req docs.UpdateUserRoleRequest
	if !decode(w, r, &req) {
		return
	}
	id := pathID(r, "id")
	f.mu.Lock()
	u, ok := f.users[id]
	if ok {
		u.user.Role = req.Role
	}
	f.mu.Unlock()
	if !ok {
		writeError(w, r, http.StatusNotFound, "USER_NOT_FOUND", "user not found")
		return
	}
	writeJSON(w, http.StatusOK, docs.MessageResponse{Message: "Role updated"})
}

func (f *FakeAPI) handleLogs(operationType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		var matched []docs.SystemLog
		for _, l := range f.logs {
			if operationType != "" && l.OperationType != operationType {
				continue
			}
			if operationType == "" && l.OperationType == "LOGIN" {
				continue
			}
			if t := mux.Vars(r)["type"]; t != "" && l.OperationType != t {
				continue
			}
			if uid := mux.Vars(r)["userId"]; uid != "" && (l.UserID == nil || strconv.FormatInt(*l.UserID, 10) != uid) {
				continue
			}
			matched = append(matched, l)
		}
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, paginate(matched, r))
	}
}

// Documents

func (f *FakeAPI) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	keyword := strings.ToLower(q.Get("keyword"))
	fileType := q.Get("fileType")
	folder := q.Get("folderId")

	f.mu.Lock()
	var matched []docs.Document
	for _, d := range f.sortedDocuments() {
		if keyword != "" && !strings.Contains(strings.ToLower(d.Filename), keyword) {
			continue
		}
		if fileType != "" && d.FileType != fileType {
			continue
		}
		if folder != "" && (d.FolderID == nil || strconv.FormatInt(*d.FolderID, 10) != folder) {
			continue
		}
		matched = append(matched, d)
	}
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, paginate(matched, r))
}

func (f *FakeAPI) handleUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_FILE", err.Error())
		return
	}
	defer file.Close()
	content, _ := io.ReadAll(file)

	f.mu.Lock()
	d := f.addDocument(header.Filename, content, formFolderID(r))
	d.MimeType = header.Header.Get("Content-Type")
	f.documents[d.ID].doc.MimeType = d.MimeType
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, d)
}

func (f *FakeAPI) handleBatchUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_FILE", err.Error())
		return
	}
	result := docs.BatchOperationResult{SuccessIDs: []int64{}, Errors: []docs.OperationError{}}
	folderID := formFolderID(r)
	for _, header := range r.MultipartForm.File["files"] {
		file, err := header.Open()
		if err != nil {
			result.FailureCount++
			continue
		}
		content, _ := io.ReadAll(file)
		file.Close()
		f.mu.Lock()
		d := f.addDocument(header.Filename, content, folderID)
		f.mu.Unlock()
		result.SuccessCount++
		result.SuccessIDs = append(result.SuccessIDs, d.ID)
	}
	writeJSON(w, http.StatusOK, result)
}

func (f *FakeAPI) handleStorageInfo(w http.ResponseWriter, r *http.Request) {
	const quota = 100 << 20
	f.mu.Lock()
	var used int64
	for _, d := range f.documents {
		used += d.doc.FileSize
	}
	f.mu.Unlock()
	pct := float64(used) * 100 / quota
	writeJSON(w, http.StatusOK, docs.StorageInfo{
		UsedSpace:       used,
		TotalQuota:      quota,
		RemainingSpace:  quota - used,
		UsagePercentage: pct,
		NearLimit:       pct >= 90,
	})
}

func (f *FakeAPI) handleBatchDelete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []int64 `json:"ids"`
	}
	if !decode(w, r, &req) {
		return
	}
	result := docs.BatchOperationResult{SuccessIDs: []int64{}, Errors: []docs.OperationError{}}
	f.mu.Lock()
	for _, id := range req.IDs {
		if _, ok := f.documents[id]; !ok {
			result.FailureCount++
			result.Errors = append(result.Errors, docs.OperationError{ID: id, Message: "document not found"})
			continue
		}
		delete(f.documents, id)
		result.SuccessCount++
		result.SuccessIDs = append(result.SuccessIDs, id)
	}
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, result)
}

func (f *FakeAPI) handleBatchDownload(w http.ResponseWriter, r *http.Request) {
	var ids []int64
	if !decode(w, r, &ids) {
		return
	}
	f.mu.Lock()
	var selected []*fakeDocument
	for _, id := range ids {
		if d, ok := f.documents[id]; ok {
			selected = append(selected, d)
		}
	}
	f.mu.Unlock()
	writeZip(w, "documents.zip", selected)
}

func (f *FakeAPI) handleFolderDownload(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	f.mu.Lock()
	folder, ok := f.folders[id]
	var selected []*fakeDocument
	for _, d := range f.documents {
		if d.doc.FolderID != nil && *d.doc.FolderID == id {
			selected = append(selected, d)
		}
	}
	f.mu.Unlock()
	if !ok {
		writeError(w, r, http.StatusNotFound, "FOLDER_NOT_FOUND", "folder not found")
		return
	}
	sort.Slice(selected, func(i, j int) bool { return selected[i].doc.ID < selected[j].doc.ID })
	writeZip(w, folder.Name+".zip", selected)
}

func (f *FakeAPI) handleChunk(w http.ResponseWriter, r *http.Request) {
	file, _, err := r.FormFile("chunk")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_CHUNK", err.Error())
		return
	}
	data, _ := io.ReadAll(file)
	file.Close()

	ident := r.FormValue("fileIdentifier")
	index, _ := strconv.Atoi(r.FormValue("chunkIndex"))
	total, _ := strconv.Atoi(r.FormValue("totalChunks"))
	filename := r.FormValue("filename")

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.chunks[ident] == nil {
		f.chunks[ident] = make(map[int][]byte)
	}
	f.chunks[ident][index] = data
	uploaded := sortedKeys(f.chunks[ident])

	resp := docs.ChunkUploadResponse{
		FileIdentifier: ident,
		ChunkIndex:     index,
		UploadedChunks: uploaded,
		Progress:       float64(len(uploaded)) * 100 / float64(total),
	}
	if len(uploaded) == total && !f.holdChunks {
		var content []byte
		for i := 0; i < total; i++ {
			content = append(content, f.chunks[ident][i]...)
		}
		delete(f.chunks, ident)
		d := f.addDocument(filename, content, formFolderID(r))
		resp.Completed = true
		resp.Document = &d
	}
	writeJSON(w, http.StatusOK, resp)
}

func (f *FakeAPI) handleUploadedChunks(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	uploaded := sortedKeys(f.chunks[r.URL.Query().Get("fileIdentifier")])
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, uploaded)
}

func (f *FakeAPI) handleCancelChunks(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	delete(f.chunks, r.URL.Query().Get("fileIdentifier"))
	f.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

// SeedChunk stores a chunk as if a previous upload had been interrupted.
func (f *FakeAPI) SeedChunk(fileIdentifier string, index int, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.chunks[fileIdentifier] == nil {
		f.chunks[fileIdentifier] = make(map[int][]byte)
	}
	f.chunks[fileIdentifier][index] = data
}

func (f *FakeAPI) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	d, ok := f.document(pathID(r, "id"))
	if !ok {
		writeError(w, r, http.StatusNotFound, "DOCUMENT_NOT_FOUND", "document not found")
		return
	}
	writeJSON(w, http.StatusOK, d.doc)
}

func (f *FakeAPI) handleUpdateDocument(w http.ResponseWriter, r *http.Request) {
	var req docs.UpdateDocumentRequest
	if !decode(w, r, &req) {
		return
	}
	id := pathID(r, "id")
	f.mu.Lock()
	d, ok := f.documents[id]
	if ok {
		if req.Filename != nil {
			d.doc.Filename = *req.Filename
		}
		if req.FolderID != nil {
			folderID := *req.FolderID
			d.doc.FolderID = &folderID
			if folder, ok := f.folders[folderID]; ok {
				d.doc.FolderName = folder.Name
			}
		}
	}
	var doc docs.Document
	if ok {
		doc = d.doc
	}
	f.mu.Unlock()
	if !ok {
		writeError(w, r, http.StatusNotFound, "DOCUMENT_NOT_FOUND", "document not found")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (f *FakeAPI) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	f.mu.Lock()
	_, ok := f.documents[id]
	delete(f.documents, id)
	f.mu.Unlock()
	if !ok {
		writeError(w, r, http.StatusNotFound, "DOCUMENT_NOT_FOUND", "document not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeAPI) handlePreview(w http.ResponseWriter, r *http.Request) {
	d, ok := f.document(pathID(r, "id"))
	if !ok {
		writeError(w, r, http.StatusNotFound, "DOCUMENT_NOT_FOUND", "document not found")
		return
	}
	p := docs.Preview{Filename: d.doc.Filename, FileType: d.doc.FileType, MimeType: d.doc.MimeType}
	if d.doc.FileType == "txt" || d.doc.FileType == "md" {
		p.Type = docs.PreviewTypeContent
		p.Content = string(d.content)
	} else {
		p.Type = docs.PreviewTypeURL
		p.Content = fmt.Sprintf("/api/documents/%d/download", d.doc.ID)
	}
	writeJSON(w, http.StatusOK, p)
}

func (f *FakeAPI) handleDownload(w http.ResponseWriter, r *http.Request) {
	d, ok := f.document(pathID(r, "id"))
	if !ok {
		writeError(w, r, http.StatusNotFound, "DOCUMENT_NOT_FOUND", "document not found")
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, d.doc.Filename))
	w.Write(d.content)
}

// Folders

func (f *FakeAPI) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	var req docs.CreateFolderRequest
	if !decode(w, r, &req) {
		return
	}
	f.mu.Lock()
	if req.ParentID != nil {
		if _, ok := f.folders[*req.ParentID]; !ok {
			f.mu.Unlock()
			writeError(w, r, http.StatusNotFound, "FOLDER_NOT_FOUND", "parent folder not found")
			return
		}
	}
	folder := f.addFolder(req.Name, req.ParentID)
	f.mu.Unlock()
	writeJSON(w, http.StatusCreated, folder)
}

func (f *FakeAPI) handleListFolders(w http.ResponseWriter, r *http.Request) {
	parent := r.URL.Query().Get("parentId")
	f.mu.Lock()
	folders := []docs.Folder{}
	for _, folder := range f.folders {
		if parent != "" && (folder.ParentID == nil || strconv.FormatInt(*folder.ParentID, 10) != parent) {
			continue
		}
		folders = append(folders, *folder)
	}
	f.mu.Unlock()
	sort.Slice(folders, func(i, j int) bool { return folders[i].ID < folders[j].ID })
	writeJSON(w, http.StatusOK, folders)
}

func (f *FakeAPI) handleGetFolder(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	folder, ok := f.folders[pathID(r, "id")]
	var out docs.Folder
	if ok {
		out = *folder
	}
	f.mu.Unlock()
	if !ok {
		writeError(w, r, http.StatusNotFound, "FOLDER_NOT_FOUND", "folder not found")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeAPI) handleUpdateFolder(w http.ResponseWriter, r *http.Request) {
	var req docs.UpdateFolderRequest
	if !decode(w, r, &req) {
		return
	}
	f.mu.Lock()
	folder, ok := f.folders[pathID(r, "id")]
	var out docs.Folder
	if ok {
		folder.Name = req.Name
		out = *folder
	}
	f.mu.Unlock()
	if !ok {
		writeError(w, r, http.StatusNotFound, "FOLDER_NOT_FOUND", "folder not found")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeAPI) handleDeleteFolder(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	f.mu.Lock()
	_, ok := f.folders[id]
	delete(f.folders, id)
	f.mu.Unlock()
	if !ok {
		writeError(w, r, http.StatusNotFound, "FOLDER_NOT_FOUND", "folder not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeAPI) handleFolderDocuments(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	f.mu.Lock()
	documents := []docs.Document{}
	for _, d := range f.sortedDocuments() {
		if d.FolderID != nil && *d.FolderID == id {
			documents = append(documents, d)
		}
	}
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, documents)
}

// The helpers below expect f.mu to be held, except document.

func (f *FakeAPI) newID() int64 {
	f.nextID++
	return f.nextID
}

func (f *FakeAPI) issueTokens(userID int64) (string, string) {
	f.tokenSeq++
	access := fmt.Sprintf("access-%d", f.tokenSeq)
	refresh := fmt.Sprintf("refresh-%d", f.tokenSeq)
	f.access[access] = userID
	f.refresh[refresh] = userID
	return access, refresh
}

func (f *FakeAPI) addDocument(filename string, content []byte, folderID *int64) docs.Document {
	d := docs.Document{
		ID:               f.newID(),
		Filename:         filename,
		OriginalFilename: filename,
		FileType:         strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), "."),
		FileSize:         int64(len(content)),
		CreatedAt:        docs.NewTimestamp(f.now),
		UpdatedAt:        docs.NewTimestamp(f.now),
	}
	if folderID != nil {
		id := *folderID
		d.FolderID = &id
		if folder, ok := f.folders[id]; ok {
			d.FolderName = folder.Name
		}
	}
	f.documents[d.ID] = &fakeDocument{doc: d, content: content}
	f.logs = append(f.logs, docs.SystemLog{ID: f.newID(), OperationType: "DOCUMENT_UPLOAD", Status: "SUCCESS", ResourceID: &d.ID, ResourceType: "DOCUMENT", CreatedAt: docs.NewTimestamp(f.now)})
	return d
}

func (f *FakeAPI) addFolder(name string, parentID *int64) docs.Folder {
	folder := &docs.Folder{ID: f.newID(), Name: name, CreatedAt: docs.NewTimestamp(f.now), UpdatedAt: docs.NewTimestamp(f.now)}
	if parentID != nil {
		id := *parentID
		folder.ParentID = &id
	}
	f.folders[folder.ID] = folder
	return *folder
}

func (f *FakeAPI) document(id int64) (fakeDocument, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.documents[id]
	if !ok {
		return fakeDocument{}, false
	}
	return *d, true
}

func (f *FakeAPI) sortedDocuments() []docs.Document {
	out := make([]docs.Document, 0, len(f.documents))
	for _, d := range f.documents {
		out = append(out, d.doc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func paginate[T any](items []T, r *http.Request) docs.Page[T] {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	if size <= 0 {
		size = 20
	}
	start := min(page*size, len(items))
	end := min(start+size, len(items))
	content := append([]T{}, items[start:end]...)
	return docs.Page[T]{
		Content:       content,
		TotalElements: int64(len(items)),
		TotalPages:    (len(items) + size - 1) / size,
		Size:          size,
		Number:        page,
	}
}

func writeZip(w http.ResponseWriter, name string, documents []*fakeDocument) {
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	zw := zip.NewWriter(w)
	for _, d := range documents {
		part, err := zw.Create(d.doc.Filename)
		if err != nil {
			return
		}
		part.Write(d.content)
	}
	zw.Close()
}

func formFolderID(r *http.Request) *int64 {
	raw := r.FormValue("folderId")
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &id
}

func pathID(r *http.Request, name string) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	return id
}

func sortedKeys(m map[int][]byte) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	writeJSON(w, status, docs.ErrorResponse{
		Status:    status,
		Error:     http.StatusText(status),
		Message:   msg,
		Path:      r.URL.Path,
		ErrorCode: code,
	})
}
