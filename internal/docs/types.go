package docs

// Role is a user's authorization role.
type Role string

const (
	RoleRegularUser   Role = "REGULAR_USER"
	RoleAdministrator Role = "ADMINISTRATOR"
)

// User is the profile of an account as returned by the API.
type User struct {
	ID              int64     `json:"id"`
	Username        string    `json:"username"`
	Email           string    `json:"email"`
	Role            Role      `json:"role"`
	AvatarURL       string    `json:"avatarUrl,omitempty"`
	IsEmailVerified bool      `json:"isEmailVerified"`
	CreatedAt       Timestamp `json:"createdAt"`
}

// UserPatch is a partial profile update applied locally to the session.
// Nil fields are left unchanged.
type UserPatch struct {
	Username        *string
	Email           *string
	Role            *Role
	AvatarURL       *string
	IsEmailVerified *bool
}

// Apply returns a copy of u with the patch applied.
func (p UserPatch) Apply(u User) User {
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.AvatarURL != nil {
		u.AvatarURL = *p.AvatarURL
	}
	if p.IsEmailVerified != nil {
		u.IsEmailVerified = *p.IsEmailVerified
	}
	return u
}

// Auth requests and responses

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Message  string `json:"message"`
}

type LoginRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail"`
	Password        string `json:"password"`
	RememberMe      bool   `json:"rememberMe,omitempty"`
}

// LoginResponse is the envelope returned by login and, without the user,
// by token refresh.
type LoginResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         *User  `json:"user,omitempty"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// TokenResponse is the refresh-token response.
type TokenResponse = LoginResponse

// MessageResponse is the generic {"message": "..."} acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// User requests

type UpdateUserRequest struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
}

type UpdateEmailRequest struct {
	NewEmail         string `json:"newEmail"`
	VerificationCode string `json:"verificationCode"`
}

type UpdatePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type UpdateUserRoleRequest struct {
	Role Role `json:"role"`
}

// Documents

type Document struct {
	ID               int64     `json:"id"`
	Filename         string    `json:"filename"`
	OriginalFilename string    `json:"originalFilename"`
	FileType         string    `json:"fileType"`
	FileSize         int64     `json:"fileSize"`
	MimeType         string    `json:"mimeType,omitempty"`
	FolderID         *int64    `json:"folderId,omitempty"`
	FolderName       string    `json:"folderName,omitempty"`
	CreatedAt        Timestamp `json:"createdAt"`
	UpdatedAt        Timestamp `json:"updatedAt"`
}

// DocumentPatch is a partial local update of a cached document.
type DocumentPatch struct {
	Filename    *string
	FolderID    *int64
	FolderName  *string
	ClearFolder bool
}

// Apply returns a copy of d with the patch applied.
func (p DocumentPatch) Apply(d Document) Document {
	if p.Filename != nil {
		d.Filename = *p.Filename
	}
	if p.ClearFolder {
		d.FolderID = nil
		d.FolderName = ""
	}
	if p.FolderID != nil {
		id := *p.FolderID
		d.FolderID = &id
	}
	if p.FolderName != nil {
		d.FolderName = *p.FolderName
	}
	return d
}

// DocumentQuery holds list filters. Zero values are omitted from the request.
type DocumentQuery struct {
	Page          int
	Size          int
	Keyword       string
	FileType      string
	FolderID      *int64
	SortBy        string
	SortDirection string
}

// Page is a Spring-style page of results.
type Page[T any] struct {
	Content       []T   `json:"content"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	Size          int   `json:"size"`
	Number        int   `json:"number"`
}

type StorageInfo struct {
	UsedSpace       int64   `json:"usedSpace"`
	TotalQuota      int64   `json:"totalQuota"`
	RemainingSpace  int64   `json:"remainingSpace"`
	UsagePercentage float64 `json:"usagePercentage"`
	NearLimit       bool    `json:"nearLimit"`
}

type UpdateDocumentRequest struct {
	Filename *string `json:"filename,omitempty"`
	FolderID *int64  `json:"folderId,omitempty"`
}

type BatchOperationResult struct {
	SuccessCount int              `json:"successCount"`
	FailureCount int              `json:"failureCount"`
	SuccessIDs   []int64          `json:"successIds"`
	Errors       []OperationError `json:"errors"`
}

type OperationError struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

// Preview types.
const (
	PreviewTypeURL     = "url"
	PreviewTypeContent = "content"
)

type Preview struct {
	Type     string `json:"type"`
	Content  string `json:"content"`
	Filename string `json:"filename,omitempty"`
	FileType string `json:"fileType,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

// Chunked upload

type ChunkUploadRequest struct {
	FileIdentifier string
	ChunkIndex     int
	TotalChunks    int
	Filename       string
	TotalSize      int64
	FolderID       *int64
}

type ChunkUploadResponse struct {
	FileIdentifier string    `json:"fileIdentifier"`
	ChunkIndex     int       `json:"chunkIndex"`
	Completed      bool      `json:"completed"`
	UploadedChunks []int     `json:"uploadedChunks"`
	Document       *Document `json:"document,omitempty"`
	Progress       float64   `json:"progress"`
}

// Folders

type Folder struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	ParentID  *int64    `json:"parentId,omitempty"`
	Path      string    `json:"path,omitempty"`
	CreatedAt Timestamp `json:"createdAt"`
	UpdatedAt Timestamp `json:"updatedAt"`
}

// FolderPatch is a partial local update of a cached folder.
type FolderPatch struct {
	Name     *string
	ParentID *int64
	Path     *string
}

// Apply returns a copy of f with the patch applied.
func (p FolderPatch) Apply(f Folder) Folder {
	if p.Name != nil {
		f.Name = *p.Name
	}
	if p.ParentID != nil {
		id := *p.ParentID
		f.ParentID = &id
	}
	if p.Path != nil {
		f.Path = *p.Path
	}
	return f
}

type CreateFolderRequest struct {
	Name     string `json:"name"`
	ParentID *int64 `json:"parentId,omitempty"`
}

type UpdateFolderRequest struct {
	Name string `json:"name"`
}

// Admin

// SystemLog is an audit entry for logins and document operations.
type SystemLog struct {
	ID               int64     `json:"id"`
	UserID           *int64    `json:"userId,omitempty"`
	OperationType    string    `json:"operationType"`
	IPAddress        string    `json:"ipAddress,omitempty"`
	UserAgent        string    `json:"userAgent,omitempty"`
	Status           string    `json:"status"`
	ErrorMessage     string    `json:"errorMessage,omitempty"`
	ResourceID       *int64    `json:"resourceId,omitempty"`
	ResourceType     string    `json:"resourceType,omitempty"`
	OperationDetails string    `json:"operationDetails,omitempty"`
	CreatedAt        Timestamp `json:"createdAt"`
}

// ErrorResponse is the server's error envelope.
type ErrorResponse struct {
	Timestamp Timestamp `json:"timestamp"`
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Path      string    `json:"path"`
	ErrorCode string    `json:"errorCode"`
}
