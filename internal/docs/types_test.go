package docs_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"docs-go/internal/docs"
)

func TestTimestamp_UnmarshalJSON(t *testing.T) {
	want := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{"local date time", `"2024-01-15T10:30:00"`, want, false},
		{"fractional seconds", `"2024-01-15T10:30:00.000"`, want, false},
		{"rfc3339", `"2024-01-15T10:30:00Z"`, want, false},
		{"null", `null`, time.Time{}, false},
		{"empty string", `""`, time.Time{}, false},
		{"garbage", `"yesterday"`, time.Time{}, true},
		{"number", `1705314600`, time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts docs.Timestamp
			err := json.Unmarshal([]byte(tt.input), &ts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !ts.Time.Equal(tt.want) {
				t.Errorf("got %v, want %v", ts.Time, tt.want)
			}
		})
	}
}

func TestTimestamp_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(docs.NewTimestamp(time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `"2024-01-15T10:30:00"` {
		t.Errorf("got %s", data)
	}

	data, _ = json.Marshal(docs.Timestamp{})
	if string(data) != "null" {
		t.Errorf("zero timestamp = %s, want null", data)
	}
	if (docs.Timestamp{}).String() != "-" {
		t.Error("zero timestamp should display as -")
	}
}

func TestDocument_DecodesServerPayload(t *testing.T) {
	payload := `{"id":3,"filename":"q1.pdf","originalFilename":"Q1 Report.pdf","fileType":"pdf",
		"fileSize":2048,"mimeType":"application/pdf","folderId":9,"folderName":"Reports",
		"createdAt":"2024-01-15T10:30:00","updatedAt":"2024-01-16T08:00:00"}`

	var d docs.Document
	if err := json.Unmarshal([]byte(payload), &d); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if d.FolderID == nil || *d.FolderID != 9 || d.FolderName != "Reports" {
		t.Errorf("folder = %v/%q", d.FolderID, d.FolderName)
	}
	if d.UpdatedAt.Day() != 16 {
		t.Errorf("UpdatedAt = %v", d.UpdatedAt)
	}
}

func TestDocumentPatch_Apply(t *testing.T) {
	folder := int64(4)
	base := docs.Document{ID: 1, Filename: "a.txt", FolderID: &folder, FolderName: "Old"}

	t.Run("rename keeps folder", func(t *testing.T) {
		name := "b.txt"
		got := docs.DocumentPatch{Filename: &name}.Apply(base)
		if got.Filename != "b.txt" || got.FolderID == nil || *got.FolderID != 4 {
			t.Errorf("Apply() = %+v", got)
		}
	})

	t.Run("move replaces folder", func(t *testing.T) {
		next := int64(5)
		fname := "New"
		got := docs.DocumentPatch{FolderID: &next, FolderName: &fname}.Apply(base)
		if *got.FolderID != 5 || got.FolderName != "New" {
			t.Errorf("Apply() = %+v", got)
		}
		next = 6
		if *got.FolderID != 5 {
			t.Error("patched document aliases the patch's folder id")
		}
	})

	t.Run("clear folder", func(t *testing.T) {
		got := docs.DocumentPatch{ClearFolder: true}.Apply(base)
		if got.FolderID != nil || got.FolderName != "" {
			t.Errorf("Apply() = %+v", got)
		}
		if base.FolderID == nil {
			t.Error("Apply mutated its input")
		}
	})
}

func TestFolderPatch_Apply(t *testing.T) {
	name := "Renamed"
	got := docs.FolderPatch{Name: &name}.Apply(docs.Folder{ID: 1, Name: "Old"})
	if got.Name != "Renamed" || got.ID != 1 {
		t.Errorf("Apply() = %+v", got)
	}
}

func TestUserPatch_Apply(t *testing.T) {
	verified := true
	role := docs.RoleAdministrator
	got := docs.UserPatch{IsEmailVerified: &verified, Role: &role}.Apply(docs.User{Username: "alice"})
	if !got.IsEmailVerified || got.Role != role || got.Username != "alice" {
		t.Errorf("Apply() = %+v", got)
	}
}

func TestParseAccessClaims(t *testing.T) {
	issued := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	expires := issued.Add(time.Hour)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "7",
		IssuedAt:  jwt.NewNumericDate(issued),
		ExpiresAt: jwt.NewNumericDate(expires),
	})
	signed, err := token.SignedString([]byte("server-secret"))
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}

	claims, err := docs.ParseAccessClaims(signed)
	if err != nil {
		t.Fatalf("ParseAccessClaims() error = %v", err)
	}
	if claims.Subject != "7" || !claims.ExpiresAt.Equal(expires) || !claims.IssuedAt.Equal(issued) {
		t.Errorf("claims = %+v", claims)
	}
	if claims.Expired(issued.Add(30 * time.Minute)) {
		t.Error("token reported expired before its expiry")
	}
	if !claims.Expired(expires) {
		t.Error("token not reported expired at its expiry")
	}

	if _, err := docs.ParseAccessClaims("not-a-jwt"); err == nil {
		t.Error("ParseAccessClaims(garbage) error = nil")
	}
}
