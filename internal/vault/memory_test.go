package vault

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"
)

func typeName(v any) string { return fmt.Sprintf("%T", v) }

func TestMemoryVault_PutAndGet(t *testing.T) {
	vault := NewMemoryVault()

	tests := []struct {
		name    string
		object  string
		content string
		size    int64
		wantErr bool
	}{
		{name: "store and retrieve", object: "a.txt", content: "hello world", size: 11},
		{name: "store empty content", object: "empty", content: "", size: 0},
		{name: "store large content", object: "large", content: strings.Repeat("x", 10000), size: 10000},
		{name: "unknown size", object: "stream", content: "abc", size: -1},
		{name: "size mismatch", object: "bad", content: "abc", size: 4, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := vault.Put(tt.object, strings.NewReader(tt.content), tt.size)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Put() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			var buf bytes.Buffer
			if err := vault.Get(tt.object, &buf); err != nil {
				t.Fatalf("Get() unexpected error: %v", err)
			}
			if got := buf.String(); got != tt.content {
				t.Errorf("Get() = %d bytes, want %d", len(got), len(tt.content))
			}
		})
	}

	if names := vault.Names(); len(names) != 4 || names[0] != "a.txt" {
		t.Errorf("Names() = %v", names)
	}
}

func TestMemoryVault_GetNotFound(t *testing.T) {
	var buf bytes.Buffer
	if err := NewMemoryVault().Get("missing", &buf); err == nil {
		t.Error("Get() should return error for missing object")
	}
}

func TestMemoryVault_LocationAndSetup(t *testing.T) {
	v := NewMemoryVault()
	if got := v.Location("x.zip"); got != "memory://x.zip" {
		t.Errorf("Location() = %q", got)
	}
	if err := v.ValidateSetup(); err != nil {
		t.Errorf("ValidateSetup() error = %v", err)
	}
}

func TestMemoryVault_ConcurrentAccess(t *testing.T) {
	vault := NewMemoryVault()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("obj-%d", i)
			content := fmt.Sprintf("content-%d", i)
			if err := vault.Put(name, strings.NewReader(content), int64(len(content))); err != nil {
				t.Errorf("Put() error = %v", err)
			}
			var buf bytes.Buffer
			if err := vault.Get(name, &buf); err != nil || buf.String() != content {
				t.Errorf("Get(%s) = %q, %v", name, buf.String(), err)
			}
		}(i)
	}
	wg.Wait()
}
