package encryption

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestTestEncryptor_Seal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input []byte
	}{
		{"access token", []byte("eyJhbGciOiJIUzI1NiJ9.e30.sig")},
		{"empty", nil},
		{"binary", []byte{0x00, 0xff, 0x64, 0x6f}},
		{"longer than mask", bytes.Repeat([]byte("refresh-"), 500)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := NewTestEncryptor()

			var sealed bytes.Buffer
			if err := e.Encrypt(bytes.NewReader(tt.input), &sealed); err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}
			if !bytes.HasPrefix(sealed.Bytes(), testMagic) {
				t.Fatal("sealed payload lacks the prefix")
			}
			body := sealed.Bytes()[len(testMagic):]
			if len(body) != len(tt.input) {
				t.Fatalf("sealed body is %d bytes, want %d", len(body), len(tt.input))
			}
			if len(tt.input) > 0 && bytes.Equal(body, tt.input) {
				t.Error("sealed body equals the plaintext")
			}

			dec, err := e.Unlock()
			if err != nil {
				t.Fatalf("Unlock() error = %v", err)
			}
			var opened bytes.Buffer
			if err := dec.Decrypt(&sealed, &opened); err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}
			if !bytes.Equal(opened.Bytes(), tt.input) {
				t.Errorf("Decrypt() = %q, want %q", opened.Bytes(), tt.input)
			}
		})
	}
}

func TestTestEncryptor_SameInputSameOutput(t *testing.T) {
	t.Parallel()
	e := NewTestEncryptor()

	seal := func() []byte {
		var buf bytes.Buffer
		if err := e.Encrypt(bytes.NewReader([]byte("R1")), &buf); err != nil {
			t.Fatalf("Encrypt() error = %v", err)
		}
		return buf.Bytes()
	}
	if a, b := seal(), seal(); !bytes.Equal(a, b) {
		t.Errorf("sealing twice gave %x and %x", a, b)
	}
}

func TestTestEncryptor_Setup(t *testing.T) {
	t.Parallel()
	e := NewTestEncryptor()
	for i := 0; i < 2; i++ {
		if err := e.Setup(); err != nil {
			t.Fatalf("Setup() error = %v", err)
		}
	}
	if e.Setups() != 2 || !e.IsConfigured() {
		t.Errorf("Setups() = %d, IsConfigured() = %t", e.Setups(), e.IsConfigured())
	}
}

func TestTestOpener_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input []byte
		want  error
	}{
		{"wrong prefix", []byte("AGE-ENC\x00payload"), ErrNotTestSealed},
		{"truncated prefix", []byte("DOCS"), io.ErrUnexpectedEOF},
		{"empty", nil, io.EOF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := testOpener{}.Decrypt(bytes.NewReader(tt.input), io.Discard)
			if !errors.Is(err, tt.want) {
				t.Errorf("Decrypt() error = %v, want %v", err, tt.want)
			}
		})
	}
}
