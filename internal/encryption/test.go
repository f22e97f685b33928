package encryption

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"docs-go/internal/docs"
)

// testMagic prefixes every payload sealed by TestEncryptor.
var testMagic = []byte("DOCSENC\x00")

// testMask is XORed over the payload so sealed tokens never contain the
// plaintext. It is not encryption.
var testMask = []byte("docs-test-mask")

// ErrNotTestSealed is returned when a payload lacks the TestEncryptor prefix.
var ErrNotTestSealed = errors.New("payload was not sealed by the test encryptor")

// TestEncryptor is a deterministic, keyless Encryptor for tests and for the
// "test" encryption type. It is safe for concurrent use.
type TestEncryptor struct {
	setups atomic.Int32
}

var _ docs.Encryptor = (*TestEncryptor)(nil)

func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

// Setup records the call. There are no keys to generate.
func (e *TestEncryptor) Setup() error {
	e.setups.Add(1)
	return nil
}

// Setups reports how many times Setup ran.
func (e *TestEncryptor) Setups() int {
	return int(e.setups.Load())
}

func (e *TestEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := w.Write(testMagic); err != nil {
		return fmt.Errorf("writing prefix: %w", err)
	}
	return mask(r, w)
}

func (e *TestEncryptor) Unlock() (docs.DecryptionContext, error) {
	return testOpener{}, nil
}

func (e *TestEncryptor) IsConfigured() bool {
	return true
}

type testOpener struct{}

func (testOpener) Decrypt(r io.Reader, w io.Writer) error {
	prefix := make([]byte, len(testMagic))
	if _, err := io.ReadFull(r, prefix); err != nil {
		return fmt.Errorf("reading prefix: %w", err)
	}
	if !bytes.Equal(prefix, testMagic) {
		return ErrNotTestSealed
	}
	return mask(r, w)
}

// mask copies r to w, XORing each byte with testMask. It is its own inverse.
func mask(r io.Reader, w io.Writer) error {
	br := bufio.NewReader(r)
	bw := bufio.NewWriter(w)
	for i := 0; ; i++ {
		b, err := br.ReadByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading payload: %w", err)
		}
		if err := bw.WriteByte(b ^ testMask[i%len(testMask)]); err != nil {
			return fmt.Errorf("writing payload: %w", err)
		}
	}
	return bw.Flush()
}
