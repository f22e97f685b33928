package encryption

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"filippo.io/age/armor"

	"docs-go/internal/docs"
)

// SealedStore is a docs.KeyValueStore that encrypts values before handing
// them to the wrapped store. Values are stored ASCII-armored so the wrapped
// store only ever sees text. Values written before sealing was enabled are
// returned as they are.
// This implementation is safe for concurrent use if the wrapped store is.
type SealedStore struct {
	inner docs.KeyValueStore
	enc   docs.Encryptor

	mu  sync.Mutex
	dec docs.DecryptionContext // unlocked on first read
}

var _ docs.KeyValueStore = (*SealedStore)(nil)

// Seal wraps store with enc. A nil enc returns store unchanged.
func Seal(store docs.KeyValueStore, enc docs.Encryptor) docs.KeyValueStore {
	if enc == nil {
		return store
	}
	return NewSealedStore(store, enc)
}

func NewSealedStore(store docs.KeyValueStore, enc docs.Encryptor) *SealedStore {
	return &SealedStore{inner: store, enc: enc}
}

func (s *SealedStore) Get(key string) (string, bool, error) {
	raw, ok, err := s.inner.Get(key)
	if err != nil || !ok {
		return raw, ok, err
	}
	if !strings.HasPrefix(raw, armor.Header) {
		return raw, true, nil
	}

	dec, err := s.unlock()
	if err != nil {
		return "", false, err
	}

	var out bytes.Buffer
	if err := dec.Decrypt(armor.NewReader(strings.NewReader(raw)), &out); err != nil {
		return "", false, fmt.Errorf("opening %s: %w", key, err)
	}
	return out.String(), true, nil
}

func (s *SealedStore) Set(key, value string) error {
	var buf bytes.Buffer
	w := armor.NewWriter(&buf)
	if err := s.enc.Encrypt(strings.NewReader(value), w); err != nil {
		return fmt.Errorf("sealing %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("sealing %s: %w", key, err)
	}
	return s.inner.Set(key, buf.String())
}

func (s *SealedStore) Delete(key string) error {
	return s.inner.Delete(key)
}

func (s *SealedStore) unlock() (docs.DecryptionContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dec != nil {
		return s.dec, nil
	}
	dec, err := s.enc.Unlock()
	if err != nil {
		return nil, fmt.Errorf("unlocking identity: %w", err)
	}
	s.dec = dec
	return dec, nil
}
