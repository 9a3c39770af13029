package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/lattice/pkg/ports"
)

// KeySize is the required length of every encryption key (AES-256).
const KeySize = 32

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey seals every value written through the middleware.
	ActiveKey []byte

	// FallbackKeys are tried in order after the active key when opening a
	// value, so data written before a rotation stays readable.
	FallbackKeys [][]byte
}

var (
	// ErrNotEncrypted is returned when a stored value lacks the encryption envelope.
	ErrNotEncrypted = errors.New("value is missing encrypted data envelope")
	// ErrNoMatchingKey is returned when none of the configured keys opens a value.
	ErrNoMatchingKey = errors.New("no configured key can decrypt value")
)

// envelope is what actually reaches the wrapped store.
type envelope struct {
	Encrypted string `json:"__encrypted__"`
}

// keyring holds one AEAD per configured key; index 0 is the active key.
type keyring []cipher.AEAD

func newKeyring(cfg EncryptionConfig) (keyring, error) {
	keys := append([][]byte{cfg.ActiveKey}, cfg.FallbackKeys...)
	ring := make(keyring, 0, len(keys))
	for i, k := range keys {
		if len(k) != KeySize {
			if i == 0 {
				return nil, fmt.Errorf("active key must be %d bytes (AES-256), got %d", KeySize, len(k))
			}
			return nil, fmt.Errorf("fallback key %d must be %d bytes (AES-256), got %d", i-1, KeySize, len(k))
		}
		block, err := aes.NewCipher(k)
		if err != nil {
			return nil, err
		}
		aead, err := cipher.NewGCM(block)
		if err != nil {
			return nil, err
		}
		ring = append(ring, aead)
	}
	return ring, nil
}

// seal encrypts with the active key. The nonce is prepended and the storage
// key is bound as associated data, so a value copied under another key
// fails to open.
func (r keyring) seal(key string, plain []byte) ([]byte, error) {
	aead := r[0]
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plain)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plain, []byte(key)), nil
}

func (r keyring) open(key string, sealed []byte) ([]byte, error) {
	for _, aead := range r {
		n := aead.NonceSize()
		if len(sealed) < n+aead.Overhead() {
			return nil, errors.New("ciphertext too short")
		}
		if plain, err := aead.Open(nil, sealed[:n], sealed[n:], []byte(key)); err == nil {
			return plain, nil
		}
	}
	return nil, ErrNoMatchingKey
}

type encryptionMiddleware struct {
	next ports.KeyValueStore
	ring keyring
}

// NewEncryptionMiddleware creates a middleware that encrypts values using
// AES-256-GCM. Every key must be KeySize bytes long.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	ring, err := newKeyring(config)
	if err != nil {
		return nil, err
	}
	return func(next ports.KeyValueStore) ports.KeyValueStore {
		return &encryptionMiddleware{next: next, ring: ring}
	}, nil
}

func (m *encryptionMiddleware) Set(ctx context.Context, key string, value []byte) error {
	sealed, err := m.ring.seal(key, value)
	if err != nil {
		return fmt.Errorf("encrypt %q: %w", key, err)
	}
	data, err := json.Marshal(envelope{Encrypted: base64.StdEncoding.EncodeToString(sealed)})
	if err != nil {
		return err
	}
	return m.next.Set(ctx, key, data)
}

func (m *encryptionMiddleware) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := m.next.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var env envelope
	if json.Unmarshal(data, &env) != nil || env.Encrypted == "" {
		return nil, fmt.Errorf("%w: %q", ErrNotEncrypted, key)
	}
	sealed, err := base64.StdEncoding.DecodeString(env.Encrypted)
	if err != nil {
		return nil, fmt.Errorf("decode envelope %q: %w", key, err)
	}

	plain, err := m.ring.open(key, sealed)
	if err != nil {
		return nil, fmt.Errorf("decrypt %q: %w", key, err)
	}
	return plain, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, key string) error {
	return m.next.Delete(ctx, key)
}

func (m *encryptionMiddleware) Keys(ctx context.Context) ([]string, error) {
	return m.next.Keys(ctx)
}
