package repository

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// SchemaVersion is written into every envelope. Blobs from a newer version are
// treated as unreadable.
const SchemaVersion = 1

var (
	ErrCorrupt        = errors.New("stored value is corrupt")
	ErrUnknownVersion = errors.New("stored value has unsupported schema version")
)

type envelope struct {
	V    int             `json:"v"`
	Data json.RawMessage `json:"data"`
}

func encodeEnvelope(payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{V: SchemaVersion, Data: data})
}

func decodeEnvelope(raw []byte, out interface{}) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if env.V == 0 || len(env.Data) == 0 {
		return fmt.Errorf("%w: missing envelope", ErrCorrupt)
	}
	if env.V != SchemaVersion {
		return fmt.Errorf("%w: %d", ErrUnknownVersion, env.V)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return nil
}

// Sealer encrypts envelopes at rest.
type Sealer interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

// plainSealer is used when no STORE_ENCRYPTION_KEY is configured.
type plainSealer struct{}

func (plainSealer) Seal(p []byte) ([]byte, error) { return p, nil }
func (plainSealer) Open(p []byte) ([]byte, error) { return p, nil }

// XChaChaSealer stores nonce || ciphertext using XChaCha20-Poly1305.
type XChaChaSealer struct {
	key []byte
}

// NewSealer returns a pass-through sealer for an empty key, otherwise an
// XChaCha20-Poly1305 sealer keyed by the 32-byte hex string.
func NewSealer(hexKey string) (Sealer, error) {
	if hexKey == "" {
		return plainSealer{}, nil
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decode STORE_ENCRYPTION_KEY: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("STORE_ENCRYPTION_KEY must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	return &XChaChaSealer{key: key}, nil
}

func (s *XChaChaSealer) Seal(plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (s *XChaChaSealer) Open(sealed []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < aead.NonceSize()+aead.Overhead() {
		return nil, fmt.Errorf("%w: sealed value too short", ErrCorrupt)
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return plaintext, nil
}
