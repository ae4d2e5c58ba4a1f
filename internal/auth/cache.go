package auth

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

const (
	// XChaCha20-Poly1305 requires a 256-bit (32-byte) key.
	cacheKeyLength = 32
	// Expected hex-encoded length (32 bytes = 64 hex characters).
	cacheKeyHexLength = 64

	credentialFile = "credential.bin"
	cacheKeyFile   = "cache.key"
)

// Credential is the long-lived secret cached between sessions.
type Credential struct {
	RefreshToken string `json:"refresh_token"`
	User         string `json:"user,omitempty"`
}

// TokenCache stores the OAuth credential encrypted at rest under the
// data path. The cache key lives next to the credential with restricted
// permissions, generated on first use.
type TokenCache struct {
	dataPath string
	key      []byte
}

// NewTokenCache opens the credential cache, loading or generating the
// encryption key.
func NewTokenCache(dataPath string) (*TokenCache, error) {
	key, err := loadOrGenerateCacheKey(dataPath)
	if err != nil {
		return nil, err
	}
	return &TokenCache{dataPath: dataPath, key: key}, nil
}

// Load returns the cached credential, or nil when none is stored.
func (c *TokenCache) Load() (*Credential, error) {
	path := filepath.Join(c.dataPath, credentialFile)
	sealed, err := os.ReadFile(path) //#nosec G304 -- path derived from validated data path
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credential cache: %w", err)
	}

	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < aead.NonceSize() {
		return nil, errors.New("credential cache truncated")
	}

	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt credential cache: %w", err)
	}

	var cred Credential
	if err := json.Unmarshal(plaintext, &cred); err != nil {
		return nil, fmt.Errorf("decode credential cache: %w", err)
	}
	return &cred, nil
}

// Save encrypts and persists the credential.
func (c *TokenCache) Save(cred *Credential) error {
	plaintext, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}

	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, plaintext, nil)
	path := filepath.Join(c.dataPath, credentialFile)
	if err := os.WriteFile(path, sealed, 0o600); err != nil {
		return fmt.Errorf("write credential cache: %w", err)
	}
	return nil
}

// Clear removes the cached credential. Missing file is not an error.
func (c *TokenCache) Clear() error {
	err := os.Remove(filepath.Join(c.dataPath, credentialFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// loadOrGenerateCacheKey loads the cache encryption key from
// <dataPath>/cache.key as a hex-encoded string, generating and saving a
// new one if the file doesn't exist.
func loadOrGenerateCacheKey(dataPath string) ([]byte, error) {
	keyPath := filepath.Join(dataPath, cacheKeyFile)

	//#nosec G304 -- key path is derived from validated data path
	if keyBytes, err := os.ReadFile(keyPath); err == nil {
		keyHex := strings.TrimSpace(string(keyBytes))
		if len(keyHex) != cacheKeyHexLength {
			return nil, fmt.Errorf("invalid cache key length: expected %d hex chars, got %d", cacheKeyHexLength, len(keyHex))
		}
		key, err := hex.DecodeString(keyHex)
		if err != nil {
			return nil, fmt.Errorf("invalid cache key format: not valid hex: %w", err)
		}
		return key, nil
	}

	key := make([]byte, cacheKeyLength)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate cache key: %w", err)
	}

	if err := os.MkdirAll(dataPath, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.WriteFile(keyPath, []byte(hex.EncodeToString(key)), 0o600); err != nil {
		return nil, fmt.Errorf("failed to save cache key: %w", err)
	}

	return key, nil
}
