package dbhost

import (
	"os"
	"path/filepath"
)

// Cipher identifies an at-rest encryption algorithm. Exactly one algorithm is
// supported.
type Cipher string

// CipherAES256CBC is the only supported cipher.
const CipherAES256CBC Cipher = "aes256cbc"

// aes256KeySize is the required key length for CipherAES256CBC.
const aes256KeySize = 32

// EncryptionConfig selects at-rest encryption for local and replica
// databases. Pure-remote connections ignore it.
type EncryptionConfig struct {
	Cipher Cipher `json:"cipher"`
	Key    []byte `json:"key"`
}

// Validate rejects unknown ciphers and keys that are not exactly the size the
// cipher requires. Keys are never padded or truncated here.
func (c *EncryptionConfig) Validate() error {
	if c.Cipher != CipherAES256CBC {
		return NewError(KindInvalidDBURL, "unsupported cipher %q (expected %q)", c.Cipher, CipherAES256CBC)
	}
	if len(c.Key) != aes256KeySize {
		return NewError(KindInvalidDBURL, "encryption key must be exactly %d bytes for %s, got %d",
			aes256KeySize, c.Cipher, len(c.Key))
	}
	return nil
}

// Config is the process-wide configuration for the connection layer. It is
// built once at startup and treated as immutable afterwards.
type Config struct {
	// BasePath is the directory that relative local targets resolve against.
	// Defaults to the current working directory.
	BasePath string
	// Encryption, when set, applies to every connection that does not supply
	// its own encryption config.
	Encryption *EncryptionConfig
	// AllowAbsolutePaths permits local targets that are already absolute,
	// bypassing base-path containment. Off by default; only hosts whose
	// callers legitimately hand out absolute paths should enable it.
	AllowAbsolutePaths bool
}

// NewConfig canonicalizes basePath (falling back to the working directory
// when empty) and validates the default encryption config if one is given.
func NewConfig(basePath string, encryption *EncryptionConfig) (*Config, error) {
	if basePath == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, WrapError(KindIO, err, "failed to determine working directory")
		}
		basePath = cwd
	}
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, WrapError(KindIO, err, "failed to canonicalize base path")
	}
	if encryption != nil {
		if err := encryption.Validate(); err != nil {
			return nil, err
		}
	}
	return &Config{BasePath: filepath.Clean(abs), Encryption: encryption}, nil
}

// EncryptionEnabled reports whether a default encryption config is set. This
// is what the getConfig command returns to the frontend.
func (c *Config) EncryptionEnabled() bool {
	return c.Encryption != nil
}
