package authn

import (
	"crypto/rand"
	"fmt"
	"os"
)

// LoadSecretKey reads the HMAC secret from path, generating and persisting a
// fresh 32-byte key on first use.
func LoadSecretKey(path string) ([]byte, error) {
	key, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read secret key: %w", err)
		}
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return nil, fmt.Errorf("failed to generate secret key: %w", err)
		}
		if err := os.WriteFile(path, b, 0600); err != nil {
			return nil, fmt.Errorf("failed to write secret key: %w", err)
		}
		key = b
	}
	return key, nil
}
