package authn

import (
	"bytes"
	"path/filepath"
	"testing"
)

func TestLoadSecretKeyGeneratesAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret.key")

	first, err := LoadSecretKey(path)
	if err != nil {
		t.Fatalf("LoadSecretKey returned error: %v", err)
	}
	if len(first) != 32 {
		t.Errorf("Expected a 32-byte key, got %d", len(first))
	}

	second, err := LoadSecretKey(path)
	if err != nil {
		t.Fatalf("Second LoadSecretKey returned error: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("Expected the persisted key to be reused")
	}
}
