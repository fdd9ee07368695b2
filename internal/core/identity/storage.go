package identity

import (
	"crypto/ed25519"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
)

const pemTypeEd25519Private = "ED25519 PRIVATE KEY"

// Load reads the identity from path. If the file does not exist, a fresh
// key pair is generated and atomically persisted there before returning.
// A file that exists but fails to parse is never touched and returns
// ErrIdentityCorrupt.
func Load(path string) (*Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return generateAndSave(path)
		}
		return nil, fmt.Errorf("identity: read %s: %w", path, err)
	}

	block, _ := pem.Decode(data)
	if block == nil || block.Type != pemTypeEd25519Private {
		return nil, ErrIdentityCorrupt
	}
	if len(block.Bytes) != ed25519.PrivateKeySize {
		return nil, ErrIdentityCorrupt
	}

	return FromPrivateKey(ed25519.PrivateKey(block.Bytes))
}

func generateAndSave(path string) (*Identity, error) {
	id, err := New()
	if err != nil {
		return nil, fmt.Errorf("identity: generate key: %w", err)
	}
	if err := save(id, path); err != nil {
		return nil, err
	}
	return id, nil
}

func save(id *Identity, path string) error {
	block := &pem.Block{
		Type:  pemTypeEd25519Private,
		Bytes: id.PrivateKey(),
	}
	data := pem.EncodeToMemory(block)
	return atomicWriteFile(path, data, 0600)
}

// atomicWriteFile writes data to path via a temp file in the same
// directory, fsync, chmod, close, then rename — so a crash mid-write
// never leaves a half-written key file in place of a good one.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-")
	if err != nil {
		return fmt.Errorf("identity: create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("identity: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("identity: sync temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("identity: chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("identity: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("identity: rename temp file: %w", err)
	}

	success = true
	return nil
}
