package cas

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestStoreAndRetrieve tests that storing a blob returns the correct hash
// and that retrieving by hash returns the exact same bytes.
func TestStoreAndRetrieve(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	testData := []byte("The ship docked.\n\nMara stepped onto the platform.")
	h := sha256.Sum256(testData)
	expectedHash := hex.EncodeToString(h[:])

	hash, err := store.Store(testData)
	if err != nil {
		t.Fatalf("failed to store blob: %v", err)
	}
	if hash != expectedHash {
		t.Errorf("hash mismatch: got %s, want %s", hash, expectedHash)
	}

	retrieved, err := store.Retrieve(hash)
	if err != nil {
		t.Fatalf("failed to retrieve blob: %v", err)
	}
	if !bytes.Equal(retrieved, testData) {
		t.Errorf("retrieved data mismatch: got %q, want %q", retrieved, testData)
	}
	if !store.Exists(hash) {
		t.Error("Exists() = false after Store")
	}
}

// TestStoreCompresses tests that blobs are kept xz-compressed on disk.
func TestStoreCompresses(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	data := []byte(strings.Repeat("a paragraph of prose that repeats ", 200))
	hash, err := store.Store(data)
	if err != nil {
		t.Fatal(err)
	}
	packed, err := os.ReadFile(filepath.Join(dir, "blobs", "sha256", hash[:2], hash+".xz"))
	if err != nil {
		t.Fatalf("blob file missing: %v", err)
	}
	if len(packed) >= len(data) {
		t.Errorf("blob not compressed: %d bytes for %d", len(packed), len(data))
	}
	if !bytes.HasPrefix(packed, []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}) {
		t.Error("blob does not carry the xz magic")
	}
}

// TestStoreDuplicate tests that storing the same content twice returns the same hash.
func TestStoreDuplicate(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	hash1, err := store.Store([]byte("same"))
	if err != nil {
		t.Fatalf("first store failed: %v", err)
	}
	hash2, err := store.Store([]byte("same"))
	if err != nil {
		t.Fatalf("second store failed: %v", err)
	}
	if hash1 != hash2 {
		t.Errorf("duplicate content produced different hashes: %s vs %s", hash1, hash2)
	}
}

func TestRetrieveErrors(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		hash string
		want error
	}{
		{"invalid", "not-a-hash", ErrInvalidHash},
		{"uppercase", strings.Repeat("A", 64), ErrInvalidHash},
		{"missing", strings.Repeat("0", 64), ErrBlobNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := store.Retrieve(tt.hash); !errors.Is(err, tt.want) {
				t.Errorf("Retrieve() error = %v, want %v", err, tt.want)
			}
		})
	}

	// swap the content of one blob for another's
	a, _ := store.Store([]byte("alpha"))
	b, _ := store.Store([]byte("beta"))
	other, err := os.ReadFile(store.pathForHash(b))
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(store.pathForHash(a), other, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Retrieve(a); !errors.Is(err, ErrCorruptBlob) {
		t.Errorf("Retrieve(tampered) error = %v, want ErrCorruptBlob", err)
	}
}

// TestStoreRenameError tests the failure path when the final rename fails.
func TestStoreRenameError(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	origRename := osRename
	defer func() { osRename = origRename }()
	osRename = func(oldpath, newpath string) error {
		return errors.New("injected rename error")
	}

	hash := Hash([]byte("test for rename error"))
	if _, err := store.Store([]byte("test for rename error")); err == nil {
		t.Error("expected error when rename fails")
	}
	if store.Exists(hash) {
		t.Error("blob exists after failed rename")
	}
	entries, _ := os.ReadDir(filepath.Join(dir, "blobs", "sha256", hash[:2]))
	if len(entries) != 0 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ch01.md")
	if err := WriteFileAtomic(path, []byte("one"), 0644); err != nil {
		t.Fatalf("WriteFileAtomic() error = %v", err)
	}
	if err := WriteFileAtomic(path, []byte("two"), 0644); err != nil {
		t.Fatalf("WriteFileAtomic() error = %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "two" {
		t.Errorf("content = %q, want two", got)
	}

	origWrite := tempFileWrite
	defer func() { tempFileWrite = origWrite }()
	tempFileWrite = func(f *os.File, data []byte) (int, error) {
		return 0, errors.New("injected write error")
	}
	if err := WriteFileAtomic(path, []byte("three"), 0644); err == nil {
		t.Error("expected error when write fails")
	}
	if got, _ := os.ReadFile(path); string(got) != "two" {
		t.Errorf("content after failed write = %q, want two", got)
	}
}
