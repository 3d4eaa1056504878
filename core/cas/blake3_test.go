package cas

import (
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zeebo/blake3"
)

// TestBlake3Store tests that storing with BLAKE3 creates pointer files.
func TestBlake3Store(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	testData := []byte("BLAKE3 test data")
	result, err := store.StoreWithBlake3(testData)
	if err != nil {
		t.Fatalf("failed to store with BLAKE3: %v", err)
	}

	if result.SHA256 != Hash(testData) {
		t.Errorf("SHA-256 mismatch: got %s, want %s", result.SHA256, Hash(testData))
	}
	h := blake3.Sum256(testData)
	if want := hex.EncodeToString(h[:]); result.BLAKE3 != want {
		t.Errorf("BLAKE3 mismatch: got %s, want %s", result.BLAKE3, want)
	}
	if result.Size != len(testData) {
		t.Errorf("Size = %d, want %d", result.Size, len(testData))
	}

	pointerPath := filepath.Join(dir, "blobs", "blake3", result.BLAKE3[:2], result.BLAKE3+".json")
	if _, err := os.Stat(pointerPath); os.IsNotExist(err) {
		t.Errorf("BLAKE3 pointer file should exist at %s", pointerPath)
	}
}

// TestBlake3Lookup tests looking up a blob by its BLAKE3 hash.
func TestBlake3Lookup(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	result, err := store.StoreWithBlake3([]byte("lookup me"))
	if err != nil {
		t.Fatal(err)
	}

	sha, err := store.LookupBlake3(result.BLAKE3)
	if err != nil {
		t.Fatalf("LookupBlake3() error = %v", err)
	}
	if sha != result.SHA256 {
		t.Errorf("LookupBlake3() = %s, want %s", sha, result.SHA256)
	}

	data, err := store.RetrieveByBlake3(result.BLAKE3)
	if err != nil {
		t.Fatalf("RetrieveByBlake3() error = %v", err)
	}
	if string(data) != "lookup me" {
		t.Errorf("RetrieveByBlake3() = %q", data)
	}

	if _, err := store.LookupBlake3(strings.Repeat("1", 64)); !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("LookupBlake3(missing) error = %v", err)
	}
	if _, err := store.LookupBlake3("short"); !errors.Is(err, ErrInvalidHash) {
		t.Errorf("LookupBlake3(short) error = %v", err)
	}
}

// TestBlake3PointerRenameError tests failure when the pointer file cannot be renamed.
func TestBlake3PointerRenameError(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	origRename := osRename
	defer func() { osRename = origRename }()
	callCount := 0
	osRename = func(oldpath, newpath string) error {
		callCount++
		if callCount == 2 {
			return errors.New("injected pointer rename error")
		}
		return os.Rename(oldpath, newpath)
	}

	if _, err := store.StoreWithBlake3([]byte("test for pointer rename error")); err == nil {
		t.Error("expected error when pointer rename fails")
	}
}

func TestBlake3HashDeterministic(t *testing.T) {
	if Blake3Hash([]byte("x")) != Blake3Hash([]byte("x")) {
		t.Error("Blake3Hash not deterministic")
	}
	if Blake3Hash([]byte("x")) == Blake3Hash([]byte("y")) {
		t.Error("Blake3Hash collides on different input")
	}
}
