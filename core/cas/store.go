// Package cas provides content-addressed storage for archived prose.
// Blobs are addressed by the SHA-256 hash of their uncompressed content and
// kept xz-compressed on disk, so identical prose is stored once and can be
// verified on read.
package cas

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/ulikunitz/xz"
)

// ErrBlobNotFound is returned when a blob with the given hash does not exist.
var ErrBlobNotFound = errors.New("blob not found")

// ErrInvalidHash is returned when a hash string is not a valid 64-character hex string.
var ErrInvalidHash = errors.New("invalid hash format")

// ErrCorruptBlob is returned when stored content no longer matches its address.
var ErrCorruptBlob = errors.New("blob content does not match its hash")

// hashPattern matches a valid lowercase SHA-256 or BLAKE3 hex string (64 characters).
var hashPattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

// Store provides content-addressed storage for blobs using SHA-256 hashing.
type Store struct {
	root string
}

// NewStore creates a new content-addressed store at the given root directory.
// The directory structure will be created if it doesn't exist.
func NewStore(root string) (*Store, error) {
	blobDir := filepath.Join(root, "blobs", "sha256")
	if err := os.MkdirAll(blobDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}

	return &Store{root: root}, nil
}

// Root returns the directory the store lives in.
func (s *Store) Root() string {
	return s.root
}

// Store stores the given data and returns its SHA-256 hash.
// If the blob already exists (same hash), this is a no-op and returns the hash.
func (s *Store) Store(data []byte) (string, error) {
	hash := Hash(data)

	blobPath := s.pathForHash(hash)
	if _, err := os.Stat(blobPath); err == nil {
		return hash, nil
	}

	packed, err := compress(data)
	if err != nil {
		return "", fmt.Errorf("failed to compress blob: %w", err)
	}
	if err := WriteFileAtomic(blobPath, packed, 0644); err != nil {
		return "", fmt.Errorf("failed to write blob: %w", err)
	}
	return hash, nil
}

// Retrieve retrieves the blob with the given SHA-256 hash.
// Returns ErrBlobNotFound if the blob does not exist.
// Returns ErrInvalidHash if the hash format is invalid.
// Returns ErrCorruptBlob if the decompressed content does not hash to hash.
func (s *Store) Retrieve(hash string) ([]byte, error) {
	if !isValidHash(hash) {
		return nil, ErrInvalidHash
	}

	packed, err := os.ReadFile(s.pathForHash(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}

	data, err := decompress(packed)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress blob %s: %w", hash, err)
	}
	if Hash(data) != hash {
		return nil, ErrCorruptBlob
	}
	return data, nil
}

// Exists checks if a blob with the given hash exists in the store.
func (s *Store) Exists(hash string) bool {
	if !isValidHash(hash) {
		return false
	}
	_, err := os.Stat(s.pathForHash(hash))
	return err == nil
}

// pathForHash returns the file path for a blob with the given hash.
// Blobs are stored at: <root>/blobs/sha256/<first2>/<hash>.xz
func (s *Store) pathForHash(hash string) string {
	return filepath.Join(s.root, "blobs", "sha256", hash[:2], hash+".xz")
}

// isValidHash checks if a hash string is a valid 64-character hex string.
func isValidHash(hash string) bool {
	return hashPattern.MatchString(hash)
}

// Hash computes the SHA-256 hash of the given data without storing it.
func Hash(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(packed []byte) ([]byte, error) {
	r, err := xz.NewReader(bytes.NewReader(packed))
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}
