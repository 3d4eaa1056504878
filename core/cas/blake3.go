package cas

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"
)

// HashResult contains both SHA-256 and BLAKE3 hashes for a stored blob.
type HashResult struct {
	SHA256 string `json:"sha256"`
	BLAKE3 string `json:"blake3"`
	Size   int    `json:"size"`
}

// blake3Pointer is the structure stored in BLAKE3 pointer files.
type blake3Pointer struct {
	SHA256 string `json:"sha256"`
}

// StoreWithBlake3 stores the given data and returns both SHA-256 and BLAKE3 hashes.
// It creates a pointer file that maps the BLAKE3 hash to the SHA-256 hash.
func (s *Store) StoreWithBlake3(data []byte) (*HashResult, error) {
	sha256Hash, err := s.Store(data)
	if err != nil {
		return nil, err
	}

	blake3Hash := Blake3Hash(data)
	if err := s.createBlake3Pointer(blake3Hash, sha256Hash); err != nil {
		return nil, fmt.Errorf("failed to create BLAKE3 pointer: %w", err)
	}

	return &HashResult{
		SHA256: sha256Hash,
		BLAKE3: blake3Hash,
		Size:   len(data),
	}, nil
}

// createBlake3Pointer creates a pointer file that maps a BLAKE3 hash to a SHA-256 hash.
// Pointer files are stored at: <root>/blobs/blake3/<first2>/<blake3>.json
func (s *Store) createBlake3Pointer(blake3Hash, sha256Hash string) error {
	pointerPath := s.pointerPath(blake3Hash)
	if _, err := os.Stat(pointerPath); err == nil {
		return nil
	}

	data, err := json.Marshal(blake3Pointer{SHA256: sha256Hash})
	if err != nil {
		return fmt.Errorf("failed to marshal pointer: %w", err)
	}
	return WriteFileAtomic(pointerPath, data, 0644)
}

func (s *Store) pointerPath(blake3Hash string) string {
	return filepath.Join(s.root, "blobs", "blake3", blake3Hash[:2], blake3Hash+".json")
}

// LookupBlake3 looks up a SHA-256 hash by its corresponding BLAKE3 hash.
// Returns ErrBlobNotFound if no pointer file exists for the BLAKE3 hash.
func (s *Store) LookupBlake3(blake3Hash string) (string, error) {
	if !isValidHash(blake3Hash) {
		return "", ErrInvalidHash
	}

	data, err := os.ReadFile(s.pointerPath(blake3Hash))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrBlobNotFound
		}
		return "", fmt.Errorf("failed to read pointer: %w", err)
	}

	var pointer blake3Pointer
	if err := json.Unmarshal(data, &pointer); err != nil {
		return "", fmt.Errorf("failed to parse pointer: %w", err)
	}

	return pointer.SHA256, nil
}

// RetrieveByBlake3 retrieves a blob by its BLAKE3 hash.
// It first looks up the SHA-256 hash, then retrieves the blob.
func (s *Store) RetrieveByBlake3(blake3Hash string) ([]byte, error) {
	sha256Hash, err := s.LookupBlake3(blake3Hash)
	if err != nil {
		return nil, err
	}

	return s.Retrieve(sha256Hash)
}

// Blake3Hash computes the BLAKE3 hash of the given data without storing it.
// The workspace uses it as the content digest of a chapter file.
func Blake3Hash(data []byte) string {
	h := blake3.Sum256(data)
	return hex.EncodeToString(h[:])
}
