// Package checksum computes streaming content digests for file
// verification.
package checksum

import (
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"io"
	"os"

	"golang.org/x/crypto/blake2b"
)

// chunkSize is the read granularity. Files are hashed incrementally and
// never loaded whole, so arbitrarily large files are fine.
const chunkSize = 8 * 1024

// DefaultAlgorithm is used when a project does not pin one.
const DefaultAlgorithm = "sha256"

// Hasher computes hex digests of file contents with a fixed algorithm.
type Hasher struct {
	algo    string
	newHash func() hash.Hash
}

// New returns a Hasher for the named algorithm. Supported: sha256 (also
// the default for an empty name), sha512, blake2b-256.
func New(algo string) (*Hasher, error) {
	switch algo {
	case "", DefaultAlgorithm:
		return &Hasher{algo: DefaultAlgorithm, newHash: sha256.New}, nil
	case "sha512":
		return &Hasher{algo: "sha512", newHash: sha512.New}, nil
	case "blake2b-256":
		return &Hasher{algo: "blake2b-256", newHash: func() hash.Hash {
			h, _ := blake2b.New256(nil)
			return h
		}}, nil
	default:
		return nil, fmt.Errorf("unsupported checksum algorithm: %s", algo)
	}
}

// Algorithm reports the configured algorithm name.
func (h *Hasher) Algorithm() string { return h.algo }

// File returns the hex digest of the file at path, reading in 8 KiB
// chunks. The returned error wraps the underlying I/O failure; callers
// surface it per file instead of aborting a larger run.
func (h *Hasher) File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %v", path, err)
	}
	defer f.Close()

	sum := h.newHash()
	buf := make([]byte, chunkSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			sum.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %v", path, err)
		}
	}
	return fmt.Sprintf("%x", sum.Sum(nil)), nil
}

// File computes the digest of a file with the default algorithm.
func File(path string) (string, error) {
	h, err := New(DefaultAlgorithm)
	if err != nil {
		return "", err
	}
	return h.File(path)
}
