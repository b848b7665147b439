// Package checksum computes SHA-256 content digests for files and streams.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

const bufferSize = 64 * 1024 // 64KB buffer

// Size is the length of a Digest in bytes.
const Size = sha256.Size

// Digest is a 256-bit content hash.
type Digest [Size]byte

// String returns the lowercase hex encoding of the digest.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// IsZero reports whether d is the zero value.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// MarshalText implements encoding.TextMarshaler.
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Digest) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Parse decodes a hex encoded digest.
func Parse(s string) (Digest, error) {
	var d Digest
	if len(s) != hex.EncodedLen(Size) {
		return d, fmt.Errorf("invalid digest length %d, want %d", len(s), hex.EncodedLen(Size))
	}
	if _, err := hex.Decode(d[:], []byte(s)); err != nil {
		return d, fmt.Errorf("decode digest: %w", err)
	}
	return d, nil
}

// Hasher computes content digests.
type Hasher interface {
	HashFile(path string) (Digest, error)
	HashReader(r io.Reader) (Digest, error)
}

// SHA256 is the default Hasher.
type SHA256 struct{}

// HashFile calculates the SHA-256 digest of the file at path.
func (SHA256) HashFile(path string) (Digest, error) {
	return CalculateFileSHA256(path)
}

// HashReader calculates the SHA-256 digest of everything read from r.
func (SHA256) HashReader(r io.Reader) (Digest, error) {
	return CalculateSHA256(r)
}

// CalculateFileSHA256 calculates SHA-256 checksum of a file
func CalculateFileSHA256(filePath string) (Digest, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return Digest{}, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	return CalculateSHA256(file)
}

// CalculateSHA256 calculates SHA-256 checksum from reader
func CalculateSHA256(r io.Reader) (Digest, error) {
	hash := sha256.New()
	buffer := make([]byte, bufferSize)

	for {
		n, err := r.Read(buffer)
		if n > 0 {
			if _, err := hash.Write(buffer[:n]); err != nil {
				return Digest{}, fmt.Errorf("write to hash: %w", err)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return Digest{}, fmt.Errorf("read: %w", err)
		}
	}

	var d Digest
	copy(d[:], hash.Sum(nil))
	return d, nil
}
