package common

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

// ReadRandom fills a new slice of size bytes from r.
// A short read is reported as an error.
func ReadRandom(r io.Reader, size int) ([]byte, error) {
	b := make([]byte, size)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, fmt.Errorf("random source: %w", err)
	}
	return b, nil
}

// GenerateRandByteArray returns size bytes from crypto/rand.
// It panics if the system generator fails, which is not recoverable.
func GenerateRandByteArray(size int) []byte {
	b, err := ReadRandom(rand.Reader, size)
	if err != nil {
		panic(err)
	}
	return b
}

// MakeRandBase64String reads size bytes from r and returns them encoded with
// standard, padded base64.
func MakeRandBase64String(r io.Reader, size int) (string, error) {
	b, err := ReadRandom(r, size)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// WipeByteArray overwrites b with zeros. Use it for plaintext passwords once
// they have been hashed. A nil slice is ignored.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
