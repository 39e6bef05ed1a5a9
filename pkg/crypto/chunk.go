package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// MaxChunkSize is the largest plaintext a 1024-bit key encrypts with PKCS#1 v1.5
	MaxChunkSize = 117

	// FieldSeparator joins encrypted chunks
	FieldSeparator = "<FS>"
)

// ErrEmptyPayload is returned when there is nothing to chunk
var ErrEmptyPayload = errors.New("payload produced no chunks")

// ChunkEncryptor encrypts payloads for acquirers that expect RSA-encrypted chunks
type ChunkEncryptor struct {
	key       *rsa.PublicKey
	chunkSize int
}

// NewChunkEncryptor creates an encryptor from a PEM-encoded public key
func NewChunkEncryptor(publicKeyPEM string) (*ChunkEncryptor, error) {
	key, err := ParsePublicKey(publicKeyPEM)
	if err != nil {
		return nil, err
	}
	size := key.Size() - 11
	if size > MaxChunkSize {
		size = MaxChunkSize
	}
	return &ChunkEncryptor{key: key, chunkSize: size}, nil
}

// Encrypt splits payload into chunks, encrypts each one and joins the
// base64-encoded results with FieldSeparator.
func (e *ChunkEncryptor) Encrypt(payload string) (string, error) {
	chunks := Chunk(payload, e.chunkSize)
	if len(chunks) == 0 {
		return "", ErrEmptyPayload
	}

	encrypted := make([]string, 0, len(chunks))
	for i, c := range chunks {
		out, err := rsa.EncryptPKCS1v15(rand.Reader, e.key, []byte(c))
		if err != nil {
			return "", fmt.Errorf("failed to encrypt chunk %d: %w", i, err)
		}
		encrypted = append(encrypted, base64.StdEncoding.EncodeToString(out))
	}
	return strings.Join(encrypted, FieldSeparator), nil
}

// Chunk splits s into pieces of at most size bytes without breaking UTF-8 sequences
func Chunk(s string, size int) []string {
	if size <= 0 {
		return nil
	}
	var chunks []string
	for len(s) > 0 {
		end := size
		if end >= len(s) {
			chunks = append(chunks, s)
			break
		}
		for end > 0 && !utf8.RuneStart(s[end]) {
			end--
		}
		if end == 0 {
			return nil
		}
		chunks = append(chunks, s[:end])
		s = s[end:]
	}
	return chunks
}
