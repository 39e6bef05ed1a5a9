package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"strings"
)

// KeyPair is a PEM-encoded RSA keypair generated for tests
type KeyPair struct {
	PrivateKeyPEM string
	PublicKeyPEM  string
	Fingerprint   string
}

// GenerateRSAKeyPair generates a 2048-bit keypair with a PKIX public key
func GenerateRSAKeyPair() (*KeyPair, error) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, err
	}
	return &KeyPair{
		PrivateKeyPEM: string(pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)})),
		PublicKeyPEM:  string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})),
		Fingerprint:   fingerprint(pubDER),
	}, nil
}

func ParsePrivateKey(privateKeyPEM string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(privateKeyPEM))
	if block == nil {
		return nil, errNoPEMBlock
	}
	return x509.ParsePKCS1PrivateKey(block.Bytes)
}

// Decrypt reverses ChunkEncryptor.Encrypt with the matching private key
func Decrypt(key *rsa.PrivateKey, encrypted string) (string, error) {
	var sb strings.Builder
	for i, part := range strings.Split(encrypted, FieldSeparator) {
		raw, err := base64.StdEncoding.DecodeString(part)
		if err != nil {
			return "", fmt.Errorf("chunk %d: %w", i, err)
		}
		plain, err := rsa.DecryptPKCS1v15(rand.Reader, key, raw)
		if err != nil {
			return "", fmt.Errorf("chunk %d: %w", i, err)
		}
		sb.Write(plain)
	}
	return sb.String(), nil
}
