// Package secrets reads the acquirer encryption material from a secret manager.
package secrets

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/kevin07696/card-gateway/internal/config"
	"github.com/kevin07696/card-gateway/internal/domain/ports"
	"go.uber.org/zap"
)

// ErrSecretNotFound is returned by every backend when the path holds no secret
var ErrSecretNotFound = errors.New("secret not found")

// Supported secret backends
const (
	BackendAWS   = "aws"
	BackendVault = "vault"
	BackendLocal = "local"
)

// NewReader selects the secret backend named in the configuration
func NewReader(ctx context.Context, cfg *config.Config, awsCfg aws.Config, logger *zap.Logger) (ports.SecretReader, error) {
	switch cfg.Secrets.Backend {
	case BackendAWS:
		return NewAWSReader(awsCfg, cfg.AWS.Endpoint, cfg.Secrets.CacheTTL, logger), nil
	case BackendVault:
		return NewVaultReader(ctx, cfg.Secrets, logger)
	case BackendLocal:
		logger.Warn("Using local filesystem secrets, not for production",
			zap.String("base_path", cfg.Secrets.LocalBasePath))
		return NewFileReader(cfg.Secrets.LocalBasePath, logger), nil
	}
	return nil, fmt.Errorf("unsupported secret backend: %q", cfg.Secrets.Backend)
}

// LoadPublicKey reads the PEM public key used to encrypt acquirer payloads
func LoadPublicKey(ctx context.Context, reader ports.SecretReader, path string) (string, error) {
	secret, err := reader.GetSecret(ctx, path)
	if err != nil {
		return "", fmt.Errorf("failed to load encryption key: %w", err)
	}
	if secret.Value == "" {
		return "", fmt.Errorf("encryption key %s is empty", path)
	}
	return secret.Value, nil
}
