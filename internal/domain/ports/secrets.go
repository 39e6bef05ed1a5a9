package ports

import "context"

// Secret is a value read from a secret manager
type Secret struct {
	Metadata  map[string]string
	Value     string
	Version   string
	CreatedAt string
}

// SecretReader reads secrets from AWS Secrets Manager, Vault or the local filesystem.
// Path format depends on the backend:
//   - AWS: "card-gateway/aurus/public-key" or a full ARN
//   - Vault: "card-gateway/aurus" under the configured KV mount
//   - Local: a file path relative to the base directory
type SecretReader interface {
	GetSecret(ctx context.Context, path string) (*Secret, error)
}
