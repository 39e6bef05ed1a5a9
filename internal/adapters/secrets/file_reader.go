package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kevin07696/card-gateway/internal/domain/ports"
	"go.uber.org/zap"
)

// fileReader serves secrets from files under a base directory. Development only.
type fileReader struct {
	root   string
	logger *zap.Logger
}

// NewFileReader reads secrets relative to root; paths cannot escape it
func NewFileReader(root string, logger *zap.Logger) ports.SecretReader {
	return &fileReader{root: root, logger: logger}
}

// fileEnvelope is the optional JSON form of a secret file
type fileEnvelope struct {
	Value     string            `json:"value"`
	Tags      map[string]string `json:"tags"`
	CreatedAt string            `json:"created_at"`
}

func (r *fileReader) GetSecret(_ context.Context, path string) (*ports.Secret, error) {
	data, err := os.ReadFile(filepath.Join(r.root, filepath.Clean("/"+path)))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, path)
	case err != nil:
		return nil, fmt.Errorf("read secret %s: %w", path, err)
	}
	r.logger.Debug("Secret read from file", zap.String("path", path))

	var env fileEnvelope
	if json.Unmarshal(data, &env) == nil && env.Value != "" {
		return &ports.Secret{Value: env.Value, Version: "file", Metadata: env.Tags, CreatedAt: env.CreatedAt}, nil
	}
	return &ports.Secret{Value: string(data), Version: "file"}, nil
}
