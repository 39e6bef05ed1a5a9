package secrets

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	vault "github.com/hashicorp/vault/api"
	"github.com/kevin07696/card-gateway/internal/config"
	"github.com/kevin07696/card-gateway/internal/domain/ports"
	"go.uber.org/zap"
)

// kvGetter is satisfied by both *vault.KVv1 and *vault.KVv2
type kvGetter interface {
	Get(ctx context.Context, secretPath string) (*vault.KVSecret, error)
}

type vaultReader struct {
	kv     kvGetter
	logger *zap.Logger
	cache  *secretCache
}

// NewVaultReader logs in to Vault and reads from the configured KV mount
func NewVaultReader(ctx context.Context, cfg config.SecretsConfig, logger *zap.Logger) (ports.SecretReader, error) {
	vc := vault.DefaultConfig()
	vc.Address = cfg.VaultAddr
	client, err := vault.NewClient(vc)
	if err != nil {
		return nil, fmt.Errorf("vault client: %w", err)
	}
	if err := vaultLogin(ctx, client, cfg); err != nil {
		return nil, fmt.Errorf("vault login: %w", err)
	}

	var kv kvGetter = client.KVv2(cfg.VaultMount)
	if cfg.VaultKV == 1 {
		kv = client.KVv1(cfg.VaultMount)
	}
	logger.Info("Vault secret reader ready",
		zap.String("address", cfg.VaultAddr),
		zap.String("mount", cfg.VaultMount),
		zap.Int("kv_version", cfg.VaultKV),
		zap.Bool("approle", cfg.VaultRoleID != ""),
	)
	return newVaultReader(kv, cfg.CacheTTL, logger), nil
}

func newVaultReader(kv kvGetter, ttl time.Duration, logger *zap.Logger) *vaultReader {
	return &vaultReader{kv: kv, logger: logger, cache: newSecretCache(true, ttl)}
}

func vaultLogin(ctx context.Context, client *vault.Client, cfg config.SecretsConfig) error {
	if cfg.VaultRoleID == "" {
		if cfg.VaultToken == "" {
			return errors.New("VAULT_TOKEN or VAULT_ROLE_ID is required")
		}
		client.SetToken(cfg.VaultToken)
		return nil
	}

	resp, err := client.Logical().WriteWithContext(ctx, "auth/approle/login", map[string]interface{}{
		"role_id":   cfg.VaultRoleID,
		"secret_id": cfg.VaultSecretID,
	})
	if err != nil {
		return err
	}
	if resp == nil || resp.Auth == nil {
		return errors.New("approle login returned no token")
	}
	client.SetToken(resp.Auth.ClientToken)
	return nil
}

// GetSecret reads a KV entry. The value is the "value" key, or the first
// string entry by key order when that key is absent.
func (r *vaultReader) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	if cached := r.cache.get(path); cached != nil {
		return cached, nil
	}

	kv, err := r.kv.Get(ctx, path)
	switch {
	case errors.Is(err, vault.ErrSecretNotFound):
		return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, path)
	case err != nil:
		r.logger.Error("Vault read failed", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("vault read %s: %w", path, err)
	}

	secret, err := secretFromKV(kv)
	if err != nil {
		return nil, fmt.Errorf("secret %s: %w", path, err)
	}
	r.cache.set(path, secret)
	return secret, nil
}

func secretFromKV(kv *vault.KVSecret) (*ports.Secret, error) {
	if kv == nil || len(kv.Data) == 0 {
		return nil, errors.New("empty kv entry")
	}

	keys := make([]string, 0, len(kv.Data))
	for k := range kv.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	secret := &ports.Secret{Version: "1", Metadata: make(map[string]string)}
	if v, ok := kv.Data["value"].(string); ok {
		secret.Value = v
	}
	for _, k := range keys {
		s, ok := kv.Data[k].(string)
		if !ok || k == "value" {
			continue
		}
		if secret.Value == "" {
			secret.Value = s
			continue
		}
		secret.Metadata[k] = s
	}
	if secret.Value == "" {
		return nil, errors.New("no string value in kv entry")
	}

	if md := kv.VersionMetadata; md != nil {
		secret.Version = strconv.Itoa(md.Version)
		if !md.CreatedTime.IsZero() {
			secret.CreatedAt = md.CreatedTime.Format(time.RFC3339)
		}
	}
	return secret, nil
}
