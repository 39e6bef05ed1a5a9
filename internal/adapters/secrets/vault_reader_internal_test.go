package secrets

import (
	"context"
	"errors"
	"testing"
	"time"

	vault "github.com/hashicorp/vault/api"
	"github.com/kevin07696/card-gateway/internal/domain/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeKV struct {
	calls  int
	secret *vault.KVSecret
	err    error
}

func (f *fakeKV) Get(ctx context.Context, secretPath string) (*vault.KVSecret, error) {
	f.calls++
	return f.secret, f.err
}

func TestSecretFromKV(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		kv           *vault.KVSecret
		wantValue    string
		wantVersion  string
		wantMetadata map[string]string
		wantErr      bool
	}{
		{
			name: "value key with version metadata",
			kv: &vault.KVSecret{
				Data:            map[string]interface{}{"value": "pem", "owner": "payments"},
				VersionMetadata: &vault.KVVersionMetadata{Version: 3, CreatedTime: created},
			},
			wantValue:    "pem",
			wantVersion:  "3",
			wantMetadata: map[string]string{"owner": "payments"},
		},
		{
			name:         "first string entry by key order",
			kv:           &vault.KVSecret{Data: map[string]interface{}{"public_key": "pem", "algorithm": "rsa"}},
			wantValue:    "rsa",
			wantVersion:  "1",
			wantMetadata: map[string]string{"public_key": "pem"},
		},
		{
			name:    "no string value",
			kv:      &vault.KVSecret{Data: map[string]interface{}{"n": 1}},
			wantErr: true,
		},
		{
			name:    "nil entry",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			secret, err := secretFromKV(tt.kv)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantValue, secret.Value)
			assert.Equal(t, tt.wantVersion, secret.Version)
			assert.Equal(t, tt.wantMetadata, secret.Metadata)
		})
	}
}

func TestVaultReader_CachesAndMapsNotFound(t *testing.T) {
	kv := &fakeKV{secret: &vault.KVSecret{Data: map[string]interface{}{"value": "pem"}}}
	reader := newVaultReader(kv, time.Minute, zap.NewNop())

	for i := 0; i < 3; i++ {
		secret, err := reader.GetSecret(context.Background(), "card-gateway/aurus")
		require.NoError(t, err)
		assert.Equal(t, "pem", secret.Value)
	}
	assert.Equal(t, 1, kv.calls)

	missing := newVaultReader(&fakeKV{err: vault.ErrSecretNotFound}, time.Minute, zap.NewNop())
	_, err := missing.GetSecret(context.Background(), "card-gateway/none")
	assert.ErrorIs(t, err, ErrSecretNotFound)

	boom := errors.New("permission denied")
	failing := newVaultReader(&fakeKV{err: boom}, time.Minute, zap.NewNop())
	_, err = failing.GetSecret(context.Background(), "card-gateway/aurus")
	assert.ErrorIs(t, err, boom)
}

func TestSecretCache_Expiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := newSecretCache(true, time.Minute)
	c.now = func() time.Time { return now }

	c.set("k", &ports.Secret{Value: "v"})
	require.NotNil(t, c.get("k"))

	now = now.Add(2 * time.Minute)
	assert.Nil(t, c.get("k"))
}
