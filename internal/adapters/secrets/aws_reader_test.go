package secrets_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/kevin07696/card-gateway/internal/adapters/secrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSecretsManager struct {
	calls int
	out   *secretsmanager.GetSecretValueOutput
	err   error
}

func (f *fakeSecretsManager) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.calls++
	return f.out, f.err
}

func TestAWSReader_GetSecretCaches(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	client := &fakeSecretsManager{out: &secretsmanager.GetSecretValueOutput{
		ARN:          aws.String("arn:aws:secretsmanager:us-east-1:1:secret:aurus"),
		Name:         aws.String("card-gateway/aurus/public-key"),
		SecretString: aws.String("pem"),
		VersionId:    aws.String("v7"),
		CreatedDate:  &created,
	}}
	reader := secrets.NewAWSReaderWithClient(client, 5*time.Minute, zap.NewNop())

	first, err := reader.GetSecret(context.Background(), "card-gateway/aurus/public-key")
	require.NoError(t, err)
	second, err := reader.GetSecret(context.Background(), "card-gateway/aurus/public-key")
	require.NoError(t, err)

	assert.Equal(t, 1, client.calls)
	assert.Equal(t, "pem", first.Value)
	assert.Equal(t, "v7", first.Version)
	assert.Equal(t, "2026-01-01T00:00:00Z", first.CreatedAt)
	assert.Equal(t, "card-gateway/aurus/public-key", first.Metadata["name"])
	assert.Same(t, first, second)
}

func TestAWSReader_CacheDisabled(t *testing.T) {
	client := &fakeSecretsManager{out: &secretsmanager.GetSecretValueOutput{SecretString: aws.String("pem")}}
	reader := secrets.NewAWSReaderWithClient(client, 0, zap.NewNop())

	for i := 0; i < 3; i++ {
		_, err := reader.GetSecret(context.Background(), "k")
		require.NoError(t, err)
	}
	assert.Equal(t, 3, client.calls)
}

func TestAWSReader_Error(t *testing.T) {
	boom := errors.New("AccessDeniedException")
	reader := secrets.NewAWSReaderWithClient(&fakeSecretsManager{err: boom},
		time.Minute, zap.NewNop())

	_, err := reader.GetSecret(context.Background(), "k")
	assert.ErrorIs(t, err, boom)
}

func TestAWSReader_NotFound(t *testing.T) {
	reader := secrets.NewAWSReaderWithClient(
		&fakeSecretsManager{err: &types.ResourceNotFoundException{Message: aws.String("no such secret")}},
		time.Minute, zap.NewNop())

	_, err := reader.GetSecret(context.Background(), "card-gateway/aurus/public-key")
	assert.ErrorIs(t, err, secrets.ErrSecretNotFound)
}
