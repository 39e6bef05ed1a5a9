package secrets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/kevin07696/card-gateway/internal/domain/ports"
	"go.uber.org/zap"
)

const awsCurrentStage = "AWSCURRENT"

// SecretsManagerAPI is the part of the Secrets Manager client the reader calls
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

type awsReader struct {
	client SecretsManagerAPI
	logger *zap.Logger
	cache  *secretCache
}

// NewAWSReader reads secrets by name or ARN. endpoint overrides the service
// URL (LocalStack); ttl of zero disables caching.
func NewAWSReader(awsCfg aws.Config, endpoint string, ttl time.Duration, logger *zap.Logger) ports.SecretReader {
	client := secretsmanager.NewFromConfig(awsCfg, func(o *secretsmanager.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	logger.Info("AWS secret reader ready", zap.String("region", awsCfg.Region), zap.Duration("cache_ttl", ttl))
	return NewAWSReaderWithClient(client, ttl, logger)
}

func NewAWSReaderWithClient(client SecretsManagerAPI, ttl time.Duration, logger *zap.Logger) ports.SecretReader {
	return &awsReader{client: client, logger: logger, cache: newSecretCache(ttl > 0, ttl)}
}

func (r *awsReader) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	if cached := r.cache.get(path); cached != nil {
		return cached, nil
	}

	out, err := r.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId:     aws.String(path),
		VersionStage: aws.String(awsCurrentStage),
	})
	var notFound *types.ResourceNotFoundException
	switch {
	case errors.As(err, &notFound):
		return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, path)
	case err != nil:
		r.logger.Error("Secrets Manager read failed", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("secrets manager read %s: %w", path, err)
	}

	secret := secretFromAWS(out)
	r.cache.set(path, secret)
	return secret, nil
}

// secretFromAWS prefers SecretString and falls back to SecretBinary
func secretFromAWS(out *secretsmanager.GetSecretValueOutput) *ports.Secret {
	secret := &ports.Secret{
		Value:    aws.ToString(out.SecretString),
		Version:  aws.ToString(out.VersionId),
		Metadata: map[string]string{},
	}
	if secret.Value == "" {
		secret.Value = string(out.SecretBinary)
	}
	if out.CreatedDate != nil {
		secret.CreatedAt = out.CreatedDate.UTC().Format(time.RFC3339)
	}
	if out.ARN != nil {
		secret.Metadata["arn"] = aws.ToString(out.ARN)
	}
	if out.Name != nil {
		secret.Metadata["name"] = aws.ToString(out.Name)
	}
	return secret
}
