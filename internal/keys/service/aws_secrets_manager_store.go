package service

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"

	apperrors "github.com/allisson/fieldcrypt/internal/errors"
	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
)

// SecretsManagerAPI is the subset of the AWS Secrets Manager client used here.
type SecretsManagerAPI interface {
	GetSecretValue(
		ctx context.Context,
		params *secretsmanager.GetSecretValueInput,
		optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSSecretsManagerStore reads secret payloads from AWS Secrets Manager.
type AWSSecretsManagerStore struct {
	client SecretsManagerAPI
}

// NewAWSSecretsManagerStore wraps an existing Secrets Manager client.
func NewAWSSecretsManagerStore(client SecretsManagerAPI) *AWSSecretsManagerStore {
	return &AWSSecretsManagerStore{client: client}
}

// OpenAWSSecretsManagerStore builds a client from cfg. Static credentials are
// used when cfg carries an access key pair; otherwise the SDK default chain
// (environment, shared config, instance role) resolves them.
func OpenAWSSecretsManagerStore(ctx context.Context, cfg keysDomain.StoreConfig) (*AWSSecretsManagerStore, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	client := secretsmanager.NewFromConfig(awsCfg, func(o *secretsmanager.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewAWSSecretsManagerStore(client), nil
}

func loadOptions(cfg keysDomain.StoreConfig) []func(*awsconfig.LoadOptions) error {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			cfg.SessionToken,
		)))
	}
	return opts
}

// GetSecret returns the SecretString of secretID.
func (s *AWSSecretsManagerStore) GetSecret(ctx context.Context, secretID string) (string, error) {
	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if apperrors.As(err, &notFound) {
			return "", apperrors.Wrap(apperrors.ErrNotFound, fmt.Sprintf("secret %s", secretID))
		}
		return "", fmt.Errorf("failed to get secret value: %w", err)
	}
	if out.SecretString == nil || *out.SecretString == "" {
		if len(out.SecretBinary) > 0 {
			return string(out.SecretBinary), nil
		}
		return "", apperrors.Wrap(apperrors.ErrNotFound, fmt.Sprintf("secret %s has no value", secretID))
	}
	return *out.SecretString, nil
}
