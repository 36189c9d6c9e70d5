// Package secrets reads JSON credentials from AWS Secrets Manager.
package secrets

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
)

// SecretsManagerClient defines the interface for AWS Secrets Manager operations.
type SecretsManagerClient interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// NewClient builds a Secrets Manager client from the default AWS config chain.
func NewClient(ctx context.Context) (*secretsmanager.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load AWS config")
	}
	return secretsmanager.NewFromConfig(cfg), nil
}

// FetchJSON reads the secret identified by id (a name, path or ARN) and
// decodes its string value into out.
func FetchJSON(ctx context.Context, client SecretsManagerClient, id string, out interface{}) error {
	result, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(id),
	})
	if err != nil {
		return errors.Wrapf(err, "failed to get secret %s from AWS Secrets Manager", id)
	}

	if result.SecretString == nil {
		return errors.Newf("secret %s has no string value", id)
	}

	if err := sonic.UnmarshalString(aws.ToString(result.SecretString), out); err != nil {
		return errors.Wrapf(err, "failed to unmarshal secret JSON from %s", id)
	}

	return nil
}
