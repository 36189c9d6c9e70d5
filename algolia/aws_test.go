package algolia

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// mockSecretsManagerClient implements secrets.SecretsManagerClient for testing
type mockSecretsManagerClient struct {
	secretValue *string
	err         error
	requestedID string
}

func (m *mockSecretsManagerClient) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	m.requestedID = aws.ToString(params.SecretId)
	if m.err != nil {
		return nil, m.err
	}

	return &secretsmanager.GetSecretValueOutput{
		SecretString: m.secretValue,
	}, nil
}

func TestAWSSecrets_Success(t *testing.T) {
	client := &mockSecretsManagerClient{
		secretValue: aws.String(`{"app_id":"test-app-id","api_key":"test-api-key"}`),
	}

	secrets, err := AWSSecrets(context.Background(), client, "production")()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if secrets.AppID != "test-app-id" {
		t.Errorf("Expected AppID to be 'test-app-id', got '%s'", secrets.AppID)
	}

	if secrets.APIKey != "test-api-key" {
		t.Errorf("Expected APIKey to be 'test-api-key', got '%s'", secrets.APIKey)
	}

	if client.requestedID != "production/algolia" {
		t.Errorf("Expected secret path 'production/algolia', got '%s'", client.requestedID)
	}
}

func TestAWSSecrets_GetSecretError(t *testing.T) {
	client := &mockSecretsManagerClient{
		err: errors.New("secrets manager error"),
	}

	_, err := AWSSecrets(context.Background(), client, "production")()
	if err == nil {
		t.Fatal("Expected error, got nil")
	}

	expectedMsg := "failed to get secret production/algolia from AWS Secrets Manager"
	if !strings.Contains(err.Error(), expectedMsg) {
		t.Errorf("Expected error to contain '%s', got '%s'", expectedMsg, err.Error())
	}
}

func TestAWSSecretsFromARN_InvalidJSON(t *testing.T) {
	arn := "arn:aws:secretsmanager:us-east-1:123456789012:secret:algolia"
	client := &mockSecretsManagerClient{
		secretValue: aws.String(`{"app_id":"test-app-id","api_key":}`),
	}

	_, err := AWSSecretsFromARN(context.Background(), client, arn)()
	if err == nil {
		t.Fatal("Expected error, got nil")
	}

	if client.requestedID != arn {
		t.Errorf("Expected secret id '%s', got '%s'", arn, client.requestedID)
	}
	if !strings.Contains(err.Error(), "failed to unmarshal secret JSON") {
		t.Errorf("Expected unmarshal error, got '%s'", err.Error())
	}
}
