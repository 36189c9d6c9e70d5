package secrets

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// mockSecretsManagerClient implements SecretsManagerClient for testing
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

type testSecret struct {
	APIKey string `json:"api_key"`
	Engine string `json:"search_engine_id"`
}

func TestFetchJSON_Success(t *testing.T) {
	client := &mockSecretsManagerClient{
		secretValue: aws.String(`{"api_key":"key-1","search_engine_id":"cx-1"}`),
	}

	var got testSecret
	if err := FetchJSON(context.Background(), client, "production/google-search", &got); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if got.APIKey != "key-1" {
		t.Errorf("Expected APIKey to be 'key-1', got '%s'", got.APIKey)
	}
	if got.Engine != "cx-1" {
		t.Errorf("Expected Engine to be 'cx-1', got '%s'", got.Engine)
	}
	if client.requestedID != "production/google-search" {
		t.Errorf("Expected secret id 'production/google-search', got '%s'", client.requestedID)
	}
}

func TestFetchJSON_Errors(t *testing.T) {
	tests := []struct {
		name        string
		client      *mockSecretsManagerClient
		expectedMsg string
	}{
		{
			name:        "get secret error",
			client:      &mockSecretsManagerClient{err: errors.New("secrets manager error")},
			expectedMsg: "failed to get secret arn:aws:secretsmanager:test from AWS Secrets Manager",
		},
		{
			name:        "nil secret string",
			client:      &mockSecretsManagerClient{},
			expectedMsg: "secret arn:aws:secretsmanager:test has no string value",
		},
		{
			name:        "invalid json",
			client:      &mockSecretsManagerClient{secretValue: aws.String(`{"api_key":}`)},
			expectedMsg: "failed to unmarshal secret JSON from arn:aws:secretsmanager:test",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got testSecret
			err := FetchJSON(context.Background(), tt.client, "arn:aws:secretsmanager:test", &got)
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.expectedMsg) {
				t.Errorf("Expected error to contain '%s', got '%s'", tt.expectedMsg, err.Error())
			}
		})
	}
}
