package google

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

func TestStaticSecrets(t *testing.T) {
	secrets, err := StaticSecrets("key", "cx")()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if secrets.APIKey != "key" || secrets.SearchEngineID != "cx" {
		t.Errorf("Unexpected secrets %+v", secrets)
	}
}

func TestEnvSecrets(t *testing.T) {
	tests := []struct {
		name        string
		apiKey      string
		engineID    string
		expectError bool
	}{
		{name: "both set", apiKey: "key", engineID: "cx", expectError: false},
		{name: "missing key", apiKey: "", engineID: "cx", expectError: true},
		{name: "missing engine", apiKey: "key", engineID: "", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GOOGLE_API_KEY", tt.apiKey)
			t.Setenv("GOOGLE_CUSTOM_SEARCH_ENGINE_ID", tt.engineID)

			secrets, err := EnvSecrets()()
			if tt.expectError {
				if err == nil {
					t.Error("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if secrets.APIKey != tt.apiKey || secrets.SearchEngineID != tt.engineID {
				t.Errorf("Unexpected secrets %+v", secrets)
			}
		})
	}
}

func TestSecretsUsable(t *testing.T) {
	tests := []struct {
		secrets Secrets
		usable  bool
	}{
		{Secrets{APIKey: "key", SearchEngineID: "cx"}, true},
		{Secrets{APIKey: "", SearchEngineID: "cx"}, false},
		{Secrets{APIKey: "key", SearchEngineID: ""}, false},
		{Secrets{APIKey: PlaceholderAPIKey, SearchEngineID: "cx"}, false},
		{Secrets{APIKey: "key", SearchEngineID: PlaceholderSearchEngineID}, false},
	}

	for _, tt := range tests {
		if got := tt.secrets.Usable(); got != tt.usable {
			t.Errorf("Usable(%+v) = %v, want %v", tt.secrets, got, tt.usable)
		}
	}
}

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
	return &secretsmanager.GetSecretValueOutput{SecretString: m.secretValue}, nil
}

func TestAWSSecrets_EnvironmentPath(t *testing.T) {
	client := &mockSecretsManagerClient{
		secretValue: aws.String(`{"api_key":"staging-key","search_engine_id":"staging-cx"}`),
	}

	secrets, err := AWSSecrets(context.Background(), client, "staging")()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if client.requestedID != "staging/google-search" {
		t.Errorf("Expected secret path 'staging/google-search', got '%s'", client.requestedID)
	}
	if secrets.APIKey != "staging-key" || secrets.SearchEngineID != "staging-cx" {
		t.Errorf("Unexpected secrets %+v", secrets)
	}
}

func TestAWSSecretsFromARN_Error(t *testing.T) {
	client := &mockSecretsManagerClient{err: errors.New("access denied")}

	_, err := AWSSecretsFromARN(context.Background(), client, "arn:aws:secretsmanager:us-east-1:123:secret:google")()
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !strings.Contains(err.Error(), "access denied") {
		t.Errorf("Expected error to contain cause, got '%s'", err.Error())
	}
}

func TestNewClient_CachesFailure(t *testing.T) {
	fetches := 0
	client := NewClient(func() (Secrets, error) {
		fetches++
		return Secrets{}, errors.New("boom")
	})

	for i := 0; i < 3; i++ {
		if _, err := client.getConn(); err == nil {
			t.Fatal("Expected error, got nil")
		}
	}
	if fetches != 1 {
		t.Errorf("Expected secrets to be fetched once, got %d", fetches)
	}
}
