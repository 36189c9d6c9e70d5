package algolia

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestStaticSecrets(t *testing.T) {
	secrets, err := StaticSecrets("test-app-id", "test-api-key")()
	if err != nil {
		t.Errorf("StaticSecrets should not return error, got: %v", err)
	}

	if secrets.AppID != "test-app-id" {
		t.Errorf("Expected AppID test-app-id, got %s", secrets.AppID)
	}

	if secrets.APIKey != "test-api-key" {
		t.Errorf("Expected APIKey test-api-key, got %s", secrets.APIKey)
	}
}

func TestEnvSecrets(t *testing.T) {
	tests := []struct {
		name        string
		appID       string
		apiKey      string
		expectError bool
	}{
		{name: "valid secrets", appID: "test-app-id", apiKey: "test-api-key", expectError: false},
		{name: "missing app id", appID: "", apiKey: "test-api-key", expectError: true},
		{name: "missing api key", appID: "test-app-id", apiKey: "", expectError: true},
		{name: "both missing", appID: "", apiKey: "", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ALGOLIA_APP_ID", tt.appID)
			t.Setenv("ALGOLIA_API_KEY", tt.apiKey)

			secrets, err := EnvSecrets()()

			if tt.expectError {
				if err == nil {
					t.Error("Expected error but got none")
				}
				return
			}
			if err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
			if secrets.AppID != tt.appID || secrets.APIKey != tt.apiKey {
				t.Errorf("Unexpected secrets %+v", secrets)
			}
		})
	}
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name            string
		fetchSecrets    FetchSecrets
		expectInitError bool
	}{
		{name: "valid secrets", fetchSecrets: StaticSecrets("test-app", "test-key"), expectInitError: false},
		{
			name: "fetch error",
			fetchSecrets: func() (Secrets, error) {
				return Secrets{}, errors.New("fetch failed")
			},
			expectInitError: true,
		},
		{name: "empty app id", fetchSecrets: StaticSecrets("", "test-key"), expectInitError: true},
		{name: "empty api key", fetchSecrets: StaticSecrets("test-app", ""), expectInitError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(tt.fetchSecrets)
			if client == nil {
				t.Fatal("NewClient should never return nil")
			}

			_, err := client.getClient()
			if tt.expectInitError && err == nil {
				t.Error("Expected initialization error but got none")
			}
			if !tt.expectInitError && err != nil {
				t.Errorf("Expected no initialization error, got %v", err)
			}
		})
	}
}

func TestClientLazyInitialization(t *testing.T) {
	callCount := 0
	client := NewClient(func() (Secrets, error) {
		callCount++
		return Secrets{AppID: "test-app", APIKey: "test-key"}, nil
	})

	if callCount != 0 {
		t.Errorf("Expected fetchSecrets not to be called during construction, but was called %d times", callCount)
	}

	// An empty batch returns before touching the client.
	if err := client.BatchSaveObjects(context.Background(), "test-index", nil); err != nil {
		t.Errorf("Expected no error for empty batch, got %v", err)
	}
	if callCount != 0 {
		t.Errorf("Expected empty batch not to initialise the client, but fetch was called %d times", callCount)
	}

	_, _ = client.getClient()
	_, _ = client.getClient()
	if err := client.BatchDeleteObjects(context.Background(), "test-index", []string{"1"}); err == nil {
		t.Error("Expected delete to fail with the cached error")
	}
	if callCount != 1 {
		t.Errorf("Expected fetchSecrets to be called once, but was called %d times", callCount)
	}
}

func TestClientEmptyBatches(t *testing.T) {
	client := NewClient(func() (Secrets, error) {
		t.Error("Expected fetchSecrets not to be called for empty batches")
		return Secrets{}, nil
	})

	ctx := context.Background()
	if err := client.BatchSaveObjects(ctx, "test-index", nil); err != nil {
		t.Errorf("Expected nil error, got %v", err)
	}
	if err := client.BatchDeleteObjects(ctx, "test-index", nil); err != nil {
		t.Errorf("Expected nil error, got %v", err)
	}
}

func TestClientErrorCaching(t *testing.T) {
	callCount := 0
	client := NewClient(func() (Secrets, error) {
		callCount++
		return Secrets{}, errors.New("simulated fetch error")
	})

	ctx := context.Background()
	objects := []map[string]interface{}{{"objectID": "1"}}

	err1 := client.BatchSaveObjects(ctx, "test-index", objects)
	err2 := client.BatchSaveObjects(ctx, "test-index", objects)
	if err1 == nil || err2 == nil {
		t.Fatal("Expected both calls to fail")
	}
	if err1.Error() != err2.Error() {
		t.Errorf("Expected the same cached error, got %q and %q", err1, err2)
	}
	if callCount != 1 {
		t.Errorf("Expected fetchSecrets to be called once, but was called %d times", callCount)
	}
}

func TestClientConcurrentAccess(t *testing.T) {
	var mu sync.Mutex
	callCount := 0
	client := NewClient(func() (Secrets, error) {
		mu.Lock()
		callCount++
		mu.Unlock()
		return Secrets{AppID: "test-app", APIKey: "test-key"}, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = client.getClient()
		}()
	}
	wg.Wait()

	if callCount != 1 {
		t.Errorf("Expected fetchSecrets to be called once across goroutines, got %d", callCount)
	}
}
