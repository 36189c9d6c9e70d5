package google

import (
	"context"
	"fmt"

	"github.com/letmevibethatforyou/kwsearch/internal/secrets"
)

// AWSSecrets returns a FetchSecrets function that retrieves the credentials
// from AWS Secrets Manager. The secret is expected at "{environment}/google-search"
// and to contain JSON with api_key and search_engine_id fields.
func AWSSecrets(ctx context.Context, client secrets.SecretsManagerClient, env string) FetchSecrets {
	return AWSSecretsFromARN(ctx, client, fmt.Sprintf("%s/google-search", env))
}

// AWSSecretsFromARN returns a FetchSecrets function that retrieves the
// credentials from the secret with the given ARN or name.
func AWSSecretsFromARN(ctx context.Context, client secrets.SecretsManagerClient, secretArn string) FetchSecrets {
	return func() (Secrets, error) {
		var s Secrets
		if err := secrets.FetchJSON(ctx, client, secretArn, &s); err != nil {
			return Secrets{}, err
		}
		return s, nil
	}
}
