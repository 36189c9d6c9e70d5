package algolia

import (
	"context"
	"fmt"

	"github.com/letmevibethatforyou/kwsearch/internal/secrets"
)

// AWSSecrets returns a FetchSecrets function that retrieves Algolia credentials
// from AWS Secrets Manager. The secret is expected to be stored at the path
// "{environment}/algolia" and contain JSON with app_id and api_key fields.
func AWSSecrets(ctx context.Context, client secrets.SecretsManagerClient, env string) FetchSecrets {
	return AWSSecretsFromARN(ctx, client, fmt.Sprintf("%s/algolia", env))
}

// AWSSecretsFromARN returns a FetchSecrets function that retrieves Algolia
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
