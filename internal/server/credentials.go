package server

import (
	"context"
	"fmt"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// driveCredentials resolves the Google service account key, preferring
// Secrets Manager over a key file on disk.
func driveCredentials(ctx context.Context, cfg *DriveConfig, region string) ([]byte, error) {
	if cfg.CredentialsSecret != "" {
		return fetchSecret(ctx, cfg.CredentialsSecret, region)
	}

	data, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}
	return data, nil
}

func fetchSecret(ctx context.Context, secretID, region string) ([]byte, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := secretsmanager.NewFromConfig(awsCfg)
	resp, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: &secretID,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch secret %s: %w", secretID, err)
	}

	if resp.SecretString != nil {
		return []byte(*resp.SecretString), nil
	}
	return resp.SecretBinary, nil
}
