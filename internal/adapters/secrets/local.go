package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/steamsolutionsvzla/odoo-megalabs/internal/adapters/ports"
	"github.com/steamsolutionsvzla/odoo-megalabs/pkg/timeutil"
	"go.uber.org/zap"
)

// localSecretManager keeps one file per secret under basePath.
// WARNING: development only. Use Vault or AWS Secrets Manager in production.
type localSecretManager struct {
	basePath string
	logger   *zap.Logger
}

// NewLocalSecretManager creates a filesystem-backed secret manager
func NewLocalSecretManager(basePath string, logger *zap.Logger) ports.SecretManagerAdapter {
	return &localSecretManager{
		basePath: basePath,
		logger:   logger,
	}
}

type localSecretFile struct {
	Value     string            `json:"value"`
	Tags      map[string]string `json:"tags,omitempty"`
	CreatedAt string            `json:"created_at"`
}

func (m *localSecretManager) resolve(secretPath string) (string, error) {
	clean := filepath.Clean("/" + secretPath)
	if strings.Contains(secretPath, "..") {
		return "", fmt.Errorf("invalid secret path: %s", secretPath)
	}
	return filepath.Join(m.basePath, clean), nil
}

// GetSecret reads a secret file. Files may be plain text or the JSON envelope written by PutSecret.
func (m *localSecretManager) GetSecret(ctx context.Context, secretPath string) (*ports.Secret, error) {
	filePath, err := m.resolve(secretPath)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ports.ErrSecretNotFound, secretPath)
		}
		return nil, fmt.Errorf("failed to read secret: %w", err)
	}

	var stored localSecretFile
	if err := json.Unmarshal(data, &stored); err == nil && stored.Value != "" {
		return &ports.Secret{
			Value:     stored.Value,
			Version:   "v1",
			Metadata:  stored.Tags,
			CreatedAt: stored.CreatedAt,
		}, nil
	}

	return &ports.Secret{
		Value:   strings.TrimRight(string(data), "\r\n"),
		Version: "v1",
	}, nil
}

// PutSecret writes a secret file with 0600 permissions
func (m *localSecretManager) PutSecret(ctx context.Context, secretPath, secretValue string, tags map[string]string) (string, error) {
	filePath, err := m.resolve(secretPath)
	if err != nil {
		return "", err
	}

	m.logger.Info("Storing secret to filesystem", zap.String("path", secretPath))

	if err := os.MkdirAll(filepath.Dir(filePath), 0700); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(localSecretFile{
		Value:     secretValue,
		Tags:      tags,
		CreatedAt: timeutil.Now().Format("2006-01-02T15:04:05Z07:00"),
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal secret: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0600); err != nil {
		return "", fmt.Errorf("failed to write secret: %w", err)
	}
	return "v1", nil
}

// DeleteSecret removes a secret file
func (m *localSecretManager) DeleteSecret(ctx context.Context, secretPath string) error {
	filePath, err := m.resolve(secretPath)
	if err != nil {
		return err
	}

	m.logger.Info("Deleting secret from filesystem", zap.String("path", secretPath))

	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ports.ErrSecretNotFound, secretPath)
		}
		return fmt.Errorf("failed to delete secret: %w", err)
	}
	return nil
}
