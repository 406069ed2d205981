package secrets

import (
	"context"
	"fmt"
	"time"

	"github.com/steamsolutionsvzla/odoo-megalabs/internal/adapters/ports"
	"go.uber.org/zap"
)

// Backend names accepted by Open
const (
	BackendDB    = "db"
	BackendLocal = "local"
	BackendVault = "vault"
	BackendAWS   = "aws"
)

// Options carries the settings every backend might need
type Options struct {
	LocalBasePath  string
	VaultAddress   string
	VaultToken     string
	VaultMountPath string
	AWSRegion      string
	CacheTTL       time.Duration
}

// Open returns the secret manager for the named backend, or nil for "db"
// (parameters then live only in the config_parameters table).
func Open(ctx context.Context, backend string, opts Options, logger *zap.Logger) (ports.SecretManagerAdapter, error) {
	switch backend {
	case BackendDB, "":
		return nil, nil

	case BackendLocal:
		logger.Warn("Using LOCAL secret manager - NOT for production use!",
			zap.String("base_path", opts.LocalBasePath),
		)
		return NewLocalSecretManager(opts.LocalBasePath, logger), nil

	case BackendVault:
		cfg := DefaultVaultConfig(opts.VaultAddress)
		cfg.Token = opts.VaultToken
		if opts.VaultMountPath != "" {
			cfg.MountPath = opts.VaultMountPath
		}
		cfg.CacheTTL = opts.CacheTTL
		return NewVaultAdapter(ctx, cfg, logger)

	case BackendAWS:
		cfg := DefaultAWSSecretsManagerConfig(opts.AWSRegion)
		cfg.CacheTTL = opts.CacheTTL
		return NewAWSSecretsManagerAdapter(ctx, cfg, logger)

	default:
		return nil, fmt.Errorf("unknown parameter backend %q", backend)
	}
}
