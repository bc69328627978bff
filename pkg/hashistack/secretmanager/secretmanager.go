package secretmanager

import (
	"os"

	vault "github.com/hashicorp/vault-client-go"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("secretmanager", fx.Provide(ProvideVault))

// ProvideVault builds a client from the standard VAULT_* environment. Without
// VAULT_ADDR it returns nil and config comes from file and env only.
func ProvideVault() (*vault.Client, error) {
	if os.Getenv("VAULT_ADDR") == "" {
		zap.L().Info("VAULT_ADDR not set, skipping secret manager")
		return nil, nil
	}

	return vault.New(
		vault.WithEnvironment(),
	)
}
