package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestDefaultsDecode(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	require.Equal(t, DefaultFundraising(), cfg.Fundraising)
	require.Equal(t, "postgres", cfg.Database.Type)
	require.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
}

func TestEnvOverridesPolicy(t *testing.T) {
	t.Setenv("FUNDRAISING_MIN_DONATION", "5000")
	t.Setenv("FUNDRAISING_RETENTION_WINDOW", "2h")

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	require.Equal(t, int64(5000), cfg.Fundraising.MinDonation)
	require.Equal(t, 2*time.Hour, cfg.Fundraising.RetentionWindow)
	require.Equal(t, "Hamba Allah", cfg.Fundraising.AnonymousLabel)
}

func TestApplySecretsKeepsExistingWhenMissing(t *testing.T) {
	var cfg Config
	cfg.Database.User = "app"
	cfg.Auth.JWTSecret = "local"

	applySecrets(&cfg, map[string]interface{}{
		"postgres_password": "s3cret",
		"jwt_secret":        "",
	})

	require.Equal(t, "app", cfg.Database.User)
	require.Equal(t, "s3cret", cfg.Database.Password)
	require.Equal(t, "local", cfg.Auth.JWTSecret)
}
