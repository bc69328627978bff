package config

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/vault-client-go"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var config = viper.New()

type Config struct {
	AppEnv     string `mapstructure:"APP_ENV"`
	AppName    string `mapstructure:"APP_NAME"`
	AppVersion string `mapstructure:"APP_VERSION"`
	NodeID     int64  `mapstructure:"NODE_ID"`
	TLS        struct {
		Enable   bool   `mapstructure:"ENABLE"`
		CertPath string `mapstructure:"CERT_PATH"`
		KeyPath  string `mapstructure:"KEY_PATH"`
	} `mapstructure:"TLS"`
	Otel struct {
		Addr string `mapstructure:"ADDR"`
	} `mapstructure:"OTEL"`
	Pyroscope struct {
		Addr string `mapstructure:"ADDR"`
	} `mapstructure:"PYROSCOPE"`
	Server struct {
		Addr         string        `mapstructure:"ADDR"`
		ReadTimeout  time.Duration `mapstructure:"READ_TIMEOUT"`
		WriteTimeout time.Duration `mapstructure:"WRITE_TIMEOUT"`
		IdleTimeout  time.Duration `mapstructure:"IDLE_TIMEOUT"`
	} `mapstructure:"HTTP_SERVER"`
	Database struct {
		Type           string `mapstructure:"TYPE"`
		Host           string `mapstructure:"HOST"`
		Port           string `mapstructure:"PORT"`
		DBNAME         string `mapstructure:"DBNAME"`
		User           string `mapstructure:"USER"`
		Password       string `mapstructure:"PASSWORD"`
		SSLMode        string `mapstructure:"SSLMODE"`
		Timezone       string `mapstructure:"TIMEZONE"`
		AutoMigrate    bool   `mapstructure:"AUTO_MIGRATE"`
		ConnectionPool struct {
			MaxIdleConn     int           `mapstructure:"MAX_IDLE_CONN"`
			MaxOpenConns    int           `mapstructure:"MAX_OPEN_CONNS"`
			ConnMaxLifetime time.Duration `mapstructure:"CONN_MAX_LIFETIME"`
			ConnMaxIdleTime time.Duration `mapstructure:"CONN_MAX_IDLE_TIME"`
		} `mapstructure:"CONNECTION_POOL"`
	} `mapstructure:"DATABASE"`
	Redis struct {
		Addr        string        `mapstructure:"ADDR"`
		Password    string        `mapstructure:"PASSWORD"`
		DB          int           `mapstructure:"DB"`
		PoolSize    int           `mapstructure:"POOL_SIZE"`
		PoolTimeout time.Duration `mapstructure:"POOL_TIMEOUT"`
	} `mapstructure:"REDIS"`
	Auth struct {
		JWTSecret string        `mapstructure:"JWT_SECRET"`
		Issuer    string        `mapstructure:"ISSUER"`
		TokenTTL  time.Duration `mapstructure:"TOKEN_TTL"`
	} `mapstructure:"AUTH"`
	AccessControl struct {
		Model  string `mapstructure:"MODEL"`
		Policy string `mapstructure:"POLICY"`
	} `mapstructure:"ACCESS_CONTROL"`
	Minio struct {
		Endpoint   string `mapstructure:"ENDPOINT"`
		AccessKey  string `mapstructure:"ACCESS_KEY"`
		SecretKey  string `mapstructure:"SECRET_KEY"`
		Secure     bool   `mapstructure:"SECURE"`
		BucketName string `mapstructure:"BUCKET_NAME"`
	} `mapstructure:"MINIO"`
	Fundraising Fundraising `mapstructure:"FUNDRAISING"`
}

// Fundraising holds the ledger policy values.
type Fundraising struct {
	MinDonation       int64         `mapstructure:"MIN_DONATION"`
	RetentionWindow   time.Duration `mapstructure:"RETENTION_WINDOW"`
	SweepInterval     time.Duration `mapstructure:"SWEEP_INTERVAL"`
	AnonymousLabel    string        `mapstructure:"ANONYMOUS_LABEL"`
	ReferencePrefix   string        `mapstructure:"REFERENCE_PREFIX"`
	ReferenceAttempts int           `mapstructure:"REFERENCE_ATTEMPTS"`
}

func DefaultFundraising() Fundraising {
	return Fundraising{
		MinDonation:       10000,
		RetentionWindow:   24 * time.Hour,
		SweepInterval:     24 * time.Hour,
		AnonymousLabel:    "Hamba Allah",
		ReferencePrefix:   "DON",
		ReferenceAttempts: 5,
	}
}

var Module = fx.Module("config", fx.Provide(LoadConfig))

type Params struct {
	fx.In
	Vault *vault.Client `optional:"true"`
}

func setDefaults(v *viper.Viper) {
	d := DefaultFundraising()
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_NAME", "bantudesa")
	v.SetDefault("NODE_ID", 1)
	v.SetDefault("HTTP_SERVER.ADDR", "8080")
	v.SetDefault("HTTP_SERVER.READ_TIMEOUT", 15*time.Second)
	v.SetDefault("HTTP_SERVER.WRITE_TIMEOUT", 15*time.Second)
	v.SetDefault("HTTP_SERVER.IDLE_TIMEOUT", 60*time.Second)
	v.SetDefault("DATABASE.TYPE", "postgres")
	v.SetDefault("AUTH.ISSUER", "bantudesa")
	v.SetDefault("AUTH.TOKEN_TTL", 24*time.Hour)
	v.SetDefault("FUNDRAISING.MIN_DONATION", d.MinDonation)
	v.SetDefault("FUNDRAISING.RETENTION_WINDOW", d.RetentionWindow)
	v.SetDefault("FUNDRAISING.SWEEP_INTERVAL", d.SweepInterval)
	v.SetDefault("FUNDRAISING.ANONYMOUS_LABEL", d.AnonymousLabel)
	v.SetDefault("FUNDRAISING.REFERENCE_PREFIX", d.ReferencePrefix)
	v.SetDefault("FUNDRAISING.REFERENCE_ATTEMPTS", d.ReferenceAttempts)
}

func LoadConfig(p Params) *Config {

	config.SetConfigName("config")
	config.SetConfigType("yaml")
	config.AddConfigPath(".")

	config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.AutomaticEnv()
	setDefaults(config)

	if err := config.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			zap.L().Error("failed to read config file", zap.Error(err))
			os.Exit(1)
		}
		zap.L().Warn("config.yaml not found, using defaults and environment")
	}

	var cfg Config
	if err := config.Unmarshal(&cfg); err != nil {
		zap.L().Error("failed to decode config", zap.Error(err))
		os.Exit(1)
	}

	if p.Vault != nil {
		// START - Vault
		client := p.Vault
		ctx := context.Background()

		zap.L().Info("Starting Get Secrets", zap.String("path", cfg.AppEnv))
		secret, err := client.Secrets.KvV2Read(ctx, cfg.AppEnv, vault.WithMountPath("secret"))
		if err != nil {
			zap.L().Error("failed get secret from vault", zap.Error(err))
			os.Exit(1)
		}
		zap.L().Info("Success Get Secret")

		applySecrets(&cfg, secret.Data.Data)
		// END - Vault
	}

	return &cfg
}

// applySecrets overlays non-empty secret values onto cfg.
func applySecrets(cfg *Config, data map[string]interface{}) {
	get := func(key, fallback string) string {
		if val, ok := data[key].(string); ok && val != "" {
			return val
		}
		return fallback
	}

	cfg.Database.User = get("postgres_user", cfg.Database.User)
	cfg.Database.Password = get("postgres_password", cfg.Database.Password)
	cfg.Redis.Password = get("redis_password", cfg.Redis.Password)
	cfg.Auth.JWTSecret = get("jwt_secret", cfg.Auth.JWTSecret)
	cfg.Minio.AccessKey = get("minio_access_key", cfg.Minio.AccessKey)
	cfg.Minio.SecretKey = get("minio_secret_key", cfg.Minio.SecretKey)
}
