package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"

	pkgconfig "github.com/Skotchmaster/storefront/pkg/config"
)

const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreMemory   = "memory"
)

type Config struct {
	ServiceName string
	LogLevel    string

	APIURL     string
	APITimeout time.Duration
	// GuestUserID is the shared cart owner for anonymous sessions; 0 disables
	// guest carts.
	GuestUserID int64

	CredStore     string
	SQLitePath    string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	CredKey       string

	KafkaBrokers []string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string

	// ServerHost defaults to loopback: the local API acts as the signed-in user.
	ServerHost string
	ServerPort int
}

// Load reads the environment, after loading .env when one is present.
func Load() (*Config, error) {
	return LoadFiles(".env")
}

// LoadFiles is Load with explicit dotenv files; missing files are skipped.
func LoadFiles(files ...string) (*Config, error) {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	guest, err := pkgconfig.EnvID("STOREFRONT_GUEST_USER_ID")
	if err != nil {
		return nil, err
	}
	cfg := &Config{
		ServiceName: pkgconfig.EnvDefault("SERVICE_NAME", "storefront"),
		LogLevel:    pkgconfig.EnvDefault("LOG_LEVEL", "info"),

		APIURL:      strings.TrimRight(pkgconfig.EnvDefault("STOREFRONT_API_URL", ""), "/"),
		APITimeout:  pkgconfig.EnvDurationDefault("STOREFRONT_API_TIMEOUT", 10*time.Second),
		GuestUserID: guest,

		CredStore:     strings.ToLower(pkgconfig.EnvDefault("STOREFRONT_CRED_STORE", StoreSQLite)),
		SQLitePath:    pkgconfig.EnvDefault("STOREFRONT_SQLITE_PATH", "storefront.db"),
		DatabaseURL:   pkgconfig.EnvDefault("DATABASE_URL", ""),
		RedisAddr:     pkgconfig.EnvDefault("REDIS_ADDR", ""),
		RedisPassword: pkgconfig.EnvDefault("REDIS_PASSWORD", ""),
		CredKey:       pkgconfig.EnvDefault("STOREFRONT_CRED_KEY", ""),

		KafkaBrokers: pkgconfig.CSV(pkgconfig.EnvDefault("KAFKA_BROKERS", "")),

		ESURL:      pkgconfig.EnvDefault("ES_URL", ""),
		ESUser:     pkgconfig.EnvDefault("ES_USER", ""),
		ESPassword: pkgconfig.EnvDefault("ES_PASSWORD", ""),
		ESIndex:    pkgconfig.EnvDefault("ES_INDEX", "product"),

		ServerHost: pkgconfig.EnvDefault("SERVER_HOST", "127.0.0.1"),
		ServerPort: pkgconfig.EnvIntDefault("SERVER_PORT", 8090),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := pkgconfig.RequireNonEmpty(c.APIURL, "STOREFRONT_API_URL"); err != nil {
		return err
	}
	if c.GuestUserID < 0 {
		return fmt.Errorf("STOREFRONT_GUEST_USER_ID must be positive, got %d", c.GuestUserID)
	}
	if c.ServerPort < 0 || c.ServerPort > 65535 {
		return fmt.Errorf("SERVER_PORT %d out of range", c.ServerPort)
	}
	switch c.CredStore {
	case StoreSQLite, StoreMemory:
	case StorePostgres:
		if err := pkgconfig.RequireNonEmpty(c.DatabaseURL, "DATABASE_URL"); err != nil {
			return err
		}
	case StoreRedis:
		if err := pkgconfig.RequireNonEmpty(c.RedisAddr, "REDIS_ADDR"); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown STOREFRONT_CRED_STORE %q", c.CredStore)
	}
	return nil
}
