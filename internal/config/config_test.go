package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFiles_Defaults(t *testing.T) {
	t.Setenv("STOREFRONT_API_URL", "http://shop.local/api/")
	t.Setenv("STOREFRONT_CRED_STORE", "")
	t.Setenv("STOREFRONT_GUEST_USER_ID", "")

	cfg, err := LoadFiles(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "http://shop.local/api", cfg.APIURL)
	assert.Equal(t, 10*time.Second, cfg.APITimeout)
	assert.Equal(t, StoreSQLite, cfg.CredStore)
	assert.Zero(t, cfg.GuestUserID)
	assert.Equal(t, "127.0.0.1", cfg.ServerHost)
	assert.Equal(t, 8090, cfg.ServerPort)
	assert.Equal(t, "product", cfg.ESIndex)
}

func TestLoadFiles_FromDotenv(t *testing.T) {
	for _, k := range []string{"STOREFRONT_API_URL", "STOREFRONT_GUEST_USER_ID", "KAFKA_BROKERS", "STOREFRONT_API_TIMEOUT"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(
		"STOREFRONT_API_URL=http://backend:8080\n"+
			"STOREFRONT_GUEST_USER_ID=1\n"+
			"STOREFRONT_API_TIMEOUT=3s\n"+
			"KAFKA_BROKERS=k1:9092,k2:9092\n"), 0o600))

	cfg, err := LoadFiles(path)
	require.NoError(t, err)
	assert.Equal(t, "http://backend:8080", cfg.APIURL)
	assert.EqualValues(t, 1, cfg.GuestUserID)
	assert.Equal(t, 3*time.Second, cfg.APITimeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

func TestLoadFiles_RejectsMalformedGuestID(t *testing.T) {
	t.Setenv("STOREFRONT_API_URL", "http://shop.local/api")
	t.Setenv("STOREFRONT_CRED_STORE", StoreMemory)
	missing := filepath.Join(t.TempDir(), "missing.env")

	for _, v := range []string{"one", "-3", "0", "1.5"} {
		t.Setenv("STOREFRONT_GUEST_USER_ID", v)
		_, err := LoadFiles(missing)
		assert.ErrorContains(t, err, "STOREFRONT_GUEST_USER_ID", v)
	}
}

func TestLoadFiles_ServerAddress(t *testing.T) {
	t.Setenv("STOREFRONT_API_URL", "http://shop.local/api")
	t.Setenv("STOREFRONT_CRED_STORE", StoreMemory)
	t.Setenv("STOREFRONT_GUEST_USER_ID", "")
	t.Setenv("SERVER_HOST", "::1")
	t.Setenv("SERVER_PORT", "9000")

	cfg, err := LoadFiles(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "::1", cfg.ServerHost)
	assert.Equal(t, 9000, cfg.ServerPort)

	t.Setenv("SERVER_PORT", "70000")
	_, err = LoadFiles(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	assert.Error(t, (&Config{CredStore: StoreMemory}).Validate())
	assert.NoError(t, (&Config{APIURL: "http://x", CredStore: StoreMemory}).Validate())
	assert.Error(t, (&Config{APIURL: "http://x", CredStore: StorePostgres}).Validate())
	assert.Error(t, (&Config{APIURL: "http://x", CredStore: StoreRedis}).Validate())
	assert.Error(t, (&Config{APIURL: "http://x", CredStore: "etcd"}).Validate())
	assert.NoError(t, (&Config{APIURL: "http://x", CredStore: StoreRedis, RedisAddr: "r:6379"}).Validate())
}
