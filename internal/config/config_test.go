package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"hightech/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.AppPort)
	assert.Equal(t, config.DriverMemory, cfg.DBDriver)
	assert.Equal(t, 5*time.Second, cfg.DocstorePollInterval)
	assert.Equal(t, 720*time.Hour, cfg.CartTTL)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 1200*time.Millisecond, cfg.CheckoutSettleDelay)
	assert.Equal(t, 0.16, cfg.CheckoutTaxRate)
	assert.Equal(t, "HTE-", cfg.OrderIDPrefix)
	assert.Equal(t, 1600, cfg.UploadMaxImageWidth)
	assert.Empty(t, cfg.RedisURL)
	assert.Empty(t, cfg.RabbitMQURL)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("APP_PORT", ":9090")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("CHECKOUT_SETTLE_DELAY", "0s")
	t.Setenv("CHECKOUT_TAX_RATE", "0.08")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.AppPort)
	assert.Equal(t, config.DriverSQLite, cfg.DBDriver)
	assert.Zero(t, cfg.CheckoutSettleDelay)
	assert.Equal(t, 0.08, cfg.CheckoutTaxRate)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "storefront.yaml")
	require.NoError(t, os.WriteFile(path, []byte("db_driver: mongo\nmongo_database: shop\norder_id_prefix: ORD-\n"), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.DriverMongo, cfg.DBDriver)
	assert.Equal(t, "shop", cfg.MongoDatabase)
	assert.Equal(t, "ORD-", cfg.OrderIDPrefix)

	_, err = config.Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err, "an explicit config file must exist")
}

func TestValidate(t *testing.T) {
	valid := func() config.Config {
		return config.Config{DBDriver: config.DriverMemory, JWTSecret: "secret"}
	}

	cfg := valid()
	assert.NoError(t, cfg.Validate())

	cfg = valid()
	cfg.DBDriver = "oracle"
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.DBDriver = config.DriverPostgres
	assert.Error(t, cfg.Validate(), "postgres needs a dsn")

	cfg = valid()
	cfg.JWTSecret = ""
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.CheckoutTaxRate = -0.1
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.UploadMaxImageWidth = -1
	assert.Error(t, cfg.Validate())
}

// chdir switches the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir on older toolchains).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
