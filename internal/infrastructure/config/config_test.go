package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOwnerID = "7d3f1a2b-4c5d-4e6f-8a9b-0c1d2e3f4a5b"

// clearFMEnv unsets every FM_ variable for the duration of the test
func clearFMEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, "FM_") {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearFMEnv(t)
		t.Setenv("FM_LOCAL_OWNER_ID", testOwnerID)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "factureman", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "factureman.db", cfg.Local.DBPath)
		assert.Equal(t, testOwnerID, cfg.Local.OwnerID.String())
		assert.Equal(t, RemoteDriverNone, cfg.Remote.Driver)
		assert.Equal(t, 30, cfg.Billing.MaxOfflineDocs)
		assert.True(t, cfg.Billing.CostPerDocument.Equal(decimal.NewFromInt(1)))
		assert.Equal(t, 2*time.Minute, cfg.Sync.Interval)
		assert.True(t, cfg.Sync.Enabled)
		assert.True(t, cfg.Connectivity.StartOnline)
		assert.True(t, cfg.Idempotency.Enabled)
		assert.Equal(t, 24*time.Hour, cfg.Idempotency.TTL)
		assert.True(t, cfg.HTTP.SwaggerEnabled)
		assert.False(t, cfg.Telemetry.ProfilingEnabled)
		assert.Equal(t, "http://localhost:4040", cfg.Telemetry.ProfilerAddress)
	})

	t.Run("loads values from environment variables with FM prefix", func(t *testing.T) {
		clearFMEnv(t)
		t.Setenv("FM_LOCAL_OWNER_ID", testOwnerID)
		t.Setenv("FM_APP_PORT", "9000")
		t.Setenv("FM_LOCAL_DB_PATH", "/data/fm.db")
		t.Setenv("FM_REMOTE_DRIVER", "Postgres")
		t.Setenv("FM_REMOTE_DATABASE_HOST", "db.internal")
		t.Setenv("FM_REMOTE_DATABASE_PASSWORD", "secret")
		t.Setenv("FM_BILLING_COST_PER_DOC", "2.5")
		t.Setenv("FM_BILLING_MAX_OFFLINE_DOCS", "10")
		t.Setenv("FM_SYNC_INTERVAL", "30s")
		t.Setenv("FM_TELEMETRY_PROFILING_ENABLED", "true")
		t.Setenv("FM_TELEMETRY_PROFILER_ADDRESS", "http://pyroscope:4040")
		t.Setenv("FM_HTTP_SWAGGER_ENABLED", "false")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "/data/fm.db", cfg.Local.DBPath)
		assert.Equal(t, RemoteDriverPostgres, cfg.Remote.Driver)
		assert.Equal(t, "db.internal", cfg.Remote.Database.Host)
		assert.Equal(t, "secret", cfg.Remote.Database.Password)
		assert.True(t, cfg.Billing.CostPerDocument.Equal(decimal.RequireFromString("2.5")))
		assert.Equal(t, 10, cfg.Billing.MaxOfflineDocs)
		assert.Equal(t, 30*time.Second, cfg.Sync.Interval)
		assert.True(t, cfg.Telemetry.ProfilingEnabled)
		assert.Equal(t, "http://pyroscope:4040", cfg.Telemetry.ProfilerAddress)
		assert.False(t, cfg.HTTP.SwaggerEnabled)
	})

	t.Run("requires an owner id", func(t *testing.T) {
		clearFMEnv(t)

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "local.owner_id is required")
	})

	t.Run("rejects malformed owner id", func(t *testing.T) {
		clearFMEnv(t)
		t.Setenv("FM_LOCAL_OWNER_ID", "not-a-uuid")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "local.owner_id")
	})

	t.Run("rejects unknown remote driver", func(t *testing.T) {
		clearFMEnv(t)
		t.Setenv("FM_LOCAL_OWNER_ID", testOwnerID)
		t.Setenv("FM_REMOTE_DRIVER", "dynamo")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "remote.driver")
	})

	t.Run("rejects negative document cost", func(t *testing.T) {
		clearFMEnv(t)
		t.Setenv("FM_LOCAL_OWNER_ID", testOwnerID)
		t.Setenv("FM_BILLING_COST_PER_DOC", "-1")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cost_per_doc")
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		clearFMEnv(t)
		t.Setenv("FM_LOCAL_OWNER_ID", testOwnerID)
		t.Setenv("FM_REMOTE_DATABASE_MAX_OPEN_CONNS", "2")
		t.Setenv("FM_REMOTE_DATABASE_MAX_IDLE_CONNS", "5")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	setValidProductionBase := func(t *testing.T) {
		clearFMEnv(t)
		t.Setenv("FM_LOCAL_OWNER_ID", testOwnerID)
		t.Setenv("FM_APP_ENV", "production")
		t.Setenv("FM_REMOTE_DRIVER", "postgres")
		t.Setenv("FM_REMOTE_DATABASE_PASSWORD", "secure-password")
		t.Setenv("FM_REMOTE_DATABASE_SSLMODE", "require")
		t.Setenv("FM_BILLING_CREDITS_BASE_URL", "https://credits.example.com")
	}

	t.Run("passes validation with valid production config", func(t *testing.T) {
		setValidProductionBase(t)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})

	t.Run("requires SSL enabled in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("FM_REMOTE_DATABASE_SSLMODE", "disable")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sslmode cannot be 'disable' in production")
	})

	t.Run("requires credits API in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("FM_BILLING_CREDITS_BASE_URL", "")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "billing.credits_base_url is required")
	})
}

func TestLoadRemote(t *testing.T) {
	t.Run("does not require an owner", func(t *testing.T) {
		clearFMEnv(t)
		t.Setenv("FM_REMOTE_DRIVER", "postgres")

		cfg, err := LoadRemote()
		require.NoError(t, err)
		assert.Equal(t, RemoteDriverPostgres, cfg.Remote.Driver)
		assert.True(t, cfg.Remote.Database.AutoMigrate)
	})

	t.Run("still validates the remote driver", func(t *testing.T) {
		clearFMEnv(t)
		t.Setenv("FM_REMOTE_DRIVER", "oracle")

		_, err := LoadRemote()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "remote.driver")
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost:5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{Host: "localhost", Port: 5432, User: "user", Password: "pass@word#123", DBName: "db", SSLMode: "disable"}
		assert.Contains(t, cfg.DSN(), "pass%40word%23123")
	})
}

func TestRedisConfig_Addr(t *testing.T) {
	cfg := RedisConfig{Host: "cache", Port: 6380}
	assert.Equal(t, "cache:6380", cfg.RedisAddr())
}
