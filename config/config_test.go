package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("AQUATRACK_STORE", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PORT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, ":8080", cfg.HTTPAddress())
	assert.Equal(t, "aquatrack", cfg.JWTIssuer)
	assert.Equal(t, 12*time.Hour, cfg.JWTTTL)
	assert.Equal(t, int64(15000), cfg.RateCentsPerUnit)
	assert.Equal(t, 30, cfg.DueInDays)
	assert.Equal(t, time.Hour, cfg.OverdueSweepInterval)
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRequiresDatabaseURLForPostgres(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("AQUATRACK_STORE", "postgres")
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("DATABASE_URL", "postgres://localhost/aquatrack")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("AQUATRACK_STORE", "etcd")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("AQUATRACK_STORE", "sqlite")
	t.Setenv("AQUATRACK_SQLITE_PATH", "/tmp/water.db")
	t.Setenv("JWT_TTL_MINUTES", "30")
	t.Setenv("AQUATRACK_RATE_CENTS", "20000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/water.db", cfg.SQLitePath)
	assert.Equal(t, 30*time.Minute, cfg.JWTTTL)
	assert.Equal(t, int64(20000), cfg.RateCentsPerUnit)
}
