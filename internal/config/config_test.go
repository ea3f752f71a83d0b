package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "does-not-exist.toml")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "notemind", cfg.App.Name)
	require.Equal(t, 8080, cfg.App.Port)
	require.Equal(t, 6, cfg.LLM.MaxContextMessage)
	require.Equal(t, 4, cfg.Vector.TopK)
	require.Equal(t, "note.vector.reconcile", cfg.RabbitMQ.ReconcileQueue)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("CONFIG_FILE", "does-not-exist.toml")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("VECTOR_TOP_K", "8")
	t.Setenv("VECTOR_BASE_URL", "https://index.example")
	t.Setenv("LLM_MAX_CONTEXT_MESSAGE", "12")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.App.Port)
	require.Equal(t, 8, cfg.Vector.TopK)
	require.Equal(t, "https://index.example", cfg.Vector.BaseURL)
	require.Equal(t, 12, cfg.LLM.MaxContextMessage)
}

func TestLoadEnvOverrideIgnoresBadInt(t *testing.T) {
	t.Setenv("CONFIG_FILE", "does-not-exist.toml")
	t.Setenv("APP_PORT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.App.Port)
}

func TestMySQLDSN(t *testing.T) {
	cfg := defaultConfig()
	cfg.MySQL.User = "app"
	cfg.MySQL.Password = "pw"
	cfg.MySQL.Host = "db.internal"
	cfg.MySQL.Port = 3307
	cfg.MySQL.DB = "notes"
	cfg.MySQL.Params = "parseTime=true"

	require.Equal(t, "app:pw@tcp(db.internal:3307)/notes?parseTime=true", cfg.MySQLDSN())
}
