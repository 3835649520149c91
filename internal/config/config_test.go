package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "cinesync.db", cfg.Store.Path)
	assert.Equal(t, "https://api.themoviedb.org/3", cfg.TMDb.BaseURL)
	assert.Equal(t, "en-US", cfg.TMDb.Language)
	assert.Equal(t, "https://www.omdbapi.com", cfg.OMDb.BaseURL)
	assert.Equal(t, 25, cfg.Ingest.PageLimit)
	assert.Equal(t, "reports", cfg.Report.OutDir)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CINESYNC_STORE_DRIVER", "postgres")
	t.Setenv("CINESYNC_TMDB_KEY", "secret")
	t.Setenv("CINESYNC_INGEST_PAGE_LIMIT", "10")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "secret", cfg.TMDb.Key)
	assert.Equal(t, 10, cfg.Ingest.PageLimit)
}

func TestDefaults_MatchLoad(t *testing.T) {
	defaults, err := Defaults()
	require.NoError(t, err)
	assert.Equal(t, 25, defaults.Ingest.PageLimit)
	assert.Empty(t, defaults.TMDb.Key)
}

func TestInitLogger_InvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "verbose-ish", Format: "json"})
	assert.Error(t, err)
}

func TestInitLogger_Console(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	assert.NoError(t, err)
}
