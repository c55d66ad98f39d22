package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("AISUCHET_DATA_DIR", dir)

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ais-uchet", c.AppName)
	assert.Equal(t, filepath.Join(dir, "database", "ais_uchet.db"), c.DBPath)
	assert.Equal(t, filepath.Join(dir, "backups"), c.BackupDir)
	assert.Equal(t, "info", c.LogLevel)

	// директории должны быть созданы
	assert.DirExists(t, filepath.Join(dir, "database"))
	assert.DirExists(t, filepath.Join(dir, "backups"))
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("AISUCHET_DATA_DIR", dir)
	t.Setenv("AISUCHET_DB_PATH", filepath.Join(dir, "custom.db"))
	t.Setenv("AISUCHET_LOG_LEVEL", "debug")
	t.Setenv("AISUCHET_LOG_FORMAT", "json")

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "custom.db"), c.DBPath)
	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, "json", c.LogFormat)
}
