// Package config holds runtime settings for the application, loaded from the
// environment with sensible defaults for a local desktop installation.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime settings.
//
// All fields can be overridden via environment variables with the
// AISUCHET_ prefix, e.g. AISUCHET_DATA_DIR, AISUCHET_LOG_LEVEL.
type Config struct {
	AppName string `envconfig:"APP_NAME" default:"ais-uchet"`

	// DataDir is the root for the store file, backups and logs.
	DataDir string `envconfig:"DATA_DIR" default:"data"`

	// DBPath is the SQLite store file. Defaults to <DataDir>/database/ais_uchet.db.
	DBPath string `envconfig:"DB_PATH"`

	// BackupDir receives timestamped physical copies of the store.
	// Defaults to <DataDir>/backups.
	BackupDir string `envconfig:"BACKUP_DIR"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
}

// Load reads configuration from the environment, fills derived defaults and
// creates the data directories.
func Load() (*Config, error) {
	var c Config
	if err := envconfig.Process("aisuchet", &c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.DataDir, "database", "ais_uchet.db")
	}
	if c.BackupDir == "" {
		c.BackupDir = filepath.Join(c.DataDir, "backups")
	}

	for _, dir := range []string{c.DataDir, filepath.Dir(c.DBPath), c.BackupDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("config: create %s: %w", dir, err)
		}
	}
	return &c, nil
}
