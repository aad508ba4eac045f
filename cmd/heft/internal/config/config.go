package config

import (
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

var AppFs = afero.NewOsFs()

// Config holds the CLI configuration.
type Config struct {
	SnapshotPath string
	Debug        bool
}

// Load reads configuration from .heft.yaml (working directory, home, or
// ~/.config/heft), HEFT_* environment variables, and .env files.
func Load() (*Config, error) {
	home, err := homedir.Dir()
	if err != nil {
		return nil, err
	}

	viper.SetConfigName(".heft")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath(home)
	viper.AddConfigPath(filepath.Join(home, ".config", "heft"))

	viper.SetEnvPrefix("HEFT")
	viper.AutomaticEnv()

	viper.SetDefault("snapshot_path", "catalog.json")
	viper.SetDefault("debug", false)

	// Config file is optional.
	_ = viper.ReadInConfig()

	if _, err := AppFs.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}
	if _, err := AppFs.Stat(".env.local"); err == nil {
		_ = godotenv.Overload(".env.local")
	}

	return &Config{
		SnapshotPath: viper.GetString("snapshot_path"),
		Debug:        viper.GetBool("debug"),
	}, nil
}
