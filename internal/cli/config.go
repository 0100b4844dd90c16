package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/zarlcorp/zroster/internal/api"
)

// DefaultEnvFile is loaded from the working directory when present.
const DefaultEnvFile = ".env"

// Config is the resolved runtime configuration.
type Config struct {
	APIURL  string
	DataDir string
	Debug   bool
}

// DataDir returns the default data directory for zroster.
func DataDir() string {
	if d := os.Getenv("XDG_DATA_HOME"); d != "" {
		return filepath.Join(d, "zroster")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".zroster"
	}
	return filepath.Join(home, ".local", "share", "zroster")
}

// LoadConfig reads configuration from the environment. envFile, when it
// exists, is loaded first; variables already set in the environment win.
func LoadConfig(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix("zroster")
	v.AutomaticEnv()

	v.SetDefault("api_url", api.DefaultBaseURL)
	v.SetDefault("data_dir", DataDir())
	v.SetDefault("debug", false)

	return Config{
		APIURL:  v.GetString("api_url"),
		DataDir: v.GetString("data_dir"),
		Debug:   v.GetBool("debug"),
	}, nil
}
