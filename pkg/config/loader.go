package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// ConfigPathEnv overrides the config file location.
const ConfigPathEnv = "SAMANTHA_CONFIG_FILE"

// Loader handles configuration loading with Viper.
type Loader struct {
	viper *viper.Viper
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("SAMANTHA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Loader{viper: v}
}

// Load loads the configuration from file and environment variables.
// If configPath is empty, default search paths are used, and a missing
// file is not an error: defaults plus environment variables apply.
func (l *Loader) Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if strings.TrimSpace(configPath) == "" {
		configPath = strings.TrimSpace(os.Getenv(ConfigPathEnv))
	}
	if configPath != "" {
		l.viper.SetConfigFile(configPath)
	}

	if err := l.viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || os.IsNotExist(err) {
			if configPath != "" {
				return nil, fmt.Errorf("reading config file %s: %w", configPath, err)
			}
			// No config file anywhere; env and defaults only.
			return l.finish(cfg)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return l.finish(cfg)
}

func (l *Loader) finish(cfg *Config) (*Config, error) {
	l.bindEnvKeys()
	if err := l.viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

// bindEnvKeys makes nested keys visible to AutomaticEnv even when they
// are absent from the config file.
func (l *Loader) bindEnvKeys() {
	keys := []string{
		"server.host", "server.port",
		"line.channel_secret", "line.channel_access_token",
		"line.login_channel_id", "line.login_channel_secret",
		"line.login_redirect_url", "line.crew_group_id",
		"calendar.credentials_json", "calendar.credentials_file",
		"calendar.basic_calendar_id", "calendar.staff_calendar_id",
		"movies.tmdb_api_key",
		"movies.xxi_ciwalk_url", "movies.cgv_bec_url", "movies.cgv_pvj_url",
		"storage.path",
		"dashboard.jwt_secret", "dashboard.session_hours",
		"log.level", "log.output_path", "log.development",
		"timezone",
	}
	for _, k := range keys {
		_ = l.viper.BindEnv(k)
	}
}

// Validate checks that the configuration is complete enough to serve.
func Validate(cfg *Config) error {
	if cfg.Line.ChannelSecret == "" {
		return fmt.Errorf("line.channel_secret is required")
	}
	if cfg.Line.ChannelAccessToken == "" {
		return fmt.Errorf("line.channel_access_token is required")
	}
	if cfg.Storage.Path == "" {
		return fmt.Errorf("storage.path is required")
	}
	if cfg.Dashboard.JWTSecret == "" {
		return fmt.Errorf("dashboard.jwt_secret is required")
	}
	return nil
}
