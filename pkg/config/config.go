// Package config provides configuration management for samantha.
// It uses Viper for flexible configuration loading with support for
// JSON config files, environment variables, and default values.
package config

// Config represents the complete samantha configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" json:"server"`
	Line      LineConfig      `mapstructure:"line" json:"line"`
	Calendar  CalendarConfig  `mapstructure:"calendar" json:"calendar"`
	Movies    MoviesConfig    `mapstructure:"movies" json:"movies"`
	Storage   StorageConfig   `mapstructure:"storage" json:"storage"`
	Dashboard DashboardConfig `mapstructure:"dashboard" json:"dashboard"`
	Log       LogConfig       `mapstructure:"log" json:"log"`

	// Timezone is the organizational timezone used for agenda rendering
	// and usage analytics.
	Timezone string `mapstructure:"timezone" json:"timezone"`
}

// ServerConfig for the HTTP server hosting the webhook and dashboard.
type ServerConfig struct {
	Host string `mapstructure:"host" json:"host"`
	Port int    `mapstructure:"port" json:"port"`
}

// LineConfig holds LINE Messaging API and LINE Login credentials.
type LineConfig struct {
	ChannelSecret      string `mapstructure:"channel_secret" json:"channel_secret"`
	ChannelAccessToken string `mapstructure:"channel_access_token" json:"channel_access_token"`

	// LoginChannelID and LoginChannelSecret belong to the LINE Login
	// channel used by the dashboard, not the messaging channel.
	LoginChannelID     string `mapstructure:"login_channel_id" json:"login_channel_id"`
	LoginChannelSecret string `mapstructure:"login_channel_secret" json:"login_channel_secret"`
	LoginRedirectURL   string `mapstructure:"login_redirect_url" json:"login_redirect_url"`

	// CrewGroupID is the group whose members are auto-promoted to crew
	// when they follow the bot.
	CrewGroupID string `mapstructure:"crew_group_id" json:"crew_group_id"`
}

// CalendarConfig for the Google Calendar agenda source.
type CalendarConfig struct {
	// CredentialsJSON is the raw service account key. CredentialsFile is
	// consulted when it is empty.
	CredentialsJSON string `mapstructure:"credentials_json" json:"credentials_json"`
	CredentialsFile string `mapstructure:"credentials_file" json:"credentials_file"`

	BasicCalendarID string `mapstructure:"basic_calendar_id" json:"basic_calendar_id"`
	StaffCalendarID string `mapstructure:"staff_calendar_id" json:"staff_calendar_id"`
}

// MoviesConfig for TMDB and the scraped cinema listings.
type MoviesConfig struct {
	TMDBAPIKey string `mapstructure:"tmdb_api_key" json:"tmdb_api_key"`

	XXICiwalkURL string `mapstructure:"xxi_ciwalk_url" json:"xxi_ciwalk_url"`
	CGVBECURL    string `mapstructure:"cgv_bec_url" json:"cgv_bec_url"`
	CGVPVJURL    string `mapstructure:"cgv_pvj_url" json:"cgv_pvj_url"`
}

// StorageConfig for the sqlite database.
type StorageConfig struct {
	Path string `mapstructure:"path" json:"path"`
}

// DashboardConfig for dashboard sessions.
type DashboardConfig struct {
	// JWTSecret signs dashboard session tokens.
	JWTSecret string `mapstructure:"jwt_secret" json:"jwt_secret"`

	// SessionHours is the session token lifetime.
	SessionHours int `mapstructure:"session_hours" json:"session_hours"`
}

// LogConfig for the logger package.
type LogConfig struct {
	Level       string `mapstructure:"level" json:"level"`
	OutputPath  string `mapstructure:"output_path" json:"output_path"`
	Development bool   `mapstructure:"development" json:"development"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Movies: MoviesConfig{
			XXICiwalkURL: "https://21cineplex.com/theater/bioskop-ciwalk-xxi,249,BDGCIWL.htm",
			CGVBECURL:    "https://www.cgv.id/en/schedule/cinema/014",
			CGVPVJURL:    "https://www.cgv.id/en/schedule/cinema/001",
		},
		Storage: StorageConfig{
			Path: "samantha.db",
		},
		Dashboard: DashboardConfig{
			SessionHours: 12,
		},
		Log: LogConfig{
			Level: "info",
		},
		Timezone: "Asia/Jakarta",
	}
}
