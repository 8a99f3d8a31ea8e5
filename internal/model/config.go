package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path" validate:"required"`
}

// CipherConfig locates the symmetric key used for stored API tokens.
type CipherConfig struct {
	KeyFile string `mapstructure:"key_file" yaml:"key_file" validate:"required"`
}

// RemoteConfig holds settings for the Habitica API client.
type RemoteConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url" validate:"required,url"`

	// ClientID is sent as x-client. When empty it is derived per user.
	ClientID string `mapstructure:"client_id" yaml:"client_id"`

	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gt=0"`

	// RequestsPerMinute paces outgoing calls below the server's limit.
	RequestsPerMinute int `mapstructure:"requests_per_minute" yaml:"requests_per_minute" validate:"gt=0"`
}

// BackoffConfig holds the linear backoff parameters.
type BackoffConfig struct {
	Step    time.Duration `mapstructure:"step" yaml:"step" validate:"gt=0"`
	Ceiling time.Duration `mapstructure:"ceiling" yaml:"ceiling" validate:"gtfield=Step"`
}

// ScheduleConfig holds the three job triggers.
type ScheduleConfig struct {
	Tick         time.Duration `mapstructure:"tick" yaml:"tick" validate:"gt=0"`
	SyncInterval time.Duration `mapstructure:"sync_interval" yaml:"sync_interval" validate:"gt=0"`
	DailyAt      string        `mapstructure:"daily_at" yaml:"daily_at" validate:"required"`
	WeeklyDay    string        `mapstructure:"weekly_day" yaml:"weekly_day" validate:"required"`
	WeeklyAt     string        `mapstructure:"weekly_at" yaml:"weekly_at" validate:"required"`
}

// ReportConfig controls where snapshots live and which calendar day
// "today" refers to.
type ReportConfig struct {
	Dir      string `mapstructure:"dir" yaml:"dir" validate:"required"`
	Timezone string `mapstructure:"timezone" yaml:"timezone" validate:"required"`
}

// MailConfig holds the outbound relay settings for weekly reports.
type MailConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port" validate:"gt=0,lt=65536"`
	From     string `mapstructure:"from" yaml:"from" validate:"omitempty,email"`
	To       string `mapstructure:"to" yaml:"to" validate:"omitempty,email"`
	Password string `mapstructure:"password" yaml:"-"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=json console"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Cipher   CipherConfig   `mapstructure:"cipher" yaml:"cipher"`
	Remote   RemoteConfig   `mapstructure:"remote" yaml:"remote"`
	Backoff  BackoffConfig  `mapstructure:"backoff" yaml:"backoff"`
	Schedule ScheduleConfig `mapstructure:"schedule" yaml:"schedule"`
	Report   ReportConfig   `mapstructure:"report" yaml:"report"`
	Mail     MailConfig     `mapstructure:"mail" yaml:"mail"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
}

// Location resolves Report.Timezone.
func (c *AppConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Report.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.Report.Timezone, err)
	}
	return loc, nil
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/todo-overs/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "todo-overs", "config.yaml")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "todo-overs.db")
	v.SetDefault("cipher.key_file", "cipher.key")

	v.SetDefault("remote.base_url", "https://habitica.com/api/v3")
	v.SetDefault("remote.client_id", "")
	v.SetDefault("remote.timeout", "30s")
	v.SetDefault("remote.requests_per_minute", 30)

	v.SetDefault("backoff.step", "90s")
	v.SetDefault("backoff.ceiling", "500s")

	v.SetDefault("schedule.tick", "1s")
	v.SetDefault("schedule.sync_interval", "10m")
	v.SetDefault("schedule.daily_at", "23:45")
	v.SetDefault("schedule.weekly_day", "sunday")
	v.SetDefault("schedule.weekly_at", "23:55")

	v.SetDefault("report.dir", "reports")
	v.SetDefault("report.timezone", "UTC")

	v.SetDefault("mail.host", "smtp.gmail.com")
	v.SetDefault("mail.port", 465)
	v.SetDefault("mail.from", "")
	v.SetDefault("mail.to", "")
	v.SetDefault("mail.password", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("metrics.addr", "")
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// A missing file is not an error; defaults and environment apply. Every
// key can be overridden with TODOOVERS_<SECTION>_<KEY>, and the mail
// credentials are also read from EMAIL_FROM, EMAIL_TO and EMAIL_PASS,
// optionally through a .env file in the working directory.
func LoadConfig(path string) (*AppConfig, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TODOOVERS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	_ = v.BindEnv("mail.from", "TODOOVERS_MAIL_FROM", "EMAIL_FROM")
	_ = v.BindEnv("mail.to", "TODOOVERS_MAIL_TO", "EMAIL_TO")
	_ = v.BindEnv("mail.password", "TODOOVERS_MAIL_PASSWORD", "EMAIL_PASS")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr *os.PathError
		if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	if _, err := cfg.Location(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}
