package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port string

	DBDriver    string
	DatabaseURL string
	RedisAddr   string

	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	LogLevel  string
	LogFormat string

	LedgerCacheTTL  time.Duration
	BookingCacheTTL time.Duration
	ReportCacheTTL  time.Duration

	TaxRatesFile string

	DocumentStore    string
	DocumentsDir     string
	DriveCredentials string
	DriveFolder      string

	RateLimitRPS   float64
	RateLimitBurst int

	BanStrikes  int
	BanWindow   time.Duration
	BanDuration time.Duration

	Mail Mail

	JobsTimezone     string
	CacheRefreshCron string
	BanSummaryCron   string
	TokenCleanupCron string
}

// Mail holds the SMTP settings used for ban alerts.
type Mail struct {
	From     string
	To       string
	Host     string
	Port     int
	User     string
	Password string
}

// Enabled reports whether enough is configured to send mail.
func (m Mail) Enabled() bool {
	return m.Host != "" && m.From != "" && m.To != ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.url", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.access_ttl", "15m")
	v.SetDefault("auth.refresh_ttl", "168h")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("cache.ledger_ttl", "30m")
	v.SetDefault("cache.booking_ttl", "30m")
	v.SetDefault("cache.report_ttl", "10m")
	v.SetDefault("taxrates.file", "")
	v.SetDefault("documents.store", "local")
	v.SetDefault("documents.dir", "./documents")
	v.SetDefault("documents.drive_credentials", "")
	v.SetDefault("documents.drive_folder", "")
	v.SetDefault("ratelimit.rps", 5)
	v.SetDefault("ratelimit.burst", 20)
	v.SetDefault("ban.strikes", 5)
	v.SetDefault("ban.window", "1m")
	v.SetDefault("ban.duration", "15m")
	v.SetDefault("alerts.from", "")
	v.SetDefault("alerts.to", "")
	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.user", "")
	v.SetDefault("smtp.pass", "")
	v.SetDefault("jobs.timezone", "Europe/Amsterdam")
	v.SetDefault("jobs.cache_refresh", "*/30 * * * *")
	v.SetDefault("jobs.ban_summary", "59 23 * * *")
	v.SetDefault("jobs.token_cleanup", "*/30 * * * *")
}

// Load reads .env (when present), config.yaml (when present) and the
// environment, in increasing order of precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:             v.GetString("port"),
		DBDriver:         strings.ToLower(v.GetString("database.driver")),
		DatabaseURL:      v.GetString("database.url"),
		RedisAddr:        v.GetString("redis.addr"),
		JWTSecret:        v.GetString("auth.jwt_secret"),
		AccessTTL:        v.GetDuration("auth.access_ttl"),
		RefreshTTL:       v.GetDuration("auth.refresh_ttl"),
		LogLevel:         v.GetString("log.level"),
		LogFormat:        v.GetString("log.format"),
		LedgerCacheTTL:   v.GetDuration("cache.ledger_ttl"),
		BookingCacheTTL:  v.GetDuration("cache.booking_ttl"),
		ReportCacheTTL:   v.GetDuration("cache.report_ttl"),
		TaxRatesFile:     v.GetString("taxrates.file"),
		DocumentStore:    strings.ToLower(v.GetString("documents.store")),
		DocumentsDir:     v.GetString("documents.dir"),
		DriveCredentials: v.GetString("documents.drive_credentials"),
		DriveFolder:      v.GetString("documents.drive_folder"),
		RateLimitRPS:     v.GetFloat64("ratelimit.rps"),
		RateLimitBurst:   v.GetInt("ratelimit.burst"),
		BanStrikes:       v.GetInt("ban.strikes"),
		BanWindow:        v.GetDuration("ban.window"),
		BanDuration:      v.GetDuration("ban.duration"),
		Mail: Mail{
			From:     v.GetString("alerts.from"),
			To:       v.GetString("alerts.to"),
			Host:     v.GetString("smtp.host"),
			Port:     v.GetInt("smtp.port"),
			User:     v.GetString("smtp.user"),
			Password: v.GetString("smtp.pass"),
		},
		JobsTimezone:     v.GetString("jobs.timezone"),
		CacheRefreshCron: v.GetString("jobs.cache_refresh"),
		BanSummaryCron:   v.GetString("jobs.ban_summary"),
		TokenCleanupCron: v.GetString("jobs.token_cleanup"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var problems []string
	if c.DatabaseURL == "" {
		problems = append(problems, "database.url is required")
	}
	if c.DBDriver != "mysql" && c.DBDriver != "postgres" {
		problems = append(problems, fmt.Sprintf("database.driver %q is not supported", c.DBDriver))
	}
	if c.JWTSecret == "" {
		problems = append(problems, "auth.jwt_secret is required")
	}
	if c.DocumentStore != "local" && c.DocumentStore != "drive" {
		problems = append(problems, fmt.Sprintf("documents.store %q is not supported", c.DocumentStore))
	}
	if c.DocumentStore == "drive" && c.DriveCredentials == "" {
		problems = append(problems, "documents.drive_credentials is required for the drive store")
	}
	if c.LedgerCacheTTL <= 0 || c.BookingCacheTTL <= 0 {
		problems = append(problems, "cache ttl must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
