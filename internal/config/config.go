package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultFeedURL is the published location of the Base Carbone CSV.
const DefaultFeedURL = "https://data.ademe.fr/data-fair/api/v1/datasets/base-carboner/data-files/Base_Carbone_V23.6.csv"

// Config holds all application configuration.
type Config struct {
	DB       DBConfig
	Log      LogConfig
	Feed     FeedConfig
	Rules    RulesConfig
	Pipeline PipelineConfig
	Archive  ArchiveConfig
	S3       S3Config
}

// DBConfig holds database connection settings.
type DBConfig struct {
	Driver     string `mapstructure:"driver"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	Name       string `mapstructure:"name"`
	SSLMode    string `mapstructure:"sslmode"`
	MaxOpen    int    `mapstructure:"max_open"`
	MaxIdle    int    `mapstructure:"max_idle"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// FeedConfig holds download bounds and the defaults used when the stored
// feed configuration row is first created.
type FeedConfig struct {
	URL                   string        `mapstructure:"url"`
	Timeout               time.Duration `mapstructure:"timeout"`
	MaxSizeMB             int64         `mapstructure:"max_size_mb"`
	UserAgent             string        `mapstructure:"user_agent"`
	ActiveSectors         []string      `mapstructure:"active_sectors"`
	UpdateFrequencyMonths int           `mapstructure:"update_frequency_months"`
}

// MaxBytes returns the payload cap in bytes.
func (f *FeedConfig) MaxBytes() int64 {
	return f.MaxSizeMB * 1024 * 1024
}

// RulesConfig points at an optional YAML rule table replacing the built-in one.
type RulesConfig struct {
	File string `mapstructure:"file"`
}

// PipelineConfig holds classification settings.
type PipelineConfig struct {
	ParallelSectors bool `mapstructure:"parallel_sectors"`
}

// ArchiveConfig controls copying each downloaded feed to object storage.
type ArchiveConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Prefix  string `mapstructure:"prefix"`
}

// S3Config holds AWS S3 settings.
type S3Config struct {
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// Load reads configuration from environment variables with the FACTORSYNC_ prefix.
// When configFile is non-empty it is read first and environment variables override it.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FACTORSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// DB defaults
	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "factorsync")
	v.SetDefault("db.password", "factorsync_secret")
	v.SetDefault("db.name", "factorsync_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 5)
	v.SetDefault("db.max_idle", 2)
	v.SetDefault("db.sqlite_path", "factorsync.db")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Feed defaults
	v.SetDefault("feed.url", DefaultFeedURL)
	v.SetDefault("feed.timeout", "30s")
	v.SetDefault("feed.max_size_mb", 50)
	v.SetDefault("feed.user_agent", "factorsync/1.0")
	v.SetDefault("feed.active_sectors", "vehicles")
	v.SetDefault("feed.update_frequency_months", 6)

	v.SetDefault("rules.file", "")
	v.SetDefault("pipeline.parallel_sectors", false)

	// Archive defaults
	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.prefix", "feeds/")
	v.SetDefault("s3.region", "eu-west-3")
	v.SetDefault("s3.bucket", "factorsync-feeds")
	v.SetDefault("s3.endpoint", "")

	envBindings := map[string]string{
		"db.driver":                    "FACTORSYNC_DB_DRIVER",
		"db.host":                      "FACTORSYNC_DB_HOST",
		"db.port":                      "FACTORSYNC_DB_PORT",
		"db.user":                      "FACTORSYNC_DB_USER",
		"db.password":                  "FACTORSYNC_DB_PASSWORD",
		"db.name":                      "FACTORSYNC_DB_NAME",
		"db.sslmode":                   "FACTORSYNC_DB_SSLMODE",
		"db.max_open":                  "FACTORSYNC_DB_MAX_OPEN",
		"db.max_idle":                  "FACTORSYNC_DB_MAX_IDLE",
		"db.sqlite_path":               "FACTORSYNC_DB_SQLITE_PATH",
		"log.level":                    "FACTORSYNC_LOG_LEVEL",
		"log.format":                   "FACTORSYNC_LOG_FORMAT",
		"feed.url":                     "FACTORSYNC_FEED_URL",
		"feed.timeout":                 "FACTORSYNC_FEED_TIMEOUT",
		"feed.max_size_mb":             "FACTORSYNC_FEED_MAX_SIZE_MB",
		"feed.user_agent":              "FACTORSYNC_FEED_USER_AGENT",
		"feed.active_sectors":          "FACTORSYNC_FEED_ACTIVE_SECTORS",
		"feed.update_frequency_months": "FACTORSYNC_FEED_UPDATE_FREQUENCY_MONTHS",
		"rules.file":                   "FACTORSYNC_RULES_FILE",
		"pipeline.parallel_sectors":    "FACTORSYNC_PIPELINE_PARALLEL_SECTORS",
		"archive.enabled":              "FACTORSYNC_ARCHIVE_ENABLED",
		"archive.prefix":               "FACTORSYNC_ARCHIVE_PREFIX",
		"s3.region":                    "FACTORSYNC_S3_REGION",
		"s3.bucket":                    "FACTORSYNC_S3_BUCKET",
		"s3.endpoint":                  "FACTORSYNC_S3_ENDPOINT",
		"s3.access_key":                "FACTORSYNC_S3_ACCESS_KEY",
		"s3.secret_key":                "FACTORSYNC_S3_SECRET_KEY",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", configFile, err)
		}
	}

	cfg := &Config{}
	cfg.DB = DBConfig{
		Driver:     v.GetString("db.driver"),
		Host:       v.GetString("db.host"),
		Port:       v.GetInt("db.port"),
		User:       v.GetString("db.user"),
		Password:   v.GetString("db.password"),
		Name:       v.GetString("db.name"),
		SSLMode:    v.GetString("db.sslmode"),
		MaxOpen:    v.GetInt("db.max_open"),
		MaxIdle:    v.GetInt("db.max_idle"),
		SQLitePath: v.GetString("db.sqlite_path"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	cfg.Feed = FeedConfig{
		URL:                   v.GetString("feed.url"),
		Timeout:               v.GetDuration("feed.timeout"),
		MaxSizeMB:             v.GetInt64("feed.max_size_mb"),
		UserAgent:             v.GetString("feed.user_agent"),
		ActiveSectors:         stringList(v, "feed.active_sectors"),
		UpdateFrequencyMonths: v.GetInt("feed.update_frequency_months"),
	}
	cfg.Rules = RulesConfig{
		File: v.GetString("rules.file"),
	}
	cfg.Pipeline = PipelineConfig{
		ParallelSectors: v.GetBool("pipeline.parallel_sectors"),
	}
	cfg.Archive = ArchiveConfig{
		Enabled: v.GetBool("archive.enabled"),
		Prefix:  v.GetString("archive.prefix"),
	}
	cfg.S3 = S3Config{
		Region:    v.GetString("s3.region"),
		Bucket:    v.GetString("s3.bucket"),
		Endpoint:  v.GetString("s3.endpoint"),
		AccessKey: v.GetString("s3.access_key"),
		SecretKey: v.GetString("s3.secret_key"),
	}

	if cfg.Feed.Timeout <= 0 {
		return nil, fmt.Errorf("feed.timeout must be positive, got %s", cfg.Feed.Timeout)
	}
	if cfg.Feed.MaxSizeMB <= 0 {
		return nil, fmt.Errorf("feed.max_size_mb must be positive, got %d", cfg.Feed.MaxSizeMB)
	}

	// The postgres run lock pins one pool connection for the whole run.
	if cfg.DB.Driver == "postgres" && cfg.DB.MaxOpen == 1 {
		return nil, fmt.Errorf("db.max_open must be 0 (unlimited) or at least 2 for postgres, got 1")
	}

	return cfg, nil
}

// stringList accepts either a YAML list or a comma-separated env value.
func stringList(v *viper.Viper, key string) []string {
	if s, ok := v.Get(key).(string); ok {
		return splitList(s)
	}
	return v.GetStringSlice(key)
}

// splitList parses a comma-separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
