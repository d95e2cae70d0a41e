package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Config holds all application configuration.
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Log      LogConfig
	Invoice  InvoiceConfig
	Matching MatchingConfig
	Report   ReportConfig
}

type AppConfig struct {
	Name string
	Port string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
}

// InvoiceConfig controls lifecycle behavior.
type InvoiceConfig struct {
	// Days overdue before an invoice escalates to the first warning tier.
	OverdueWarningDays int
	// Days overdue before an invoice escalates to the serious tier.
	OverdueSeriousDays int
	// When true, a red-reverse zeroes the remaining amount instead of
	// leaving paid/remaining as ledger history.
	RedReverseRestoresAmounts bool
}

// MatchingConfig controls auto-match scoring and thresholds.
type MatchingConfig struct {
	ExactThreshold     float64
	SuspectedThreshold float64
	// Maximum confidence points the textual correlation can add.
	TextBoost float64
}

type ReportConfig struct {
	// Confirmed matches whose amount difference exceeds this are flagged
	// as exceptions in daily reports.
	ExceptionTolerance float64
}

// Load reads configuration from config.yaml (optional) and APP_* env vars.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("app.name", "invoice-reconciliation-backend")
	v.SetDefault("app.port", "8080")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "invoicing")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("invoice.overdue_warning_days", 15)
	v.SetDefault("invoice.overdue_serious_days", 30)
	v.SetDefault("invoice.red_reverse_restores_amounts", false)

	v.SetDefault("matching.exact_threshold", 90.0)
	v.SetDefault("matching.suspected_threshold", 50.0)
	v.SetDefault("matching.text_boost", 15.0)

	v.SetDefault("report.exception_tolerance", 0.01)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// DSN builds the postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// InitDB opens the postgres connection.
func InitDB(cfg *Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}
