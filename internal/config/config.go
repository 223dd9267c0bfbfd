package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

const (
	PricingOnDemand    = "on_demand"
	PricingReservation = "reservation"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Warehouse WarehouseConfig `mapstructure:"warehouse"`
	Backup    BackupConfig    `mapstructure:"backup"`
	Report    ReportConfig    `mapstructure:"report"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
}

type WarehouseConfig struct {
	ProjectID       string        `mapstructure:"project_id"`
	Location        string        `mapstructure:"location"`
	CredentialsFile string        `mapstructure:"credentials_file"`
	OAuth           OAuthConfig   `mapstructure:"oauth"`
	JobPollInterval time.Duration `mapstructure:"job_poll_interval"`
	Pricing         PricingConfig `mapstructure:"pricing"`
}

type OAuthConfig struct {
	ClientSecretFile string `mapstructure:"client_secret_file"`
	RefreshToken     string `mapstructure:"refresh_token"`
}

// PricingConfig selects how snapshot and clone jobs are billed. Reservation
// mode routes every job through the first reservation id.
type PricingConfig struct {
	DefaultPricingMode string   `mapstructure:"default_pricing_mode"`
	ReservationIDs     []string `mapstructure:"reservation_ids"`
}

type BackupConfig struct {
	Prefix         string   `mapstructure:"prefix"`
	RetentionDays  int      `mapstructure:"retention_days"`
	MaxConcurrency int      `mapstructure:"max_concurrency"`
	Datasets       []string `mapstructure:"datasets"`
	Schedule       string   `mapstructure:"schedule"`
	PruneAfterDays int      `mapstructure:"prune_after_days"`
	PruneSchedule  string   `mapstructure:"prune_schedule"`
}

type ReportConfig struct {
	LocalPath     string         `mapstructure:"local_path"`
	Compress      bool           `mapstructure:"compress"`
	RetentionDays int            `mapstructure:"retention_days"`
	Targets       []ReportTarget `mapstructure:"targets"`
}

type ReportTarget struct {
	Type    string `mapstructure:"type"`
	Enabled bool   `mapstructure:"enabled"`

	// Local
	Path string `mapstructure:"path"`

	// Google Drive
	CredentialsFile string `mapstructure:"credentials_file"`
	FolderID        string `mapstructure:"folder_id"`

	// AWS S3
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`

	// Telegram
	BotToken   string `mapstructure:"bot_token"`
	ChatID     string `mapstructure:"chat_id"`
	SendFile   bool   `mapstructure:"send_file"`
	NotifyOnly bool   `mapstructure:"notify_only"`
}

type MetricsConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	setDefaults(v)

	v.SetEnvPrefix("BQVAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "bqvault")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("warehouse.location", "US")
	v.SetDefault("warehouse.job_poll_interval", "2s")
	v.SetDefault("warehouse.pricing.default_pricing_mode", PricingOnDemand)
	v.SetDefault("backup.prefix", "zzz_backup_")
	v.SetDefault("backup.retention_days", 0)
	v.SetDefault("backup.max_concurrency", 8)
	v.SetDefault("backup.prune_after_days", 0)
	v.SetDefault("report.local_path", "./reports")
	v.SetDefault("report.compress", true)
	v.SetDefault("report.retention_days", 30)
	v.SetDefault("metrics.listen_addr", ":9108")
}

func (c *Config) Validate() error {
	if c.Warehouse.ProjectID == "" {
		return fmt.Errorf("warehouse.project_id is required")
	}

	switch c.Warehouse.Pricing.DefaultPricingMode {
	case PricingOnDemand:
	case PricingReservation:
		if len(c.Warehouse.Pricing.ReservationIDs) == 0 {
			return fmt.Errorf("warehouse.pricing.reservation_ids is required in reservation mode")
		}
	default:
		return fmt.Errorf("warehouse.pricing.default_pricing_mode: unsupported mode %q", c.Warehouse.Pricing.DefaultPricingMode)
	}

	if c.Warehouse.OAuth.RefreshToken != "" && c.Warehouse.OAuth.ClientSecretFile == "" {
		return fmt.Errorf("warehouse.oauth.client_secret_file is required with a refresh token")
	}

	if c.Backup.Prefix == "" {
		return fmt.Errorf("backup.prefix is required")
	}
	if c.Backup.RetentionDays < 0 {
		return fmt.Errorf("backup.retention_days cannot be negative")
	}
	if c.Backup.PruneAfterDays < 0 {
		return fmt.Errorf("backup.prune_after_days cannot be negative")
	}
	if c.Backup.MaxConcurrency < 1 {
		return fmt.Errorf("backup.max_concurrency must be at least 1")
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for key, spec := range map[string]string{
		"backup.schedule":       c.Backup.Schedule,
		"backup.prune_schedule": c.Backup.PruneSchedule,
	} {
		if spec == "" {
			continue
		}
		if _, err := parser.Parse(spec); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}

	if c.Report.LocalPath == "" {
		return fmt.Errorf("report.local_path is required")
	}

	for i, t := range c.GetEnabledReportTargets() {
		if err := t.validate(); err != nil {
			return fmt.Errorf("report.targets[%d]: %w", i, err)
		}
	}

	return nil
}

func (t ReportTarget) validate() error {
	switch t.Type {
	case "local":
		if t.Path == "" {
			return fmt.Errorf("path is required for local")
		}
	case "s3":
		if t.Bucket == "" {
			return fmt.Errorf("bucket is required for s3")
		}
	case "gdrive":
		if t.CredentialsFile == "" || t.FolderID == "" {
			return fmt.Errorf("credentials_file and folder_id are required for gdrive")
		}
	case "telegram":
		if t.BotToken == "" || t.ChatID == "" {
			return fmt.Errorf("bot_token and chat_id are required for telegram")
		}
	default:
		return fmt.Errorf("unsupported target type %q", t.Type)
	}
	return nil
}

func (c *Config) GetEnabledReportTargets() []ReportTarget {
	var enabled []ReportTarget
	for _, target := range c.Report.Targets {
		if target.Enabled {
			enabled = append(enabled, target)
		}
	}
	return enabled
}
