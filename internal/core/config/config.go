package config

import (
	"time"

	"github.com/jbonilla-tao/sn35-vali-burn/internal/core/domain"
	"github.com/jbonilla-tao/sn35-vali-burn/internal/core/failure"
	redisclient "github.com/jbonilla-tao/sn35-vali-burn/internal/infra/redis"
	"github.com/jbonilla-tao/sn35-vali-burn/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server    ServerConfig       `yaml:"server"`
	Subtensor SubtensorConfig    `yaml:"subtensor"`
	Wallet    WalletConfig       `yaml:"wallet"`
	Miner     MinerConfig        `yaml:"miner"`
	Validator ValidatorConfig    `yaml:"validator"`
	Alerts    AlertConfig        `yaml:"alerts"`
	Logging   LoggingConfig      `yaml:"logging"`
	Redis     redisclient.Config `yaml:"redis"`
	Database  postgres.Config    `yaml:"database"`
}

// ServerConfig holds health/metrics HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// SubtensorConfig holds chain connection settings.
type SubtensorConfig struct {
	Netuid int `yaml:"netuid"`
	// Network to start on. Rotation order is fixed: local -> finney -> subvortex.
	Network        domain.Network `yaml:"network"`
	EndpointDomain string         `yaml:"endpoint_domain"`
	RequestTimeout time.Duration  `yaml:"request_timeout"`
}

// WalletConfig holds keystore and password resolution settings.
type WalletConfig struct {
	Name   string `yaml:"name"`
	Hotkey string `yaml:"hotkey"`
	Path   string `yaml:"path"`
	// PasswordEnv names the env var holding the wallet password.
	PasswordEnv string `yaml:"password_env"`
	// PasswordFile is read when the env var is unset.
	PasswordFile string `yaml:"password_file"`
	EnvFile      string `yaml:"env_file"`
}

// MinerConfig holds stake sweeper settings.
type MinerConfig struct {
	AggregatorHotkey   string        `yaml:"aggregator_hotkey"`
	DestinationColdkey string        `yaml:"destination_coldkey"`
	PollInterval       time.Duration `yaml:"poll_interval"`
	WaitFinalization   bool          `yaml:"wait_finalization"`
	NoInitialTransfer  bool          `yaml:"no_initial_transfer"`
}

// ValidatorConfig holds weight-setting settings.
type ValidatorConfig struct {
	// TargetUID overrides burn-UID auto-detection when >= 0.
	TargetUID          int `yaml:"target_uid"`
	SetWeightsInterval int `yaml:"set_weights_interval"` // blocks
	// RetrySleep is applied after non-benign weight failures.
	RetrySleep time.Duration `yaml:"retry_sleep"`
}

// AlertConfig holds Slack notification settings.
type AlertConfig struct {
	WebhookURL string `yaml:"webhook_url"`
	// ErrorWebhookURL receives error/warning level messages; falls back to
	// WebhookURL when empty.
	ErrorWebhookURL string `yaml:"error_webhook_url"`
	// MetricsFile persists lifetime metrics across restarts.
	MetricsFile string             `yaml:"metrics_file"`
	Thresholds  failure.Thresholds `yaml:"thresholds"`
}
