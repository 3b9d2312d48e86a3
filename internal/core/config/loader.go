package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/jbonilla-tao/sn35-vali-burn/internal/core/domain"
)

// Hardcoded subnet defaults reused across roles.
const (
	DefaultNetuid             = 35
	DefaultTargetUID          = 69
	DefaultAggregatorHotkey   = "5CATQqY6rA26Kkvm2abMTRtxnwyxigHZKxNJq86bUcpYsn35"
	DefaultDestinationColdkey = "5HLBDbdKfPCPKW33sPPyut8dPRTXA413Yp4ZRBgVKfrk4PcD"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Subtensor.Netuid == 0 {
		cfg.Subtensor.Netuid = DefaultNetuid
	}
	if cfg.Subtensor.Network == "" {
		cfg.Subtensor.Network = domain.NetworkLocal
	}
	if cfg.Subtensor.EndpointDomain == "" {
		cfg.Subtensor.EndpointDomain = domain.DefaultEndpointDomain
	}
	if cfg.Subtensor.RequestTimeout == 0 {
		cfg.Subtensor.RequestTimeout = 30 * time.Second
	}
	if cfg.Wallet.PasswordEnv == "" {
		cfg.Wallet.PasswordEnv = "MINER_WALLET_PASSWORD"
	}
	if cfg.Miner.AggregatorHotkey == "" {
		cfg.Miner.AggregatorHotkey = DefaultAggregatorHotkey
	}
	if cfg.Miner.DestinationColdkey == "" {
		cfg.Miner.DestinationColdkey = DefaultDestinationColdkey
	}
	if cfg.Miner.PollInterval == 0 {
		cfg.Miner.PollInterval = 30 * time.Second
	}
	if cfg.Validator.SetWeightsInterval == 0 {
		cfg.Validator.SetWeightsInterval = 360 * 2 // 2 epochs
	}
	if cfg.Validator.TargetUID == 0 {
		cfg.Validator.TargetUID = DefaultTargetUID
	}
	if cfg.Validator.RetrySleep == 0 {
		cfg.Validator.RetrySleep = 10 * time.Second
	}
	if cfg.Alerts.MetricsFile == "" {
		cfg.Alerts.MetricsFile = "lifetime_metrics.json"
	}
	cfg.Alerts.Thresholds.ApplyDefaults()
}

// Validate rejects configurations that cannot be run. Errors here are fatal
// at startup.
func (cfg *AppConfig) Validate() error {
	if cfg.Subtensor.Netuid < 0 {
		return fmt.Errorf("subtensor.netuid must be non-negative, got %d", cfg.Subtensor.Netuid)
	}
	valid := false
	for _, n := range domain.DefaultNetworks {
		if cfg.Subtensor.Network == n {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("unknown starting network %q", cfg.Subtensor.Network)
	}
	if cfg.Miner.PollInterval < time.Second {
		return fmt.Errorf("miner.poll_interval too small: %s", cfg.Miner.PollInterval)
	}
	return nil
}
