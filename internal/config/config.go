// Package config loads and validates the process configuration from a YAML
// file with environment overrides.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

// Engine mode selects which backend the runner wires up.
const (
	ModeSimulator = "simulator"
	ModeChain     = "chain"
)

type Config struct {
	EngineMode     string   `mapstructure:"engine_mode"`
	RPCList        []string `mapstructure:"rpc_list"`
	ProgramID      string   `mapstructure:"program_id"`
	PostgresURL    string   `mapstructure:"postgres_url"`
	WalletsFile    string   `mapstructure:"wallets_file"`
	TasksFile      string   `mapstructure:"tasks_file"`
	Admin          string   `mapstructure:"admin"`
	Treasury       string   `mapstructure:"treasury"`
	PlatformFeeBps uint16   `mapstructure:"platform_fee_bps"`
	SlippageBps    uint16   `mapstructure:"slippage_bps"`
	Workers        int      `mapstructure:"workers"`
	DebugLogging   bool     `mapstructure:"debug_logging"`
	LogFile        string   `mapstructure:"log_file"`
	SimFunding     uint64   `mapstructure:"sim_funding"`
}

const (
	DefaultPlatformFeeBps = 100
	DefaultSlippageBps    = 100
	DefaultWorkers        = 5
	DefaultSimFunding     = 10_000_000_000 // 10 SOL in lamports
	maxFeeBps             = 10_000
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"engine_mode":      ModeSimulator,
		"platform_fee_bps": DefaultPlatformFeeBps,
		"slippage_bps":     DefaultSlippageBps,
		"workers":          DefaultWorkers,
		"sim_funding":      DefaultSimFunding,
		"wallets_file":     "configs/wallets.csv",
		"tasks_file":       "configs/tasks.yml",
		"log_file":         "logs/trackmint.log",
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := loadEnvironmentVariables(v, &cfg); err != nil {
		return nil, err
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	switch cfg.EngineMode {
	case ModeSimulator, ModeChain:
	default:
		return fmt.Errorf("unknown engine_mode %q", cfg.EngineMode)
	}

	if cfg.EngineMode == ModeChain {
		if len(cfg.RPCList) == 0 {
			return errors.New("rpc_list is empty")
		}
		if cfg.ProgramID == "" {
			return errors.New("missing program_id for chain mode")
		}
	}
	for _, rpcURL := range cfg.RPCList {
		if err := validateURL(rpcURL, "http"); err != nil {
			return fmt.Errorf("invalid RPC URL %q: %w", rpcURL, err)
		}
	}

	if cfg.PlatformFeeBps > maxFeeBps {
		return errors.New("platform_fee_bps exceeds 10000")
	}
	if cfg.SlippageBps > maxFeeBps {
		return errors.New("slippage_bps exceeds 10000")
	}
	if cfg.Workers <= 0 {
		return errors.New("invalid workers count")
	}
	if cfg.TasksFile == "" {
		return errors.New("missing tasks_file")
	}
	if cfg.WalletsFile == "" {
		return errors.New("missing wallets_file")
	}
	return nil
}

func validateURL(rawURL, protocol string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	return nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) error {
	v.AutomaticEnv()
	v.SetEnvPrefix("TRACKMINT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if envPostgres := v.GetString("POSTGRES_URL"); envPostgres != "" {
		cfg.PostgresURL = envPostgres
	}

	if envRPCList := v.GetString("RPC_LIST"); envRPCList != "" {
		var cleanRPCs []string
		for _, rpc := range strings.Split(envRPCList, ",") {
			if clean := strings.TrimSpace(rpc); clean != "" {
				cleanRPCs = append(cleanRPCs, clean)
			}
		}
		if len(cleanRPCs) > 0 {
			cfg.RPCList = cleanRPCs
		}
	}
	return nil
}
