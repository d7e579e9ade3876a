package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all tunables for the advisor.
// Values come from a YAML file, environment variables, or both;
// environment variables override YAML. Cost constants are unit-less
// relative weights mirroring the sequential-vs-random I/O asymmetry.
type Config struct {
	Costs CostConfig `yaml:"costs"`

	// HashMemBudgetBytes bounds the hash join build side before the cost
	// model charges a spill penalty.
	HashMemBudgetBytes int64 `yaml:"hash_mem_budget_bytes" env:"ADVISOR_HASH_MEM_BUDGET_BYTES" env-default:"67108864"`

	// MaxJoinSteps bounds enumeration work over wide join graphs. When the
	// bound is hit the result is marked as truncated best-effort.
	MaxJoinSteps int `yaml:"max_join_steps" env:"ADVISOR_MAX_JOIN_STEPS" env-default:"10000"`

	// StatsStaleAfter is the age beyond which table statistics produce a
	// staleness warning finding.
	StatsStaleAfter time.Duration `yaml:"stats_stale_after" env:"ADVISOR_STATS_STALE_AFTER" env-default:"168h"`

	Logging LoggingConfig `yaml:"logging"`
}

// CostConfig holds the cost model constants.
type CostConfig struct {
	SeqPageCost       float64 `yaml:"seq_page_cost" env:"ADVISOR_SEQ_PAGE_COST" env-default:"1.0"`
	RandomPageCost    float64 `yaml:"random_page_cost" env:"ADVISOR_RANDOM_PAGE_COST" env-default:"4.0"`
	CPUTupleCost      float64 `yaml:"cpu_tuple_cost" env:"ADVISOR_CPU_TUPLE_COST" env-default:"0.01"`
	CPUIndexTupleCost float64 `yaml:"cpu_index_tuple_cost" env:"ADVISOR_CPU_INDEX_TUPLE_COST" env-default:"0.005"`
	CPUOperatorCost   float64 `yaml:"cpu_operator_cost" env:"ADVISOR_CPU_OPERATOR_COST" env-default:"0.0025"`
}

// LoggingConfig configures the console/Seq log fan-out.
type LoggingConfig struct {
	SeqURL string `yaml:"seq_url" env:"ADVISOR_SEQ_URL" env-default:""`
	Level  string `yaml:"level" env:"ADVISOR_LOG_LEVEL" env-default:"info"`
}

// Load reads configuration from the given YAML path (optional) and the
// environment. A missing file is not an error; environment and defaults
// still apply.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, cfg); err != nil {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
			return cfg, cfg.validate()
		}
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read config from environment: %w", err)
	}
	return cfg, cfg.validate()
}

// Default returns a config with all defaults applied and no file input.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		// Defaults alone cannot fail validation.
		panic(err)
	}
	return cfg
}

func (c *Config) validate() error {
	if c.Costs.SeqPageCost <= 0 || c.Costs.RandomPageCost <= 0 {
		return fmt.Errorf("page cost constants must be positive")
	}
	if c.Costs.CPUTupleCost <= 0 || c.Costs.CPUIndexTupleCost <= 0 || c.Costs.CPUOperatorCost <= 0 {
		return fmt.Errorf("cpu cost constants must be positive")
	}
	if c.HashMemBudgetBytes <= 0 {
		return fmt.Errorf("hash_mem_budget_bytes must be positive")
	}
	if c.MaxJoinSteps <= 0 {
		return fmt.Errorf("max_join_steps must be positive")
	}
	return nil
}
