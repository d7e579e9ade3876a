package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.Costs.SeqPageCost != 1.0 {
		t.Errorf("expected seq_page_cost 1.0, got %v", cfg.Costs.SeqPageCost)
	}
	if cfg.Costs.RandomPageCost != 4.0 {
		t.Errorf("expected random_page_cost 4.0, got %v", cfg.Costs.RandomPageCost)
	}
	if cfg.Costs.CPUTupleCost != 0.01 {
		t.Errorf("expected cpu_tuple_cost 0.01, got %v", cfg.Costs.CPUTupleCost)
	}
	if cfg.Costs.CPUIndexTupleCost != 0.005 {
		t.Errorf("expected cpu_index_tuple_cost 0.005, got %v", cfg.Costs.CPUIndexTupleCost)
	}
	if cfg.HashMemBudgetBytes != 64<<20 {
		t.Errorf("expected 64 MiB hash budget, got %d", cfg.HashMemBudgetBytes)
	}
	if cfg.MaxJoinSteps != 10000 {
		t.Errorf("expected 10000 max join steps, got %d", cfg.MaxJoinSteps)
	}
	if cfg.StatsStaleAfter != 168*time.Hour {
		t.Errorf("expected 168h staleness threshold, got %v", cfg.StatsStaleAfter)
	}
}

func TestLoadFromYAML(t *testing.T) {
	content := `
costs:
  seq_page_cost: 1.0
  random_page_cost: 2.0
  cpu_tuple_cost: 0.01
  cpu_index_tuple_cost: 0.005
  cpu_operator_cost: 0.0025
hash_mem_budget_bytes: 1048576
max_join_steps: 500
stats_stale_after: 24h
logging:
  level: debug
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Costs.RandomPageCost != 2.0 {
		t.Errorf("expected random_page_cost 2.0, got %v", cfg.Costs.RandomPageCost)
	}
	if cfg.HashMemBudgetBytes != 1048576 {
		t.Errorf("expected 1 MiB hash budget, got %d", cfg.HashMemBudgetBytes)
	}
	if cfg.MaxJoinSteps != 500 {
		t.Errorf("expected 500 max join steps, got %d", cfg.MaxJoinSteps)
	}
	if cfg.StatsStaleAfter != 24*time.Hour {
		t.Errorf("expected 24h staleness threshold, got %v", cfg.StatsStaleAfter)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected debug log level, got %q", cfg.Logging.Level)
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MaxJoinSteps != 10000 {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestValidationRejectsNonPositiveCosts(t *testing.T) {
	content := `
costs:
  seq_page_cost: -1.0
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected validation error for a negative seq_page_cost")
	}
}
