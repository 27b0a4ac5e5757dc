package config

import (
	"os"
	"path/filepath"
	"testing"
)

func withTempHome(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(ArgusHomeEnv, filepath.Join(dir, "home"))
	return dir
}

func TestLoadDefaultsWhenNoFilesExist(t *testing.T) {
	withTempHome(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BudgetUSD != DefaultBudgetUSD {
		t.Fatalf("expected default budget %v, got %v", DefaultBudgetUSD, cfg.BudgetUSD)
	}
	if cfg.MaxIterations != DefaultMaxIterations {
		t.Fatalf("expected default max iterations %v, got %v", DefaultMaxIterations, cfg.MaxIterations)
	}
	if len(cfg.ManifestDirs) != 1 || cfg.ManifestDirs[0] != DefaultManifestDir {
		t.Fatalf("expected default manifest dirs, got %v", cfg.ManifestDirs)
	}
}

func TestGlobalOverridesDefaults(t *testing.T) {
	home := withTempHome(t)
	argusDir := filepath.Join(home, "home")
	if err := os.MkdirAll(argusDir, 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(argusDir, globalConfigFile), []byte(`{"budget_usd": 5, "anthropic_api_key": "sk-test"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BudgetUSD != 5 {
		t.Fatalf("expected global budget override, got %v", cfg.BudgetUSD)
	}
	if cfg.AnthropicAPIKey != "sk-test" {
		t.Fatalf("expected global api key, got %q", cfg.AnthropicAPIKey)
	}
}

func TestLocalOverridesGlobal(t *testing.T) {
	home := withTempHome(t)
	argusDir := filepath.Join(home, "home")
	if err := os.MkdirAll(argusDir, 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(argusDir, globalConfigFile), []byte(`{"budget_usd": 5}`), 0o600); err != nil {
		t.Fatal(err)
	}

	repoRoot := filepath.Join(home, "repo")
	localDir := filepath.Join(repoRoot, localConfigSubdir)
	if err := os.MkdirAll(localDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(localDir, localConfigFile), []byte(`{"budget_usd": 2, "backend_kind": "memory"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(repoRoot)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BudgetUSD != 2 {
		t.Fatalf("expected local budget to win over global, got %v", cfg.BudgetUSD)
	}
	if cfg.BackendKind != "memory" {
		t.Fatalf("expected local backend kind, got %q", cfg.BackendKind)
	}
}

func TestEnvOverridesEverything(t *testing.T) {
	withTempHome(t)
	t.Setenv("ANTHROPIC_API_KEY", "sk-env-wins")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AnthropicAPIKey != "sk-env-wins" {
		t.Fatalf("expected env var to win, got %q", cfg.AnthropicAPIKey)
	}
}

func TestBudgetClamping(t *testing.T) {
	withTempHome(t)
	argusDir, err := ArgusDir()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(argusDir, 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(argusDir, globalConfigFile), []byte(`{"budget_usd": 9999}`), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BudgetUSD != maxBudgetUSD {
		t.Fatalf("expected clamped budget %v, got %v", maxBudgetUSD, cfg.BudgetUSD)
	}
}

func TestManifestPathRejectsTraversal(t *testing.T) {
	if _, err := ManifestPath("manifests", "../../etc/passwd"); err == nil {
		t.Fatal("expected traversal to be rejected")
	}
	if _, err := ManifestPath("manifests", "research.yaml"); err != nil {
		t.Fatalf("expected plain name to be accepted, got %v", err)
	}
}

func TestMaskAPIKey(t *testing.T) {
	if got := MaskAPIKey(""); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
	if got := MaskAPIKey("sk-ant-1234"); got != "****1234" {
		t.Fatalf("expected masked suffix, got %q", got)
	}
}

func TestSaveGlobalRoundTrip(t *testing.T) {
	withTempHome(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.AnthropicAPIKey = "sk-saved"
	cfg.BudgetUSD = 3.5
	if err := cfg.SaveGlobal(); err != nil {
		t.Fatalf("SaveGlobal: %v", err)
	}

	reloaded, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.AnthropicAPIKey != "sk-saved" {
		t.Fatalf("expected persisted api key, got %q", reloaded.AnthropicAPIKey)
	}
	if reloaded.BudgetUSD != 3.5 {
		t.Fatalf("expected persisted budget, got %v", reloaded.BudgetUSD)
	}
}
