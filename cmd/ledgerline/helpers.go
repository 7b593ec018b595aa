package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ledgerline/ledgerline/internal/common"
	"github.com/ledgerline/ledgerline/internal/engine"
	"github.com/ledgerline/ledgerline/internal/guardrail"
	"github.com/ledgerline/ledgerline/internal/llm"
	"github.com/ledgerline/ledgerline/internal/model"
	"github.com/ledgerline/ledgerline/internal/rulecheck"
	"github.com/ledgerline/ledgerline/internal/signal"
	"github.com/ledgerline/ledgerline/internal/storage"
)

// openStore opens the configured database and brings the schema current.
func openStore(ctx context.Context) (*storage.SQLiteStore, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".local", "share", "ledgerline", "ledgerline.db")
	}
	dbPath = expandPath(dbPath)

	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

func closeStore(store *storage.SQLiteStore) {
	if err := store.Close(); err != nil {
		slog.Error("Failed to close database", "error", err)
	}
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return os.ExpandEnv(path)
}

// requireOrg resolves the organization from the --org flag or config.
func requireOrg() (string, error) {
	org := viper.GetString("org")
	if org == "" {
		return "", common.NewUserError("no organization specified (pass --org or set org in config)", nil)
	}
	return org, nil
}

// loadTables builds the signal tables for an org: compiled defaults merged
// with its active learned rules, unsafe regexes dropped up front.
func loadTables(ctx context.Context, store *storage.SQLiteStore, orgID string) (signal.Tables, error) {
	tables, dropped := rulecheck.AdmitTables(signal.DefaultTables())
	for _, conflict := range dropped {
		slog.Warn("Dropped unsafe vendor regex", "detail", conflict.Description)
	}

	rules, err := store.GetActiveRuleVersions(ctx, orgID)
	if err != nil {
		return signal.Tables{}, fmt.Errorf("failed to load active rules: %w", err)
	}

	return tables.WithRules(rules), nil
}

// buildHybrid wires the full two-pass engine from configuration.
func buildHybrid(ctx context.Context, store *storage.SQLiteStore, orgID string) (*engine.Hybrid, error) {
	tables, err := loadTables(ctx, store, orgID)
	if err != nil {
		return nil, err
	}

	categories, err := store.GetCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	catSet := model.NewCategorySet(categories)

	guardrailCfg := guardrail.DefaultConfig()
	guardrailCfg.StrictMode = viper.GetBool("guardrails.strict")

	pass1 := engine.NewEngine(tables, guardrailCfg)

	client, err := createLLMClient()
	if err != nil {
		return nil, err
	}

	hybridCfg := engine.DefaultHybridConfig()
	if viper.IsSet("engine.accept_threshold") {
		hybridCfg.AcceptThreshold = viper.GetFloat64("engine.accept_threshold")
	}
	if viper.IsSet("engine.max_parallel") {
		hybridCfg.MaxParallel = viper.GetInt("engine.max_parallel")
	}
	hybridCfg.EnableFallback = !viper.GetBool("engine.disable_fallback")

	return engine.NewHybrid(pass1, client, catSet, guardrailCfg, hybridCfg), nil
}

func createLLMClient() (llm.Client, error) {
	cfg := llm.Config{
		Provider:    viper.GetString("llm.provider"),
		APIKey:      viper.GetString("llm.api_key"),
		Model:       viper.GetString("llm.model"),
		BaseURL:     viper.GetString("llm.base_url"),
		Temperature: viper.GetFloat64("llm.temperature"),
		MaxTokens:   viper.GetInt("llm.max_tokens"),
		Timeout:     viper.GetDuration("llm.timeout"),
	}
	if cfg.Provider == "" {
		cfg.Provider = "openai"
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	client, err := llm.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm client: %w", err)
	}
	return client, nil
}
