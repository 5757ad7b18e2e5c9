/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/valpere/listingfix/internal/generator"
	"github.com/valpere/listingfix/internal/orchestrator"
	"github.com/valpere/listingfix/internal/rules"
	"github.com/valpere/listingfix/internal/store"
)

// Flags shared by every command that refines records.
var (
	flagProvider    string
	flagModels      []string
	flagAPIKey      string
	flagBaseURL     string
	flagMaxAttempts int
	flagTimeout     time.Duration
	flagDBPath      string
	flagNoCache     bool
)

func addGeneratorFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagProvider, "provider", "", "Generator: openai, gemini, ollama, openrouter or none (default from config)")
	cmd.Flags().StringSliceVar(&flagModels, "models", nil, "Models to use (comma-separated; ollama and openrouter rotate between them)")
	cmd.Flags().StringVar(&flagAPIKey, "api-key", "", "Generator API key")
	cmd.Flags().StringVar(&flagBaseURL, "base-url", "", "Generator base URL")
	cmd.Flags().IntVar(&flagMaxAttempts, "max-attempts", 0, "Generator attempts per record (default from config)")
	cmd.Flags().DurationVar(&flagTimeout, "timeout", 0, "Timeout of one generator call (default from config)")
}

func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagDBPath, "db", "", "Database path for the refinement cache and checkpoints (default from config)")
	cmd.Flags().BoolVar(&flagNoCache, "no-cache", false, "Disable the refinement cache and checkpoints")
}

// applyFlags copies explicitly set flags over the loaded config.
func applyFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	if flags.Changed("provider") {
		cfg.Generator.Provider = flagProvider
	}
	if flags.Changed("models") {
		cfg.Generator.Models = flagModels
	}
	if flags.Changed("api-key") {
		cfg.Generator.APIKey = flagAPIKey
	}
	if flags.Changed("base-url") {
		cfg.Generator.BaseURL = flagBaseURL
	}
	if flags.Changed("max-attempts") {
		cfg.Refine.MaxAttempts = flagMaxAttempts
	}
	if flags.Changed("timeout") {
		cfg.Refine.Timeout = flagTimeout
	}
	if flags.Changed("db") {
		cfg.Store.Path = flagDBPath
	}
	if flags.Changed("no-cache") {
		cfg.Store.NoCache = flagNoCache
	}
	return cfg.Normalize()
}

// openStore opens the configured database, or returns nil when caching is
// disabled.
func openStore() (*store.Store, error) {
	if cfg.Store.NoCache || cfg.Store.Path == "" {
		return nil, nil
	}
	if dir := filepath.Dir(cfg.Store.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := store.New(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// loadCatalog returns the configured catalog with the stored custom banned
// terms merged in.
func loadCatalog(ctx context.Context, db *store.Store) (rules.Catalog, error) {
	catalog := cfg.Rules
	if db == nil {
		return catalog, nil
	}
	terms, err := db.BannedTerms(ctx)
	if err != nil {
		return catalog, fmt.Errorf("failed to load custom banned terms: %w", err)
	}
	if len(terms) > 0 {
		logger.Debug("merged custom banned terms", zap.Int("count", len(terms)))
	}
	return catalog.WithTerms(terms), nil
}

// buildOrchestrator wires the generator, catalog and logger together.
func buildOrchestrator(ctx context.Context, db *store.Store) (*orchestrator.Orchestrator, rules.Catalog, error) {
	catalog, err := loadCatalog(ctx, db)
	if err != nil {
		return nil, catalog, err
	}

	gen, err := generator.New(ctx, cfg.Generator)
	if err != nil {
		return nil, catalog, err
	}
	if gen == nil {
		fmt.Fprintln(os.Stderr, "No generator configured, using rule-based synthesis")
	} else if err := gen.IsAvailable(ctx); err != nil {
		logger.Warn("generator is not available, records will fall back to synthesis",
			zap.String("generator", gen.Name()), zap.Error(err))
	}

	orch, err := orchestrator.New(gen, catalog, cfg.Refine, orchestrator.WithLogger(logger))
	if err != nil {
		return nil, catalog, err
	}
	return orch, catalog, nil
}
