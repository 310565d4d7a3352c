// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/viper"

	"github.com/pdiddy/coursework-engine/internal/completion"
	"github.com/pdiddy/coursework-engine/internal/ledger"
	"github.com/pdiddy/coursework-engine/internal/logging"
	"github.com/pdiddy/coursework-engine/internal/orchestrate"
	"github.com/pdiddy/coursework-engine/internal/render"
	"github.com/pdiddy/coursework-engine/internal/store"
	"github.com/pdiddy/coursework-engine/pkg/types"
)

// --- shared pipeline wiring ---

// pipelineConfig assembles component configuration from viper (config file
// and environment), with the completion API key falling back to .secrets/.
func pipelineConfig() types.PipelineConfig {
	return types.PipelineConfig{
		Completion: types.CompletionConfig{
			BaseURL:         viper.GetString("completion.base_url"),
			Model:           viper.GetString("completion.model"),
			APIKey:          secretDefault("completion-api-key", viper.GetString("completion.api_key")),
			Temperature:     viper.GetFloat64("completion.temperature"),
			MaxOutputTokens: viper.GetInt("completion.max_output_tokens"),
			Seed:            viper.GetInt("completion.seed"),
			TimeoutSeconds:  viper.GetInt("completion.timeout_seconds"),
		},
		Store: types.StoreConfig{
			StateDir: viper.GetString("store.state_dir"),
		},
		Ledger: types.LedgerConfig{
			StateDir:       viper.GetString("ledger.state_dir"),
			InitialBalance: viper.GetInt("ledger.initial_balance"),
		},
		Render: types.RenderConfig{
			OutputDir:   viper.GetString("render.output_dir"),
			Format:      types.RenderFormat(viper.GetString("render.format")),
			PandocImage: viper.GetString("render.pandoc_image"),
		},
	}
}

func newLogger() (*logging.Logger, error) {
	mode, _ := rootCmd.PersistentFlags().GetString("log-mode")
	return logging.New(mode)
}

func actingUser() string {
	user, _ := rootCmd.PersistentFlags().GetString("user")
	return user
}

// completionClient selects the provider backend. Dry-run mode swaps in the
// offline scripted client, which synthesizes placeholder prose so the whole
// pipeline runs without network access or an API key.
func completionClient(cfg types.CompletionConfig, dryRun bool, log *logging.Logger) completion.Client {
	if dryRun {
		return &completion.ScriptedClient{Synthesize: true}
	}
	return completion.NewHTTPClient(cfg, log)
}

// pipeline bundles the wired components a generation-facing command needs.
type pipeline struct {
	store  *store.Store
	ledger *ledger.Ledger
	orc    *orchestrate.Orchestrator
	log    *logging.Logger
}

// close releases the pipeline's resources.
func (p *pipeline) close() {
	p.ledger.Close()
	p.store.Close()
	p.log.Sync()
}

// openPipeline wires the full generation pipeline from configuration.
func openPipeline(dryRun bool) (*pipeline, error) {
	cfg := pipelineConfig()

	log, err := newLogger()
	if err != nil {
		return nil, err
	}

	st, err := store.New(cfg.Store)
	if err != nil {
		return nil, err
	}

	led, err := ledger.New(cfg.Ledger)
	if err != nil {
		st.Close()
		return nil, err
	}

	renderer, err := render.New(cfg.Render)
	if err != nil {
		led.Close()
		st.Close()
		return nil, err
	}

	client := completionClient(cfg.Completion, dryRun, log)
	orc := orchestrate.New(st, led, client, renderer, nil, log)

	return &pipeline{store: st, ledger: led, orc: orc, log: log}, nil
}

// openStore wires only the assignment store, for read-side commands that do
// not touch the provider or the ledger.
func openStore() (*store.Store, error) {
	return store.New(pipelineConfig().Store)
}

// openLedger wires only the quota ledger.
func openLedger() (*ledger.Ledger, error) {
	return ledger.New(pipelineConfig().Ledger)
}
