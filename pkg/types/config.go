package types

// CompletionConfig holds settings for the text-completion provider.
type CompletionConfig struct {
	// BaseURL is the provider endpoint base (e.g. "https://api.openai.com").
	// Tests point this at a local httptest server.
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Model is the completion model identifier.
	Model string `json:"model" yaml:"model"`

	// APIKey is the bearer token for the provider.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Temperature is the sampling temperature (default 0.7).
	Temperature float64 `json:"temperature" yaml:"temperature"`

	// MaxOutputTokens caps the completion length per call (default 4096).
	MaxOutputTokens int `json:"max_output_tokens" yaml:"max_output_tokens"`

	// Seed, when non-zero, is passed to the provider for reproducible sampling.
	Seed int `json:"seed,omitempty" yaml:"seed,omitempty"`

	// TimeoutSeconds is the per-call HTTP timeout. Zero means no
	// client-side timeout; a stalled provider call then blocks the run.
	TimeoutSeconds int `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"`
}

// StoreConfig holds settings for assignment persistence.
type StoreConfig struct {
	// StateDir is the directory holding the SQLite database (default "state").
	StateDir string `json:"state_dir" yaml:"state_dir"`
}

// LedgerConfig holds settings for the token quota ledger.
type LedgerConfig struct {
	// StateDir is the directory holding the ledger database (default
	// "state", alongside the assignment store's database).
	StateDir string `json:"state_dir" yaml:"state_dir"`

	// InitialBalance is the token balance granted to an account on first
	// touch (default 0; accounts are funded by explicit credits).
	InitialBalance int `json:"initial_balance" yaml:"initial_balance"`
}

// RenderFormat selects the rendered artifact format.
type RenderFormat string

const (
	RenderMarkdown RenderFormat = "markdown"
	RenderDocx     RenderFormat = "docx"
)

// RenderConfig holds settings for document rendering.
type RenderConfig struct {
	// OutputDir is the directory for rendered artifacts (default "output/documents").
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// Format selects the artifact format: markdown or docx. Docx requires a
	// container runtime with a pandoc image.
	Format RenderFormat `json:"format" yaml:"format"`

	// PandocImage is the container image used for docx conversion
	// (default "pandoc/core:latest").
	PandocImage string `json:"pandoc_image,omitempty" yaml:"pandoc_image,omitempty"`
}

// PipelineConfig groups all component configurations for the pipeline.
type PipelineConfig struct {
	Completion CompletionConfig `json:"completion" yaml:"completion"`
	Store      StoreConfig      `json:"store" yaml:"store"`
	Ledger     LedgerConfig     `json:"ledger" yaml:"ledger"`
	Render     RenderConfig     `json:"render" yaml:"render"`
}
