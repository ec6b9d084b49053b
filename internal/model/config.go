package model

import (
	"path/filepath"
	"time"
)

// Config holds the complete pairbench configuration
type Config struct {
	Paths      PathsConfig      `yaml:"paths"`
	Generation GenerationConfig `yaml:"generation"`
	Judge      JudgeConfig      `yaml:"judge"`
	Remote     RemoteConfig     `yaml:"remote"`
	Blind      BlindConfig      `yaml:"blind"`
	Output     OutputConfig     `yaml:"output"`
}

// PathsConfig locates the input corpus and every durable artifact
type PathsConfig struct {
	// PairsFile is the input corpus: one JSON pair per line
	PairsFile string `yaml:"pairs_file"`

	// OutputDir is the root for generations, judgments, reports and the checkpoint
	OutputDir string `yaml:"output_dir"`

	// PromptsDir holds optional template overrides (built-in defaults otherwise)
	PromptsDir string `yaml:"prompts_dir"`
}

// GenerationConfig controls stage 1 (review generation, both conditions)
type GenerationConfig struct {
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`

	// MaxInputChars caps pair text before prompting; longer texts are
	// head/tail truncated
	MaxInputChars int `yaml:"max_input_chars"`
}

// JudgeConfig controls stages 2 and 3 (blind pairwise judging)
type JudgeConfig struct {
	// PrimaryModel and SecondaryModel are two independent judges; the
	// secondary is optional (empty disables stage 3)
	PrimaryModel   string `yaml:"primary_model"`
	SecondaryModel string `yaml:"secondary_model"`

	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`

	// Truncation budgets for the judge prompt context
	MaxPairChars      int `yaml:"max_pair_chars"`
	MaxReferenceChars int `yaml:"max_reference_chars"`
}

// RemoteConfig controls the OpenRouter-compatible API client
type RemoteConfig struct {
	BaseURL string `yaml:"base_url"`

	// APIKey comes from OPENROUTER_API_KEY; never written to config files
	APIKey string `yaml:"-"`

	// Timeout bounds a single attempt
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries bounds retry attempts for 429/5xx/transient network errors
	MaxRetries int `yaml:"max_retries"`

	// RetryBaseDelay is doubled per attempt (base << attempt)
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`

	// RequestsPerMinute paces outgoing calls; 0 disables pacing
	RequestsPerMinute float64 `yaml:"requests_per_minute"`

	// CacheTTL keeps identical request/response pairs in memory; 0 disables
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// BlindConfig controls deterministic slot assignment
type BlindConfig struct {
	// Seed fixes the pair-key to A/B mapping; both judge passes must share it
	Seed int64 `yaml:"seed"`
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Verbose bool `yaml:"verbose"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			PairsFile:  "data/pairs.jsonl",
			OutputDir:  "outputs",
			PromptsDir: "prompts",
		},
		Generation: GenerationConfig{
			Model:         "openai/gpt-4o",
			Temperature:   0.3,
			MaxTokens:     1500,
			MaxInputChars: 8000,
		},
		Judge: JudgeConfig{
			PrimaryModel:      "anthropic/claude-3.5-sonnet",
			SecondaryModel:    "openai/gpt-4o",
			Temperature:       0.0,
			MaxTokens:         800,
			MaxPairChars:      6000,
			MaxReferenceChars: 3000,
		},
		Remote: RemoteConfig{
			BaseURL:           "https://openrouter.ai/api/v1",
			Timeout:           180 * time.Second,
			MaxRetries:        3,
			RetryBaseDelay:    2 * time.Second,
			RequestsPerMinute: 60,
			CacheTTL:          0,
		},
		Blind: BlindConfig{
			Seed: 42,
		},
		Output: OutputConfig{
			Verbose: false,
		},
	}
}

// GenerationsDir returns the directory for generation logs
func (c *Config) GenerationsDir() string {
	return filepath.Join(c.Paths.OutputDir, "generations")
}

// JudgmentsDir returns the directory for judgment logs
func (c *Config) JudgmentsDir() string {
	return filepath.Join(c.Paths.OutputDir, "judgments")
}

// ReportsDir returns the directory for rendered reports
func (c *Config) ReportsDir() string {
	return filepath.Join(c.Paths.OutputDir, "reports")
}

// CheckpointPath returns the pipeline checkpoint file path
func (c *Config) CheckpointPath() string {
	return filepath.Join(c.Paths.OutputDir, "checkpoint.json")
}

// GenerationLog returns the generation log path for a condition
func (c *Config) GenerationLog(condition Condition) string {
	return filepath.Join(c.GenerationsDir(), "reviews_"+string(condition)+".jsonl")
}

// JudgmentLog returns the judgment log path for a judge slot
func (c *Config) JudgmentLog(judge string) string {
	return filepath.Join(c.JudgmentsDir(), "judgments_"+judge+".jsonl")
}
