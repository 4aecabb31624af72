package core

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/hypermem/hypermem-go/pkg/codebook"
	"github.com/hypermem/hypermem-go/pkg/consolidation"
	"github.com/hypermem/hypermem-go/pkg/engine"
	"github.com/hypermem/hypermem-go/pkg/hdc"
)

// Config contains the complete configuration for a hypermem client.
//
// It covers the encoding geometry (embedding width, hypervector width,
// projection seed), the optional remote embedder, the engine and
// consolidation tunings, and the snapshot location.
//
// Example:
//
//	config := core.DefaultConfig()
//	config.SnapshotPath = "./memories.db"
//	config.OpenAI = &core.OpenAIConfig{APIKey: "sk-..."}
type Config struct {
	// Dimensions is the hypervector width. Default: 10000.
	Dimensions int `json:"dimensions"`

	// EmbeddingDim is the embedder output width and the codebook input
	// width. Default: 384.
	EmbeddingDim int `json:"embedding_dim"`

	// Seed drives the codebook projection matrix and the local hash
	// embedder. The same seed always produces the same vector space.
	Seed uint64 `json:"seed"`

	// SnapshotPath is the SQLite snapshot file for Save and Load.
	// Empty disables persistence.
	SnapshotPath string `json:"snapshot_path,omitempty"`

	// DreamCycles is the number of consolidation cycles per Dream call.
	// Default: 3.
	DreamCycles int `json:"dream_cycles"`

	// CacheEntries bounds the embedding cache. Zero disables caching.
	CacheEntries int64 `json:"cache_entries"`

	// OpenAI enables the remote embedder when non-nil. The local hash
	// embedder remains the fallback, so the client stays usable offline.
	OpenAI *OpenAIConfig `json:"openai,omitempty"`

	// Engine tunes link wiring and retrieval expansion.
	Engine engine.Config `json:"engine"`

	// Consolidation tunes the interference and pruning thresholds.
	Consolidation consolidation.Config `json:"consolidation"`
}

// OpenAIConfig configures the remote embedding provider.
type OpenAIConfig struct {
	// APIKey is the OpenAI API key (required).
	APIKey string `json:"api_key"`

	// Model is the embedding model name (optional, defaults to
	// text-embedding-3-small).
	Model string `json:"model,omitempty"`

	// BaseURL overrides the API base URL for compatible providers.
	BaseURL string `json:"base_url,omitempty"`
}

// DefaultConfig returns a configuration with the standard tunings: 384-wide
// embeddings projected into 10,000-dimensional hypervectors, the local hash
// embedder, and three dream cycles.
func DefaultConfig() *Config {
	return &Config{
		Dimensions:    hdc.DefaultDimensions,
		EmbeddingDim:  codebook.DefaultInputDim,
		Seed:          42,
		DreamCycles:   consolidation.DefaultDreamCycles,
		CacheEntries:  4096,
		Engine:        engine.DefaultConfig(),
		Consolidation: consolidation.DefaultConfig(),
	}
}

// LoadConfigFromEnv loads configuration from environment variables.
//
// The function:
//  1. Searches for a .env file (up to 5 directory levels up)
//  2. Loads environment variables from the found file
//  3. Overrides the defaults with any HYPERMEM_-prefixed variables
//
// Supported environment variables:
//   - HYPERMEM_DIMENSIONS, HYPERMEM_EMBEDDING_DIM, HYPERMEM_SEED
//   - HYPERMEM_SNAPSHOT_PATH
//   - HYPERMEM_DREAM_CYCLES, HYPERMEM_CACHE_ENTRIES
//   - HYPERMEM_OPENAI_API_KEY, HYPERMEM_OPENAI_MODEL, HYPERMEM_OPENAI_BASE_URL
//
// Returns a Config instance, or an error if a variable fails to parse.
//
// Example:
//
//	config, err := core.LoadConfigFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
func LoadConfigFromEnv() (*Config, error) {
	if envPath, found := FindEnvFile(); found {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	cfg := DefaultConfig()

	if v := os.Getenv("HYPERMEM_DIMENSIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, NewMemoryError("LoadConfigFromEnv", err)
		}
		cfg.Dimensions = n
	}
	if v := os.Getenv("HYPERMEM_EMBEDDING_DIM"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, NewMemoryError("LoadConfigFromEnv", err)
		}
		cfg.EmbeddingDim = n
	}
	if v := os.Getenv("HYPERMEM_SEED"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, NewMemoryError("LoadConfigFromEnv", err)
		}
		cfg.Seed = n
	}
	if v := os.Getenv("HYPERMEM_SNAPSHOT_PATH"); v != "" {
		cfg.SnapshotPath = v
	}
	if v := os.Getenv("HYPERMEM_DREAM_CYCLES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, NewMemoryError("LoadConfigFromEnv", err)
		}
		cfg.DreamCycles = n
	}
	if v := os.Getenv("HYPERMEM_CACHE_ENTRIES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, NewMemoryError("LoadConfigFromEnv", err)
		}
		cfg.CacheEntries = n
	}

	if key := os.Getenv("HYPERMEM_OPENAI_API_KEY"); key != "" {
		cfg.OpenAI = &OpenAIConfig{
			APIKey:  key,
			Model:   os.Getenv("HYPERMEM_OPENAI_MODEL"),
			BaseURL: os.Getenv("HYPERMEM_OPENAI_BASE_URL"),
		}
	}

	return cfg, nil
}

// LoadConfigFromEnvFile loads configuration from a specific .env file.
//
// Parameters:
//   - envPath: Path to the .env file
//
// Returns a Config instance, or an error if loading fails.
func LoadConfigFromEnvFile(envPath string) (*Config, error) {
	if err := godotenv.Load(envPath); err != nil {
		return nil, NewMemoryError("LoadConfigFromEnvFile", err)
	}
	return LoadConfigFromEnv()
}

// LoadConfigFromJSON loads configuration from a JSON file. Fields absent
// from the file keep their defaults.
//
// Parameters:
//   - path: Path to the JSON configuration file
//
// Returns a Config instance, or an error if loading or parsing fails.
func LoadConfigFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewMemoryError("LoadConfigFromJSON", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, NewMemoryError("LoadConfigFromJSON", err)
	}
	return cfg, nil
}

// Validate validates the configuration.
//
// Checks that the encoding geometry is positive, that the dream cycle count
// is non-negative, and that an enabled OpenAI embedder carries an API key.
//
// Returns an error if validation fails, nil otherwise.
func (c *Config) Validate() error {
	if c.Dimensions <= 0 || c.EmbeddingDim <= 0 {
		return NewMemoryError("Validate", ErrInvalidConfig)
	}
	if c.DreamCycles < 0 || c.CacheEntries < 0 {
		return NewMemoryError("Validate", ErrInvalidConfig)
	}
	if c.OpenAI != nil && c.OpenAI.APIKey == "" {
		return NewMemoryError("Validate", ErrInvalidConfig)
	}
	return nil
}

// FindEnvFile searches for .env or .env.example files.
//
// The search:
//  1. Checks the current directory
//  2. Searches up to 5 directory levels up
//  3. Returns the first .env or .env.example file found
//
// Returns:
//   - path: Path to the found file (empty if not found)
//   - found: True if a file was found, false otherwise
func FindEnvFile() (string, bool) {
	if _, err := os.Stat(".env"); err == nil {
		return ".env", true
	}
	if _, err := os.Stat(".env.example"); err == nil {
		return ".env.example", true
	}

	dir, _ := os.Getwd()
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		envExamplePath := filepath.Join(dir, ".env.example")

		if _, err := os.Stat(envPath); err == nil {
			return envPath, true
		}
		if _, err := os.Stat(envExamplePath); err == nil {
			return envExamplePath, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", false
}
