// Package config loads service settings from an optional YAML file, a .env
// file and the environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/perbu/campusrag/pkg/logging"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Index      IndexConfig      `yaml:"index"`
	Data       DataConfig       `yaml:"data"`
	RAG        RAGConfig        `yaml:"rag"`
	Cache      CacheConfig      `yaml:"cache"`
	History    HistoryConfig    `yaml:"history"`
	Embedder   EmbedderConfig   `yaml:"embedder"`
	Generator  GeneratorConfig  `yaml:"generator"`
	Keywords   KeywordsConfig   `yaml:"keywords"`
	Normalizer NormalizerConfig `yaml:"normalizer"`
	Persona    PersonaConfig    `yaml:"persona"`
	Log        LogConfig        `yaml:"log"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type IndexConfig struct {
	Dir       string `yaml:"dir"`
	BatchSize int    `yaml:"batch_size"`
	Watch     bool   `yaml:"watch"`
}

type DataConfig struct {
	ChunksDir string `yaml:"chunks_dir"`
}

// RAGConfig is the retrieval policy. SimilarityThreshold is a raw squared
// L2 distance and must be recalibrated for each embedding model.
type RAGConfig struct {
	SimilarityThreshold float32 `yaml:"similarity_threshold"`
	PrimaryK            int     `yaml:"primary_k"`
	SecondaryK          int     `yaml:"secondary_k"`
	ExpansionTerms      int     `yaml:"expansion_terms"`
	MaxUserMessageWords int     `yaml:"max_user_message_words"`
	MinCacheableLength  int     `yaml:"min_cacheable_length"`
}

type CacheConfig struct {
	Size int `yaml:"size"`
}

type HistoryConfig struct {
	MaxTurns    int `yaml:"max_turns"`
	MaxSessions int `yaml:"max_sessions"`
}

type EmbedderConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"`
	APIKey    string `yaml:"-"`
}

type GeneratorConfig struct {
	Provider string        `yaml:"provider"`
	Model    string        `yaml:"model"`
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
	APIKey   string        `yaml:"-"`
}

type KeywordsConfig struct {
	File string `yaml:"file"`
}

type NormalizerConfig struct {
	LemmasFile string `yaml:"lemmas_file"`
}

type PersonaConfig struct {
	File string `yaml:"file"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":5000"},
		Index: IndexConfig{
			Dir:       "data/index",
			BatchSize: 100,
			Watch:     true,
		},
		Data: DataConfig{ChunksDir: "data/json"},
		RAG: RAGConfig{
			SimilarityThreshold: 1.30,
			PrimaryK:            5,
			SecondaryK:          3,
			ExpansionTerms:      3,
			MaxUserMessageWords: 100,
			MinCacheableLength:  10,
		},
		Cache:   CacheConfig{Size: 1000},
		History: HistoryConfig{MaxTurns: 50, MaxSessions: 1000},
		Embedder: EmbedderConfig{
			Provider:  "hash",
			Dimension: 256,
		},
		Generator: GeneratorConfig{
			Provider: "gemini",
			Timeout:  30 * time.Second,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads .env if present, then the YAML file at path (or
// $CAMPUSRAG_CONFIG when path is empty), then environment overrides.
func Load(path string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := Default()

	if path == "" {
		path = os.Getenv("CAMPUSRAG_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("CAMPUSRAG_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return fmt.Errorf("CAMPUSRAG_THRESHOLD: %w", err)
		}
		c.RAG.SimilarityThreshold = float32(f)
	}
	if v := os.Getenv("CAMPUSRAG_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	c.Embedder.APIKey = APIKey(c.Embedder.Provider)
	c.Generator.APIKey = APIKey(c.Generator.Provider)
	return nil
}

// APIKey returns the credential for a provider from the environment.
func APIKey(provider string) string {
	switch provider {
	case "gemini":
		if v := os.Getenv("GEMINI_API_KEY"); v != "" {
			return v
		}
		return os.Getenv("GOOGLE_API_KEY")
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	}
	return ""
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	positive := func(name string, v int) {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", name, v))
		}
	}

	if c.RAG.SimilarityThreshold <= 0 {
		errs = append(errs, fmt.Errorf("rag.similarity_threshold must be positive, got %v", c.RAG.SimilarityThreshold))
	}
	positive("rag.primary_k", c.RAG.PrimaryK)
	positive("rag.secondary_k", c.RAG.SecondaryK)
	positive("rag.expansion_terms", c.RAG.ExpansionTerms)
	positive("rag.max_user_message_words", c.RAG.MaxUserMessageWords)
	if c.RAG.MinCacheableLength < 0 {
		errs = append(errs, fmt.Errorf("rag.min_cacheable_length must not be negative, got %d", c.RAG.MinCacheableLength))
	}
	positive("index.batch_size", c.Index.BatchSize)
	positive("cache.size", c.Cache.Size)
	positive("history.max_turns", c.History.MaxTurns)
	positive("history.max_sessions", c.History.MaxSessions)

	switch c.Embedder.Provider {
	case "hash", "openai", "gemini":
	default:
		errs = append(errs, fmt.Errorf("unknown embedder.provider %q", c.Embedder.Provider))
	}
	switch c.Generator.Provider {
	case "gemini", "openai", "anthropic":
	default:
		errs = append(errs, fmt.Errorf("unknown generator.provider %q", c.Generator.Provider))
	}
	if c.Generator.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("generator.timeout must be positive, got %s", c.Generator.Timeout))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log.format %q", c.Log.Format))
	}

	return errors.Join(errs...)
}
