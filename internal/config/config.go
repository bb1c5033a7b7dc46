package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

type LLMConfig struct {
	Provider    string  `toml:"provider"`
	Model       string  `toml:"model"`
	APIKey      string  `toml:"api_key"`
	BaseURL     string  `toml:"base_url"`
	Temperature float64 `toml:"temperature"`
}

type PipelineConfig struct {
	ScoreCutoff  float64 `toml:"score_cutoff"`
	RowCap       int     `toml:"row_cap"`
	ExtremesK    int     `toml:"extremes_k"`
	AnalysisRows int     `toml:"analysis_rows"`
	SampleSeed   int64   `toml:"sample_seed"`
	Instructions string  `toml:"instructions"`
}

type StoreConfig struct {
	Path string `toml:"path"`
}

type ServerConfig struct {
	Port        string `toml:"port"`
	AdminToken  string `toml:"admin_token"`
	DatasetPath string `toml:"dataset_path"`
}

type Config struct {
	LLM      LLMConfig      `toml:"llm"`
	Pipeline PipelineConfig `toml:"pipeline"`
	Store    StoreConfig    `toml:"store"`
	Server   ServerConfig   `toml:"server"`
}

// Default returns the recognized option defaults; a config file or env
// overrides layer on top.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    "gemini",
			Model:       "gemini-2.5-flash",
			Temperature: 0.3,
		},
		Pipeline: PipelineConfig{
			ScoreCutoff:  90,
			RowCap:       150,
			ExtremesK:    8,
			AnalysisRows: 20,
			SampleSeed:   42,
		},
		Store: StoreConfig{
			Path: "govai.db",
		},
		Server: ServerConfig{
			Port: "8080",
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault reads the config file when present and falls back to the
// defaults when it is not; env overrides apply either way.
func LoadOrDefault(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		cfg = Default()
	}
	cfg.ApplyEnv()
	return cfg
}

// ApplyEnv layers environment overrides on top of the loaded file.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" && c.LLM.APIKey == "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.LLM.Temperature = f
		}
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("ADMIN_TOKEN"); v != "" {
		c.Server.AdminToken = v
	}
	if v := os.Getenv("DATASET_PATH"); v != "" {
		c.Server.DatasetPath = v
	}
	if v := os.Getenv("STORE_PATH"); v != "" {
		c.Store.Path = v
	}
}
