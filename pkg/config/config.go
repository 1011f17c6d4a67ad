package config

import (
	"encoding/json"
	"fmt"
	"os"
)

type Config struct {
	LLM     LLMConfig     `json:"llm"`
	GitHub  GitHubConfig  `json:"github"`
	Planner PlannerConfig `json:"planner"`
	Cache   CacheConfig   `json:"cache"`
}

type LLMConfig struct {
	Provider    string  `json:"provider"`
	Model       string  `json:"model"`
	BaseURL     string  `json:"base_url"`
	APIKey      string  `json:"api_key,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

type GitHubConfig struct {
	Token   string `json:"token,omitempty"`
	BaseURL string `json:"base_url,omitempty"`
}

type PlannerConfig struct {
	MaxInstructions int `json:"max_instructions"`
}

type CacheConfig struct {
	MaxRepositories int `json:"max_repositories"`
}

// LoadConfig reads a JSON config file and fills secrets from the
// environment when the file leaves them blank.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&config)
	return &config, nil
}

// Default returns a usable config without a file, relying on environment
// variables for credentials.
func Default() *Config {
	config := &Config{
		LLM: LLMConfig{
			Provider: "ollama",
			Model:    "qwen2.5-coder",
			BaseURL:  "http://localhost:11434",
		},
	}
	applyDefaults(config)
	return config
}

func applyDefaults(config *Config) {
	if config.GitHub.Token == "" {
		config.GitHub.Token = os.Getenv("GITHUB_TOKEN")
	}
	if config.LLM.APIKey == "" {
		config.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if config.Planner.MaxInstructions <= 0 {
		config.Planner.MaxInstructions = 20
	}
	if config.Cache.MaxRepositories <= 0 {
		config.Cache.MaxRepositories = 16
	}
}
