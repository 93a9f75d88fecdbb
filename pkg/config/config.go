package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	LLM struct {
		BaseURL     string  `yaml:"base_url"`
		Model       string  `yaml:"model"`
		EmbedModel  string  `yaml:"embed_model"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float64 `yaml:"temperature"`
		Compose     bool    `yaml:"compose"`
	} `yaml:"llm"`

	Knowledge struct {
		DatabaseURL         string  `yaml:"database_url"`
		TableName           string  `yaml:"table_name"`
		VectorDim           int     `yaml:"vector_dim"`
		TopK                int     `yaml:"top_k"`
		SimilarityThreshold float64 `yaml:"similarity_threshold"`
		SeedDir             string  `yaml:"seed_dir"`
		WatchDir            string  `yaml:"watch_dir"`
		ChunkSize           int     `yaml:"chunk_size"`
		ChunkOverlap        int     `yaml:"chunk_overlap"`
	} `yaml:"knowledge"`

	Search struct {
		BaseURL    string  `yaml:"base_url"`
		RateLimit  float64 `yaml:"rate_limit"`
		MaxResults int     `yaml:"max_results"`
		TimeoutSec int     `yaml:"timeout_sec"`
	} `yaml:"search"`

	History struct {
		Backend   string `yaml:"backend"`
		Path      string `yaml:"path"`
		QueueSize int    `yaml:"queue_size"`
	} `yaml:"history"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/ava/config.yaml"),
			"/etc/ava/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	// Merge with environment variables
	mergeWithEnv(&config)

	// Apply defaults for unset values
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.Server.Port == "" {
		config.Server.Port = "8080"
	}

	if config.LLM.BaseURL == "" {
		config.LLM.BaseURL = "http://localhost:11434"
	}
	if config.LLM.Model == "" {
		config.LLM.Model = "mistral"
	}
	if config.LLM.EmbedModel == "" {
		config.LLM.EmbedModel = "nomic-embed-text:latest"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 2000
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.7
	}

	if config.Knowledge.TableName == "" {
		config.Knowledge.TableName = "documents"
	}
	if config.Knowledge.VectorDim == 0 {
		config.Knowledge.VectorDim = 768
	}
	if config.Knowledge.TopK == 0 {
		config.Knowledge.TopK = 3
	}
	if config.Knowledge.SimilarityThreshold == 0 {
		config.Knowledge.SimilarityThreshold = 0.75
	}
	if config.Knowledge.ChunkSize == 0 {
		config.Knowledge.ChunkSize = 1000
	}
	if config.Knowledge.ChunkOverlap == 0 {
		config.Knowledge.ChunkOverlap = 200
	}

	if config.Search.BaseURL == "" {
		config.Search.BaseURL = "https://api.duckduckgo.com"
	}
	if config.Search.RateLimit == 0 {
		config.Search.RateLimit = 2.0
	}
	if config.Search.MaxResults == 0 {
		config.Search.MaxResults = 5
	}
	if config.Search.TimeoutSec == 0 {
		config.Search.TimeoutSec = 15
	}

	if config.History.Backend == "" {
		config.History.Backend = "memory"
	}
	if config.History.Path == "" {
		config.History.Path = "ava-history.bolt"
	}
	if config.History.QueueSize == 0 {
		config.History.QueueSize = 256
	}
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Knowledge.DatabaseURL = dbURL
	}
	if port := os.Getenv("PORT"); port != "" {
		config.Server.Port = port
	}
}
