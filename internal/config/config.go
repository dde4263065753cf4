package config

import (
	"fmt"
	"time"

	"github.com/kaledh4/daily-alpha-loop/internal/utils"
	"github.com/kelseyhightower/envconfig"
)

// Config holds user provided env variables
type Config struct {
	Fetcher *FetcherConfig
	AI      *AIConfig
}

// FetcherConfig holds the fetch pipeline env variables
type FetcherConfig struct {
	DataDir    string   `split_words:"true" default:"data"`
	Dashboards []string `required:"false"`

	// Remote bases tried after the local data dir when loading a
	// previously generated snapshot, in preference order.
	SnapshotBaseURLs []string `envconfig:"SNAPSHOT_BASE_URLS"`

	RefreshInterval time.Duration `split_words:"true" default:"5m"`
	FetchTimeout    time.Duration `split_words:"true" default:"15s"`
	PacingDelay     time.Duration `split_words:"true" default:"1s"`

	CacheExpiration   time.Duration `split_words:"true" default:"5m"`
	FearGreedCacheTTL time.Duration `split_words:"true" default:"15m"`
	TreasuryCacheTTL  time.Duration `split_words:"true" default:"5m"`
	NewsCacheTTL      time.Duration `split_words:"true" default:"10m"`

	EnableRedis   bool   `split_words:"true" default:"false"`
	RedisAddr     string `split_words:"true" default:"localhost:6379"`
	RedisPassword string `split_words:"true"`
	RedisDB       int    `split_words:"true" default:"0"`
	RedisUseTLS   bool   `split_words:"true" default:"false"`
}

// AIConfig holds the model backend env variables
type AIConfig struct {
	Key      string `envconfig:"KEY"`
	Disabled bool   `default:"false"`

	BaseURL string `split_words:"true" default:"https://openrouter.ai/api/v1"`
	Referer string `default:"https://github.com/kaledh4/daily-alpha-loop"`
	Title   string `default:"Daily Alpha Loop"`

	Models []string `default:"meta-llama/llama-3.3-70b-instruct:free,mistralai/mistral-small-3.1-24b-instruct:free,alibaba/tongyi-deepresearch-30b-a3b:free,openai/gpt-oss-120b:free,openai/gpt-oss-20b:free,tngtech/deepseek-r1t2-chimera:free,moonshotai/kimi-k2:free,qwen/qwen3-coder:free,z-ai/glm-4.5-air:free,google/gemma-3-4b-it:free"`

	RequestTimeout time.Duration `split_words:"true" default:"120s"`
	Temperature    float64       `default:"0.7"`
	MaxTokens      int           `split_words:"true" default:"8000"`
}

// ParseConfig reads user provided env variables and creates a Config
func ParseConfig() (*Config, error) {
	fetcherConfig := &FetcherConfig{}
	err := envconfig.Process("alphaloop", fetcherConfig)
	if err != nil {
		return nil, err
	}

	aiConfig := &AIConfig{}
	err = envconfig.Process("openrouter", aiConfig)
	if err != nil {
		return nil, err
	}

	if !aiConfig.Disabled && len(aiConfig.Key) == 0 {
		utils.Logger.Printf("OPENROUTER_KEY not set, model calls disabled")
		aiConfig.Disabled = true
	}
	if !aiConfig.Disabled && len(aiConfig.Models) == 0 {
		return nil, fmt.Errorf("config: OPENROUTER_MODELS must name at least one model")
	}

	return &Config{Fetcher: fetcherConfig, AI: aiConfig}, nil
}
