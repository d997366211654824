package refdex

import (
	"fmt"
	"time"
)

// Config holds the runtime configuration of the indexer and the resolver.
type Config struct {
	DBPath   string `koanf:"db_path" yaml:"db_path"`
	IndexURL string `koanf:"index_url" yaml:"index_url"`

	Crawl  CrawlConfig  `koanf:"crawl" yaml:"crawl"`
	LLM    LLMConfig    `koanf:"llm" yaml:"llm"`
	Search SearchConfig `koanf:"search" yaml:"search"`
	Server ServerConfig `koanf:"server" yaml:"server"`
	Redis  RedisConfig  `koanf:"redis" yaml:"redis"`
}

// CrawlConfig configures the crawl orchestrator.
type CrawlConfig struct {
	Concurrency       int           `koanf:"concurrency" yaml:"concurrency"`
	RequestsPerSecond float64       `koanf:"requests_per_second" yaml:"requests_per_second"`
	FetchTimeout      time.Duration `koanf:"fetch_timeout" yaml:"fetch_timeout"`
	MaxDepth          int           `koanf:"max_depth" yaml:"max_depth"`

	// Browser renders pages with headless Chrome instead of plain HTTP.
	Browser bool `koanf:"browser" yaml:"browser"`

	// Extractor names the fallback content extractor:
	// "trafilatura" or "readability".
	Extractor string   `koanf:"extractor" yaml:"extractor"`
	StopWords []string `koanf:"stop_words" yaml:"stop_words"`
}

// LLMConfig configures the language model binding.
type LLMConfig struct {
	// Provider is "gemini", "openai" or "ollama".
	Provider    string        `koanf:"provider" yaml:"provider"`
	Model       string        `koanf:"model" yaml:"model"`
	BaseURL     string        `koanf:"base_url" yaml:"base_url"`
	APIKey      string        `koanf:"api_key" yaml:"api_key"`
	Temperature float32       `koanf:"temperature" yaml:"temperature"`
	Timeout     time.Duration `koanf:"timeout" yaml:"timeout"`

	// Content caps, in runes, for the two prompt modes.
	DescriptionLimit int `koanf:"description_limit" yaml:"description_limit"`
	KeywordLimit     int `koanf:"keyword_limit" yaml:"keyword_limit"`

	Prompts PromptConfig `koanf:"prompts" yaml:"prompts"`
}

// PromptConfig holds text/template prompt templates. Templates see
// .Content and .MinCount.
type PromptConfig struct {
	Description string `koanf:"description" yaml:"description"`
	Keywords    string `koanf:"keywords" yaml:"keywords"`
	Question    string `koanf:"question" yaml:"question"`
}

// SearchConfig configures the query resolver.
type SearchConfig struct {
	// Threshold is the lowest matcher score, in [1, 100], that counts a
	// question keyword as matched.
	Threshold   int     `koanf:"threshold" yaml:"threshold"`
	Floor       float64 `koanf:"floor" yaml:"floor"`
	MinKeywords int     `koanf:"min_keywords" yaml:"min_keywords"`

	// Scope is "subtree" or "depth".
	Scope string `koanf:"scope" yaml:"scope"`

	// Granularity is "blob" or "keyword".
	Granularity string `koanf:"granularity" yaml:"granularity"`
	MaxDepth    int    `koanf:"max_depth" yaml:"max_depth"`
}

// ServerConfig configures the query endpoint.
type ServerConfig struct {
	Addr string `koanf:"addr" yaml:"addr"`
}

// RedisConfig configures the optional question keyword cache.
// An empty Addr disables the cache.
type RedisConfig struct {
	Addr string        `koanf:"addr" yaml:"addr"`
	TTL  time.Duration `koanf:"ttl" yaml:"ttl"`
}

// Default prompt templates.
const (
	DefaultDescriptionPrompt = `This is API reference content. Provide a brief description of the following content UNDER 35 words, concisely:

{{.Content}}...`

	DefaultKeywordsPrompt = `You are a professional programmer's assistant. Please extract keywords based on the given content.
FOLLOW THIS FORMAT : keyword1, keyword2, keyword3

This is API reference content. Provide a list of keywords. It will be used for search and filter function, so need to be more granular and specific.:
{{.Content}}`

	DefaultQuestionPrompt = `You are a professional programmer's assistant. Please extract keywords based on the given content. At least {{.MinCount}} keywords.
FOLLOW THIS FORMAT : keyword1, keyword2, keyword3
This is an API reference question. Provide a list of keywords. It will be used for search and filter function, so need to be more granular and specific.:

{{.Content}}`
)

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() *Config {
	return &Config{
		DBPath:   "refdex.db",
		IndexURL: "https://python.langchain.com/api_reference/index.html",
		Crawl: CrawlConfig{
			Concurrency:       4,
			RequestsPerSecond: 2,
			FetchTimeout:      10 * time.Second,
			MaxDepth:          8,
			Extractor:         "trafilatura",
			StopWords:         append([]string(nil), DefaultStopWords...),
		},
		LLM: LLMConfig{
			Provider:         "ollama",
			Model:            "mistral",
			BaseURL:          "http://127.0.0.1:11434/v1",
			Temperature:      0.1,
			Timeout:          60 * time.Second,
			DescriptionLimit: 1000,
			KeywordLimit:     4000,
			Prompts: PromptConfig{
				Description: DefaultDescriptionPrompt,
				Keywords:    DefaultKeywordsPrompt,
				Question:    DefaultQuestionPrompt,
			},
		},
		Search: SearchConfig{
			Threshold:   DefaultMatchThreshold,
			Floor:       DefaultMatchFloor,
			MinKeywords: DefaultQuestionKeywords,
			Scope:       "subtree",
			Granularity: "blob",
			MaxDepth:    8,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8000",
		},
		Redis: RedisConfig{
			TTL: 24 * time.Hour,
		},
	}
}

// Validate checks that the configuration contains usable values.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return Errorf(EINVALID, "db_path is required")
	}
	if c.Crawl.Concurrency < 1 {
		return Errorf(EINVALID, "crawl.concurrency must be at least 1")
	}
	if c.Crawl.RequestsPerSecond < 0 {
		return Errorf(EINVALID, "crawl.requests_per_second must be non-negative")
	}
	if c.Crawl.MaxDepth < 1 {
		return Errorf(EINVALID, "crawl.max_depth must be at least 1")
	}
	switch c.Crawl.Extractor {
	case "trafilatura", "readability":
	default:
		return Errorf(EINVALID, "invalid crawl.extractor %q: must be trafilatura or readability", c.Crawl.Extractor)
	}
	switch c.LLM.Provider {
	case "gemini", "openai", "ollama":
	default:
		return Errorf(EINVALID, "invalid llm.provider %q: must be one of gemini, openai, ollama", c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return Errorf(EINVALID, "llm.model is required")
	}
	if c.LLM.DescriptionLimit < 1 || c.LLM.KeywordLimit < 1 {
		return Errorf(EINVALID, "llm content limits must be positive")
	}
	if c.Search.Threshold < 1 || c.Search.Threshold > 100 {
		return Errorf(EINVALID, "search.threshold must be within [1, 100]")
	}
	if c.Search.MinKeywords < 1 {
		return Errorf(EINVALID, "search.min_keywords must be positive")
	}
	if c.Search.Floor <= 0 || c.Search.Floor > 1 {
		return Errorf(EINVALID, "search.floor must be within (0, 1]")
	}
	switch c.Search.Scope {
	case "subtree", "depth":
	default:
		return Errorf(EINVALID, "invalid search.scope %q: must be subtree or depth", c.Search.Scope)
	}
	switch c.Search.Granularity {
	case "blob", "keyword":
	default:
		return Errorf(EINVALID, "invalid search.granularity %q: must be blob or keyword", c.Search.Granularity)
	}
	return nil
}

// String returns a short description used in startup logs.
func (c *Config) String() string {
	return fmt.Sprintf("db=%s llm=%s/%s concurrency=%d", c.DBPath, c.LLM.Provider, c.LLM.Model, c.Crawl.Concurrency)
}
