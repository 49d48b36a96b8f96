package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// 表单留空时使用的默认输入
const (
	DefaultCompany    = "Salesforce"
	DefaultCompetitor = "HubSpot"
	DefaultTimeframe  = "last 6 months"
)

// Config 项目配置结构体
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	LLM         LLMConfig         `yaml:"llm"`
	Search      SearchConfig      `yaml:"search"`
	Log         LogConfig         `yaml:"log"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	HTTP HTTPConfig `yaml:"http"`
}

// HTTPConfig HTTP 监听配置
type HTTPConfig struct {
	Addr    string `yaml:"addr"`
	Timeout string `yaml:"timeout"` // time.ParseDuration 格式
}

// LLMConfig LLM 相关配置
type LLMConfig struct {
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"api_key"` // 表单未填写时的兜底 key
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
	Timeout   int    `yaml:"timeout"` // 秒
}

// SearchConfig 搜索相关配置
type SearchConfig struct {
	Provider      string        `yaml:"provider"`
	Tavily        TavilyConfig  `yaml:"tavily"`
	SearXNG       SearXNGConfig `yaml:"searxng"`
	MaxResults    int           `yaml:"max_results"`
	FetchFullText bool          `yaml:"fetch_full_text"`
	MinContentLen int           `yaml:"min_content_len"`
}

// TavilyConfig Tavily 配置
type TavilyConfig struct {
	APIKey string `yaml:"api_key"`
}

// SearXNGConfig SearXNG 配置
type SearXNGConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"` // 可选，实例开启鉴权时使用
	Timeout int    `yaml:"timeout"`
}

// FallbackAPIKey 当前 provider 自己的 key，表单留空时使用。
// 各 provider 的 key 互不借用，Tavily 的 key 不会发往 SearXNG。
func (c SearchConfig) FallbackAPIKey() string {
	switch c.Provider {
	case "", "tavily":
		return c.Tavily.APIKey
	case "searxng":
		return c.SearXNG.APIKey
	default:
		return ""
	}
}

// LogConfig 日志相关配置
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// ConcurrencyConfig LLM 调用限流配置
type ConcurrencyConfig struct {
	QPS int `yaml:"qps"`
	RPM int `yaml:"rpm"`
}

// LoadConfig 从指定路径加载配置，先读取 .env 再用环境变量补齐空缺的 key
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s failed: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse config file %s failed: %w", path, err)
	}
	return cfg, nil
}

// Parse 解析 YAML 配置内容并填充默认值
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.Search.Tavily.APIKey == "" {
		c.Search.Tavily.APIKey = os.Getenv("TAVILY_API_KEY")
	}
}

func (c *Config) applyDefaults() {
	if c.Server.HTTP.Addr == "" {
		c.Server.HTTP.Addr = "0.0.0.0:8000"
	}
	// kratos 默认 1s 超时，完整的一次分析远超这个时间
	if c.Server.HTTP.Timeout == "" {
		c.Server.HTTP.Timeout = "120s"
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://api.openai.com/v1"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o-mini"
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = 500
	}
	if c.LLM.Timeout <= 0 {
		c.LLM.Timeout = 60
	}
	if c.Search.Provider == "" {
		c.Search.Provider = "tavily"
	}
	if c.Search.MaxResults <= 0 {
		c.Search.MaxResults = 5
	}
	if c.Search.MinContentLen <= 0 {
		c.Search.MinContentLen = 200
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}
