package factory

import (
	"fmt"

	"github.com/iWorld-y/churn_radar/internal/config"
	"github.com/iWorld-y/churn_radar/internal/search"
	"github.com/iWorld-y/churn_radar/internal/search/searxng"
	"github.com/iWorld-y/churn_radar/internal/search/tavily"
)

// NewSearcher 根据配置创建搜索实例，apiKey 为空时回退到该 provider 自己的 key
func NewSearcher(cfg config.SearchConfig, apiKey string) (search.Searcher, error) {
	if apiKey == "" {
		apiKey = cfg.FallbackAPIKey()
	}

	switch cfg.Provider {
	case "", "tavily":
		if apiKey == "" {
			return nil, fmt.Errorf("tavily api key is missing")
		}
		return tavily.NewClient(apiKey), nil

	case "searxng":
		baseURL := cfg.SearXNG.BaseURL
		if baseURL == "" {
			return nil, fmt.Errorf("searxng base url is missing")
		}
		return searxng.NewClient(baseURL, cfg.SearXNG.Timeout, apiKey), nil

	default:
		return nil, fmt.Errorf("unknown search provider: %s", cfg.Provider)
	}
}
