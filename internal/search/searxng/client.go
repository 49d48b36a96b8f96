package searxng

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/iWorld-y/churn_radar/internal/search"
)

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Client SearXNG API 客户端
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient 创建一个新的 SearXNG 客户端。
// apiKey 非空时以 Bearer 方式携带，用于挂在鉴权代理后面的实例。
func NewClient(baseURL string, timeout int, apiKey string) *Client {
	t := time.Duration(timeout) * time.Second
	if t == 0 {
		t = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: t,
		},
	}
}

// Ensure Client implements search.Searcher
var _ search.Searcher = (*Client)(nil)

// SearchResponse SearXNG 响应结构
type SearchResponse struct {
	Query   string         `json:"query"`
	Answers []string       `json:"answers"`
	Results []SearchResult `json:"results"`
}

// SearchResult SearXNG 单条结果
type SearchResult struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Content       string  `json:"content"`
	PublishedDate string  `json:"publishedDate"`
	Score         float64 `json:"score"`
}

// Search 执行搜索
func (c *Client) Search(ctx context.Context, req *search.Request) (*search.Response, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	u.Path = "/search"

	q := u.Query()
	q.Set("q", req.Query)
	q.Set("format", "json")
	if req.Topic == "news" {
		q.Set("categories", "news")
	} else {
		q.Set("categories", "general")
	}
	// SearXNG 只支持粗粒度的 time_range
	if tr := timeRange(req.StartDate, req.EndDate); tr != "" {
		q.Set("time_range", tr)
	}
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	httpReq.Header.Set("User-Agent", userAgent)
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	res, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("searxng api error (status %d): %s", res.StatusCode, string(body))
	}

	var searchResp SearchResponse
	if err := json.NewDecoder(res.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode response failed: %w", err)
	}

	results := make([]search.Result, 0, len(searchResp.Results))
	for _, r := range searchResp.Results {
		if req.MaxResults > 0 && len(results) >= req.MaxResults {
			break
		}
		results = append(results, search.Result{
			Title:         r.Title,
			URL:           r.URL,
			Content:       r.Content,
			Score:         r.Score,
			PublishedDate: r.PublishedDate,
		})
	}

	resp := &search.Response{Results: results}
	if req.IncludeAnswer && len(searchResp.Answers) > 0 {
		resp.Answer = searchResp.Answers[0]
	}
	return resp, nil
}

// timeRange 把起止日期映射到 day/week/month/year
func timeRange(start, end string) string {
	if start == "" {
		return ""
	}
	from, err := time.Parse(time.DateOnly, start)
	if err != nil {
		return ""
	}
	to := time.Now()
	if end != "" {
		if t, err := time.Parse(time.DateOnly, end); err == nil {
			to = t
		}
	}

	switch span := to.Sub(from); {
	case span <= 24*time.Hour:
		return "day"
	case span <= 7*24*time.Hour:
		return "week"
	case span <= 31*24*time.Hour:
		return "month"
	default:
		return "year"
	}
}
