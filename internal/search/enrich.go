package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-shiori/go-readability"

	"github.com/iWorld-y/churn_radar/internal/logger"
)

const maxContentLen = 5000

// FetchFunc 抓取 URL 并返回正文纯文本，ctx 取消时应立即返回
type FetchFunc func(ctx context.Context, url string, timeout time.Duration) (string, error)

// Enricher 对摘要过短的结果抓取原文补全
type Enricher struct {
	MinContentLen int
	Timeout       time.Duration
	Fetch         FetchFunc
}

// NewEnricher 创建基于 readability 的正文补全器
func NewEnricher(minContentLen int) *Enricher {
	return &Enricher{
		MinContentLen: minContentLen,
		Timeout:       30 * time.Second,
		Fetch:         fetchAndCleanContent,
	}
}

// Enrich 就地替换过短的 Content，抓取失败时保留原摘要
func (e *Enricher) Enrich(ctx context.Context, resp *Response) {
	if e == nil || resp == nil {
		return
	}
	for i := range resp.Results {
		if ctx.Err() != nil {
			return
		}
		item := &resp.Results[i]
		if len(item.Content) >= e.MinContentLen || item.URL == "" {
			continue
		}

		fetched, err := e.Fetch(ctx, item.URL, e.Timeout)
		if err != nil {
			logger.Log.Warnf("原文抓取失败，使用搜索摘要 [%s]: %v", item.Title, err)
			continue
		}
		fetched = truncate(fetched, maxContentLen)
		if len(fetched) > len(item.Content) {
			item.Content = fetched
		}
	}
}

// truncate 截断到不超过 n 字节，并回退到完整的 UTF-8 字符边界
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func fetchAndCleanContent(ctx context.Context, pageURL string, timeout time.Duration) (string, error) {
	parsedURL, err := url.ParseRequestURI(pageURL)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch page failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch page failed with status %d", resp.StatusCode)
	}
	if !strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		return "", fmt.Errorf("not a html document")
	}

	article, err := readability.FromReader(resp.Body, parsedURL)
	if err != nil {
		return "", err
	}
	return article.TextContent, nil
}
