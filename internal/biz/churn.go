package biz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iWorld-y/churn_radar/internal/chart"
	"github.com/iWorld-y/churn_radar/internal/churn"
	"github.com/iWorld-y/churn_radar/internal/config"
	"github.com/iWorld-y/churn_radar/internal/logger"
	"github.com/iWorld-y/churn_radar/internal/search"
)

var (
	// ErrMissingAPIKeys 任一 API key 为空，不会发起任何网络请求
	ErrMissingAPIKeys = errors.New("please provide both the search API key and the LLM API key")
	// ErrSearchFailed 搜索 API 调用失败
	ErrSearchFailed = errors.New("error fetching search data")
	// ErrNoSearchData 搜索 API 没有返回可用内容
	ErrNoSearchData = errors.New("no data available from the search API")
	// ErrAnalysisFailed LLM 调用失败
	ErrAnalysisFailed = errors.New("error using the LLM")
)

// Analyzer 对搜索文本做流失分析
type Analyzer interface {
	Analyze(ctx context.Context, data, company, competitor string) (string, error)
}

// SearcherFactory 用本次请求的 key 创建搜索客户端
type SearcherFactory func(apiKey string) (search.Searcher, error)

// AnalyzerFactory 用本次请求的 key 创建 LLM 客户端
type AnalyzerFactory func(ctx context.Context, apiKey string) (Analyzer, error)

// AnalyzeInput 一次点击提交的全部输入
type AnalyzeInput struct {
	SearchAPIKey string
	LLMAPIKey    string
	Company      string
	Competitor   string
	Timeframe    string
}

// Source 分析引用的搜索结果
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Report 一次分析的结果，不做持久化
type Report struct {
	Company    string
	Competitor string
	Timeframe  string
	Query      string
	SourceText string
	Sources    []Source
	Analysis   string
	Reasons    []churn.ReasonCount
	Chart      string
	Steps      []string
}

// ChurnUseCase 搜索 -> 总结 -> 提取 -> 绘图 的线性流程
type ChurnUseCase struct {
	newSearcher SearcherFactory
	newAnalyzer AnalyzerFactory
	enricher    *search.Enricher
	searchCfg   config.SearchConfig
	defaultKeys AnalyzeInput
	now         func() time.Time
}

// NewChurnUseCase 创建流失分析用例；配置中的 key 作为表单留空时的兜底
func NewChurnUseCase(cfg *config.Config, newSearcher SearcherFactory, newAnalyzer AnalyzerFactory) *ChurnUseCase {
	uc := &ChurnUseCase{
		newSearcher: newSearcher,
		newAnalyzer: newAnalyzer,
		searchCfg:   cfg.Search,
		defaultKeys: AnalyzeInput{
			SearchAPIKey: cfg.Search.FallbackAPIKey(),
			LLMAPIKey:    cfg.LLM.APIKey,
		},
		now: time.Now,
	}
	if cfg.Search.FetchFullText {
		uc.enricher = search.NewEnricher(cfg.Search.MinContentLen)
	}
	return uc
}

// BuildQuery 生成搜索语句
func BuildQuery(company, competitor string) string {
	return fmt.Sprintf("churn reasons for %s to %s", company, competitor)
}

func (uc *ChurnUseCase) normalize(in AnalyzeInput) AnalyzeInput {
	in.SearchAPIKey = strings.TrimSpace(in.SearchAPIKey)
	in.LLMAPIKey = strings.TrimSpace(in.LLMAPIKey)
	in.Company = strings.TrimSpace(in.Company)
	in.Competitor = strings.TrimSpace(in.Competitor)
	in.Timeframe = strings.TrimSpace(in.Timeframe)

	if in.SearchAPIKey == "" {
		in.SearchAPIKey = uc.defaultKeys.SearchAPIKey
	}
	if in.LLMAPIKey == "" {
		in.LLMAPIKey = uc.defaultKeys.LLMAPIKey
	}
	if in.Company == "" {
		in.Company = config.DefaultCompany
	}
	if in.Competitor == "" {
		in.Competitor = config.DefaultCompetitor
	}
	if in.Timeframe == "" {
		in.Timeframe = config.DefaultTimeframe
	}
	return in
}

// Analyze 执行一次完整的流失分析。任何一步失败都直接返回，不重试。
// 返回错误时 Report 仍带有已完成的步骤说明，便于页面展示。
func (uc *ChurnUseCase) Analyze(ctx context.Context, raw AnalyzeInput) (*Report, error) {
	in := uc.normalize(raw)
	report := &Report{
		Company:    in.Company,
		Competitor: in.Competitor,
		Timeframe:  in.Timeframe,
		Query:      BuildQuery(in.Company, in.Competitor),
		Reasons:    []churn.ReasonCount{},
	}

	if in.SearchAPIKey == "" || in.LLMAPIKey == "" {
		return report, ErrMissingAPIKeys
	}

	// 1. 搜索
	report.Steps = append(report.Steps, fmt.Sprintf("Fetching data for %s and %s...", in.Company, in.Competitor))
	data, err := uc.fetch(ctx, in, report)
	if err != nil {
		logger.Log.Errorf("搜索失败 [%s]: %v", report.Query, err)
		return report, fmt.Errorf("%w: %w", ErrSearchFailed, err)
	}
	if data == "" {
		logger.Log.Warnf("搜索无结果 [%s]", report.Query)
		return report, ErrNoSearchData
	}
	report.SourceText = data

	// 2. 总结
	report.Steps = append(report.Steps, "Data fetched successfully! Analyzing reasons for churn...")
	analyzer, err := uc.newAnalyzer(ctx, in.LLMAPIKey)
	if err != nil {
		return report, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}
	analysis, err := analyzer.Analyze(ctx, data, in.Company, in.Competitor)
	if err != nil {
		logger.Log.Errorf("LLM 分析失败 [%s -> %s]: %v", in.Company, in.Competitor, err)
		return report, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}
	report.Analysis = analysis

	// 3. 提取与绘图
	report.Reasons = churn.CountReasons(analysis)
	chartHTML, err := chart.RenderBar(fmt.Sprintf("Churn reasons: %s to %s", in.Company, in.Competitor), report.Reasons)
	if err != nil {
		// 图表只是展示层，分析文本照常返回
		logger.Log.Errorf("渲染图表失败: %v", err)
	} else {
		report.Chart = chartHTML
	}

	logger.Log.Infof("分析完成 [%s -> %s]，提取到 %d 个原因", in.Company, in.Competitor, len(report.Reasons))
	return report, nil
}

func (uc *ChurnUseCase) fetch(ctx context.Context, in AnalyzeInput, report *Report) (string, error) {
	searcher, err := uc.newSearcher(in.SearchAPIKey)
	if err != nil {
		return "", err
	}

	req := &search.Request{
		Query:         report.Query,
		Topic:         "general",
		MaxResults:    uc.searchCfg.MaxResults,
		IncludeAnswer: true,
	}
	if start, end, ok := search.ParseTimeframe(in.Timeframe, uc.now()); ok {
		req.StartDate = start
		req.EndDate = end
	} else {
		logger.Log.Debugf("无法识别的时间范围 [%s]，不限定日期", in.Timeframe)
	}

	resp, err := searcher.Search(ctx, req)
	if err != nil {
		return "", err
	}
	uc.enricher.Enrich(ctx, resp)

	for _, r := range resp.Results {
		if r.URL == "" {
			continue
		}
		report.Sources = append(report.Sources, Source{Title: search.StripHTML(r.Title), URL: r.URL})
	}
	return search.Flatten(resp), nil
}
