package service

import (
	"context"
	stderrors "errors"
	"net/http"
	"unicode"
	"unicode/utf8"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/churn_radar/internal/biz"
	"github.com/iWorld-y/churn_radar/internal/churn"
	"github.com/iWorld-y/churn_radar/internal/config"
)

// AnalyzeRequest 页面表单与 JSON 接口共用的请求
type AnalyzeRequest struct {
	SearchAPIKey string `json:"search_api_key"`
	LLMAPIKey    string `json:"llm_api_key"`
	Company      string `json:"company"`
	Competitor   string `json:"competitor"`
	Timeframe    string `json:"timeframe"`
}

// AnalyzeReply JSON 接口的返回
type AnalyzeReply struct {
	Company    string              `json:"company"`
	Competitor string              `json:"competitor"`
	Timeframe  string              `json:"timeframe"`
	Query      string              `json:"query"`
	Analysis   string              `json:"analysis"`
	Reasons    []churn.ReasonCount `json:"reasons"`
	Sources    []biz.Source        `json:"sources"`
}

// PageData 页面渲染数据
type PageData struct {
	Company    string
	Competitor string
	Timeframe  string
	Submitted  bool
	Steps      []string
	Error      string
	Analysis   string
	Reasons    []churn.ReasonCount
	Sources    []biz.Source
	Chart      string
}

// DefaultPage 首次打开页面时的表单默认值
func DefaultPage() *PageData {
	return &PageData{
		Company:    config.DefaultCompany,
		Competitor: config.DefaultCompetitor,
		Timeframe:  config.DefaultTimeframe,
	}
}

// ChurnService 流失分析服务
type ChurnService struct {
	uc  *biz.ChurnUseCase
	log *log.Helper
}

// NewChurnService 创建流失分析服务
func NewChurnService(uc *biz.ChurnUseCase, logger log.Logger) *ChurnService {
	return &ChurnService{uc: uc, log: log.NewHelper(logger)}
}

func (req *AnalyzeRequest) input() biz.AnalyzeInput {
	return biz.AnalyzeInput{
		SearchAPIKey: req.SearchAPIKey,
		LLMAPIKey:    req.LLMAPIKey,
		Company:      req.Company,
		Competitor:   req.Competitor,
		Timeframe:    req.Timeframe,
	}
}

// Analyze JSON 接口，错误转换为 kratos 错误
func (s *ChurnService) Analyze(ctx context.Context, req *AnalyzeRequest) (*AnalyzeReply, error) {
	report, err := s.uc.Analyze(ctx, req.input())
	if err != nil {
		return nil, toKratosError(err)
	}
	return &AnalyzeReply{
		Company:    report.Company,
		Competitor: report.Competitor,
		Timeframe:  report.Timeframe,
		Query:      report.Query,
		Analysis:   report.Analysis,
		Reasons:    report.Reasons,
		Sources:    report.Sources,
	}, nil
}

// AnalyzePage 页面提交，任何错误都只变成一条提示信息
func (s *ChurnService) AnalyzePage(ctx context.Context, req *AnalyzeRequest) *PageData {
	report, err := s.uc.Analyze(ctx, req.input())
	page := &PageData{
		Company:    report.Company,
		Competitor: report.Competitor,
		Timeframe:  report.Timeframe,
		Submitted:  true,
		Steps:      report.Steps,
		Analysis:   report.Analysis,
		Reasons:    report.Reasons,
		Sources:    report.Sources,
		Chart:      report.Chart,
	}
	if err != nil {
		s.log.WithContext(ctx).Warnf("analyze churn failed: %v", err)
		page.Error = userMessage(err)
	}
	return page
}

func toKratosError(err error) error {
	msg := userMessage(err)
	switch {
	case stderrors.Is(err, biz.ErrMissingAPIKeys):
		return errors.BadRequest("MISSING_API_KEYS", msg)
	case stderrors.Is(err, biz.ErrNoSearchData):
		return errors.NotFound("NO_SEARCH_DATA", msg)
	case stderrors.Is(err, biz.ErrSearchFailed):
		return errors.New(http.StatusBadGateway, "SEARCH_FAILED", msg)
	case stderrors.Is(err, biz.ErrAnalysisFailed):
		return errors.New(http.StatusBadGateway, "ANALYSIS_FAILED", msg)
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.New(http.StatusGatewayTimeout, "TIMEOUT", msg)
	default:
		return errors.InternalServer("INTERNAL", msg)
	}
}

// userMessage 首字母大写后作为页面提示
func userMessage(err error) string {
	msg := err.Error()
	r, size := utf8.DecodeRuneInString(msg)
	if r == utf8.RuneError {
		return msg
	}
	return string(unicode.ToUpper(r)) + msg[size:]
}
