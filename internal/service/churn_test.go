package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/churn_radar/internal/biz"
	"github.com/iWorld-y/churn_radar/internal/config"
	"github.com/iWorld-y/churn_radar/internal/search"
)

type stubSearcher struct {
	resp *search.Response
	err  error
}

func (s *stubSearcher) Search(context.Context, *search.Request) (*search.Response, error) {
	return s.resp, s.err
}

type stubAnalyzer struct {
	analysis string
	err      error
}

func (s *stubAnalyzer) Analyze(context.Context, string, string, string) (string, error) {
	return s.analysis, s.err
}

func newService(searcher *stubSearcher, analyzer *stubAnalyzer) *ChurnService {
	uc := biz.NewChurnUseCase(&config.Config{},
		func(string) (search.Searcher, error) { return searcher, nil },
		func(context.Context, string) (biz.Analyzer, error) { return analyzer, nil },
	)
	return NewChurnService(uc, log.DefaultLogger)
}

func okSearcher() *stubSearcher {
	return &stubSearcher{resp: &search.Response{Results: []search.Result{
		{Title: "t", URL: "https://t.example", Content: "people leave over price"},
	}}}
}

func keyedRequest() *AnalyzeRequest {
	return &AnalyzeRequest{SearchAPIKey: "s", LLMAPIKey: "l", Company: "Acme", Competitor: "Globex"}
}

func TestChurnService_Analyze(t *testing.T) {
	svc := newService(okSearcher(), &stubAnalyzer{analysis: "- Price: 2\nPrice again"})

	reply, err := svc.Analyze(context.Background(), keyedRequest())
	require.NoError(t, err)

	assert.Equal(t, "churn reasons for Acme to Globex", reply.Query)
	assert.Equal(t, "last 6 months", reply.Timeframe)
	require.Len(t, reply.Reasons, 1)
	assert.Equal(t, "Price", reply.Reasons[0].Reason)
	assert.Equal(t, 2, reply.Reasons[0].Count)
	assert.Equal(t, []biz.Source{{Title: "t", URL: "https://t.example"}}, reply.Sources)
}

func TestChurnService_AnalyzeErrors(t *testing.T) {
	tests := []struct {
		name     string
		req      *AnalyzeRequest
		searcher *stubSearcher
		analyzer *stubAnalyzer
		code     int
		reason   string
	}{
		{"missing keys", &AnalyzeRequest{}, okSearcher(), &stubAnalyzer{}, 400, "MISSING_API_KEYS"},
		{"no data", keyedRequest(), &stubSearcher{resp: &search.Response{}}, &stubAnalyzer{}, 404, "NO_SEARCH_DATA"},
		{"search failed", keyedRequest(), &stubSearcher{err: fmt.Errorf("boom")}, &stubAnalyzer{}, 502, "SEARCH_FAILED"},
		{"analysis failed", keyedRequest(), okSearcher(), &stubAnalyzer{err: fmt.Errorf("quota")}, 502, "ANALYSIS_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newService(tt.searcher, tt.analyzer).Analyze(context.Background(), tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.Code(err))
			assert.Equal(t, tt.reason, errors.Reason(err))
		})
	}
}

func TestChurnService_AnalyzePage(t *testing.T) {
	svc := newService(okSearcher(), &stubAnalyzer{analysis: "- Price: 2"})

	page := svc.AnalyzePage(context.Background(), keyedRequest())
	assert.True(t, page.Submitted)
	assert.Empty(t, page.Error)
	assert.Equal(t, "Acme", page.Company)
	assert.Equal(t, "- Price: 2", page.Analysis)
	assert.NotEmpty(t, page.Chart)
	assert.Len(t, page.Steps, 2)
}

func TestChurnService_AnalyzePageShowsSingleMessage(t *testing.T) {
	svc := newService(okSearcher(), &stubAnalyzer{})

	page := svc.AnalyzePage(context.Background(), &AnalyzeRequest{Company: "Acme"})
	assert.Equal(t, "Please provide both the search API key and the LLM API key", page.Error)
	assert.Empty(t, page.Analysis)
	assert.Empty(t, page.Chart)
	assert.Equal(t, "Acme", page.Company)
}

func TestToKratosError_Default(t *testing.T) {
	err := toKratosError(stderrors.New("weird"))
	assert.Equal(t, 500, errors.Code(err))

	err = toKratosError(fmt.Errorf("wrap: %w", context.DeadlineExceeded))
	assert.Equal(t, 504, errors.Code(err))
}

func TestDefaultPage(t *testing.T) {
	p := DefaultPage()
	assert.Equal(t, "Salesforce", p.Company)
	assert.Equal(t, "HubSpot", p.Competitor)
	assert.False(t, p.Submitted)
}
