package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/churn_radar/internal/biz"
	"github.com/iWorld-y/churn_radar/internal/config"
	"github.com/iWorld-y/churn_radar/internal/search"
	"github.com/iWorld-y/churn_radar/internal/service"
)

type staticSearcher struct{ calls int }

func (s *staticSearcher) Search(context.Context, *search.Request) (*search.Response, error) {
	s.calls++
	return &search.Response{Results: []search.Result{
		{Title: "Moving to HubSpot", URL: "https://m.example", Content: "pricing complaints"},
	}}, nil
}

type staticAnalyzer struct{}

func (staticAnalyzer) Analyze(context.Context, string, string, string) (string, error) {
	return "- Pricing: 3\n- Complexity: 2\nPricing dominates.", nil
}

func newTestServer(t *testing.T) (http.Handler, *staticSearcher) {
	t.Helper()
	searcher := &staticSearcher{}
	uc := biz.NewChurnUseCase(&config.Config{},
		func(string) (search.Searcher, error) { return searcher, nil },
		func(context.Context, string) (biz.Analyzer, error) { return staticAnalyzer{}, nil },
	)
	svc := service.NewChurnService(uc, log.DefaultLogger)
	return NewHTTPServer(config.ServerConfig{HTTP: config.HTTPConfig{Timeout: "5s"}}, svc, log.DefaultLogger), searcher
}

func TestIndexPage(t *testing.T) {
	h, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `name="llm_api_key" type="password"`)
	assert.Contains(t, body, `name="search_api_key" type="password"`)
	assert.Contains(t, body, `value="Salesforce"`)
	assert.Contains(t, body, `value="HubSpot"`)
	assert.Contains(t, body, `value="last 6 months"`)
	assert.Contains(t, body, "Analyze Churn")
	assert.Contains(t, body, "falls back to the key configured on the server")
	assert.Equal(t, 2, strings.Count(body, `placeholder="Blank uses the server's configured key, if any"`))
	assert.NotContains(t, body, "Visualization")
}

func postForm(h http.Handler, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAnalyzeForm(t *testing.T) {
	h, _ := newTestServer(t)

	rec := postForm(h, url.Values{
		"llm_api_key":    {"sk"},
		"search_api_key": {"tvly"},
		"company":        {"Acme"},
		"competitor":     {"Globex"},
		"timeframe":      {"last 3 months"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Fetching data for Acme and Globex...")
	assert.Contains(t, body, "<h2>Analysis</h2>")
	assert.Contains(t, body, "Pricing dominates.")
	assert.Contains(t, body, "<td>Pricing</td><td>2</td>")
	assert.Contains(t, body, "<iframe srcdoc=")
	assert.NotContains(t, body, `value="sk"`, "密钥不应回显到页面")
}

func TestAnalyzeForm_MissingKeys(t *testing.T) {
	h, searcher := newTestServer(t)

	rec := postForm(h, url.Values{"company": {"Acme"}})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<div class="error">Please provide both the search API key and the LLM API key</div>`)
	assert.Zero(t, searcher.calls)
}

func TestAnalyzeForm_GetRedirects(t *testing.T) {
	h, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/analyze", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestAnalyzeAPI(t *testing.T) {
	h, _ := newTestServer(t)

	payload := `{"search_api_key":"tvly","llm_api_key":"sk","company":"Acme","competitor":"Globex"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var reply service.AnalyzeReply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	assert.Equal(t, "churn reasons for Acme to Globex", reply.Query)
	require.Len(t, reply.Reasons, 2)
	assert.Equal(t, "Pricing", reply.Reasons[0].Reason)
	assert.Equal(t, 2, reply.Reasons[0].Count)
}

func TestAnalyzeAPI_MissingKeys(t *testing.T) {
	h, searcher := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader(`{"company":"Acme"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "MISSING_API_KEYS")
	assert.Zero(t, searcher.calls)
}

func TestHealthz(t *testing.T) {
	h, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
