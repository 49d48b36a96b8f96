package server

import (
	"context"
	"embed"
	"html/template"
	nethttp "net/http"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"

	"github.com/iWorld-y/churn_radar/internal/config"
	"github.com/iWorld-y/churn_radar/internal/service"
)

//go:embed assets/*
var assets embed.FS

var pageTpl = template.Must(template.ParseFS(assets, "assets/index.html"))

const operationAnalyze = "/churn.v1.Churn/Analyze"

// NewHTTPServer 创建 HTTP 服务：单页表单、表单提交、JSON 接口和健康检查
func NewHTTPServer(c config.ServerConfig, s *service.ChurnService, logger log.Logger) *http.Server {
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
		),
	}
	if c.HTTP.Addr != "" {
		opts = append(opts, http.Address(c.HTTP.Addr))
	}
	if c.HTTP.Timeout != "" {
		if d, err := time.ParseDuration(c.HTTP.Timeout); err == nil {
			opts = append(opts, http.Timeout(d))
		}
	}

	srv := http.NewServer(opts...)
	helper := log.NewHelper(logger)

	srv.HandleFunc("/", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.URL.Path != "/" {
			nethttp.NotFound(w, r)
			return
		}
		renderPage(w, helper, service.DefaultPage())
	})

	srv.HandleFunc("/analyze", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			nethttp.Redirect(w, r, "/", nethttp.StatusSeeOther)
			return
		}
		if err := r.ParseForm(); err != nil {
			nethttp.Error(w, "invalid form", nethttp.StatusBadRequest)
			return
		}
		req := &service.AnalyzeRequest{
			SearchAPIKey: r.PostFormValue("search_api_key"),
			LLMAPIKey:    r.PostFormValue("llm_api_key"),
			Company:      r.PostFormValue("company"),
			Competitor:   r.PostFormValue("competitor"),
			Timeframe:    r.PostFormValue("timeframe"),
		}
		renderPage(w, helper, s.AnalyzePage(r.Context(), req))
	})

	srv.HandleFunc("/healthz", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	route := srv.Route("/")
	route.POST("/api/v1/analyze", analyzeHandler(s))

	return srv
}

func analyzeHandler(s *service.ChurnService) http.HandlerFunc {
	return func(ctx http.Context) error {
		var in service.AnalyzeRequest
		if err := ctx.Bind(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, operationAnalyze)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return s.Analyze(ctx, req.(*service.AnalyzeRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	}
}

func renderPage(w nethttp.ResponseWriter, helper *log.Helper, data *service.PageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTpl.Execute(w, data); err != nil {
		helper.Errorf("render page failed: %v", err)
	}
}
