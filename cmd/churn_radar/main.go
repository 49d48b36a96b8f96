package main

import (
	"context"
	"flag"
	stdlog "log"
	"os"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"

	"github.com/iWorld-y/churn_radar/internal/biz"
	"github.com/iWorld-y/churn_radar/internal/config"
	"github.com/iWorld-y/churn_radar/internal/llm"
	"github.com/iWorld-y/churn_radar/internal/logger"
	"github.com/iWorld-y/churn_radar/internal/search"
	"github.com/iWorld-y/churn_radar/internal/search/factory"
	"github.com/iWorld-y/churn_radar/internal/server"
	"github.com/iWorld-y/churn_radar/internal/service"
)

// go build -ldflags "-X main.Version=x.y.z"
var (
	// Name 是服务的名称
	Name = "churn_radar"
	// Version 是服务的版本号
	Version string
	// flagconf 是配置文件的路径命令行参数
	flagconf string

	id, _ = os.Hostname()
)

func init() {
	flag.StringVar(&flagconf, "conf", "configs/config.yaml", "config path, eg: -conf config.yaml")
}

func main() {
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.LoadConfig(flagconf)
	if err != nil {
		stdlog.Fatalf("无法加载配置文件: %v", err)
	}

	// 2. 初始化日志
	if err := logger.InitLogger(cfg.Log.Level, cfg.Log.File); err != nil {
		stdlog.Fatalf("无法初始化日志: %v", err)
	}
	kl := log.With(logger.NewKratosLogger(logger.Log),
		"service.id", id,
		"service.name", Name,
		"service.version", Version,
	)

	// 3. 组装依赖
	limiter := llm.NewLimiter(cfg.Concurrency)
	logger.Log.Infof("限流器已配置: Limit=%.2f req/s, Burst=%d", float64(limiter.Limit()), limiter.Burst())

	uc := biz.NewChurnUseCase(cfg,
		func(apiKey string) (search.Searcher, error) {
			return factory.NewSearcher(cfg.Search, apiKey)
		},
		func(ctx context.Context, apiKey string) (biz.Analyzer, error) {
			a, err := llm.NewAnalyzer(ctx, cfg.LLM, apiKey, limiter)
			if err != nil {
				return nil, err
			}
			return a, nil
		},
	)
	svc := service.NewChurnService(uc, kl)
	hs := server.NewHTTPServer(cfg.Server, svc, kl)

	logger.Log.Infof("启动流失分析服务，监听 %s，搜索提供方 %s", cfg.Server.HTTP.Addr, cfg.Search.Provider)
	app := newApp(kl, hs)
	if err := app.Run(); err != nil {
		logger.Log.Fatalf("服务异常退出: %v", err)
	}
}

func newApp(logger log.Logger, hs *http.Server) *kratos.App {
	return kratos.New(
		kratos.ID(id),
		kratos.Name(Name),
		kratos.Version(Version),
		kratos.Metadata(map[string]string{}),
		kratos.Logger(logger),
		kratos.Server(hs),
	)
}
