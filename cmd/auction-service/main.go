package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"auctionex.com/internal/auction"
	"auctionex.com/internal/auction/mailout"
	repomysql "auctionex.com/internal/auction/repo/mysql"
	"auctionex.com/internal/transport/httpapi"
	"auctionex.com/internal/transport/ws"
	vipConfig "auctionex.com/pkg/config"
	"auctionex.com/pkg/logger"
	"auctionex.com/pkg/metrics"
	"auctionex.com/pkg/orm"
	"auctionex.com/pkg/safe"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const serviceName = "auction-service"

// staticTemplates 占位模板库。真实部署里物品系统通过
// auction.TemplateStore 注入，这里给个空实现兜底。
type staticTemplates map[uint32]*auction.ItemTemplate

func (s staticTemplates) Template(id uint32) *auction.ItemTemplate { return s[id] }

func main() {
	var cfg auction.Config
	if _, err := vipConfig.LoadAndWatch(serviceName, &cfg); err != nil {
		panic(err)
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	logger.Init(serviceName, cfg.LogLevel)
	defer logger.Sync()
	metrics.MustRegister()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db := orm.NewMySQL(&orm.Config{
		DSN:         cfg.DB.DSN,
		MaxIdle:     cfg.DB.MaxIdle,
		MaxOpen:     cfg.DB.MaxOpen,
		MaxLifetime: cfg.DB.MaxLifetime,
	})
	auctionRepo := repomysql.NewAuctionRepo(db)

	var mail auction.MailSink = mailout.LogSink{}
	if cfg.Nats.Enabled {
		sink, err := mailout.NewNatsSink(cfg.Nats.URL, cfg.Nats.Subject)
		if err != nil {
			logger.Fatal(ctx, "nats connect failed", zap.Error(err))
		}
		defer sink.Close()
		mail = sink
	}

	templates := staticTemplates{}
	reg := auction.NewRegistry(cfg.House, auctionRepo, mail, templates)

	hub := ws.NewHub(64)
	reg.RegisterObserver(hub)

	// 对外服务之前必须先重建完内存态
	if err := reg.Rehydrate(ctx, auctionRepo, templates); err != nil {
		logger.Fatal(ctx, "rehydrate failed", zap.Error(err))
	}

	eng := auction.NewEngine(reg)
	safe.GoCtx(ctx, eng.Run)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	httpapi.Routes(router, httpapi.NewHandler(eng, nil), hub)

	srv := &http.Server{Addr: cfg.HTTP.Addr, Handler: router}
	safe.Go(func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "http server failed", zap.Error(err))
		}
	})
	logger.Info(ctx, "auction service started", zap.String("addr", cfg.HTTP.Addr))

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	logger.Info(context.Background(), "auction service stopped")
}
