package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/saldotech/saldo/internal/category"
	categorydomain "github.com/saldotech/saldo/internal/category/domain"
	"github.com/saldotech/saldo/internal/cloudmetrics"
	"github.com/saldotech/saldo/internal/config"
	"github.com/saldotech/saldo/internal/dashboard"
	dashboarddomain "github.com/saldotech/saldo/internal/dashboard/domain"
	"github.com/saldotech/saldo/internal/embedding"
	"github.com/saldotech/saldo/internal/llm"
	"github.com/saldotech/saldo/internal/merchant"
	merchantdomain "github.com/saldotech/saldo/internal/merchant/domain"
	"github.com/saldotech/saldo/internal/observability"
	obslogger "github.com/saldotech/saldo/internal/observability/logger"
	obsmetrics "github.com/saldotech/saldo/internal/observability/metrics"
	"github.com/saldotech/saldo/internal/ratelimit"
	"github.com/saldotech/saldo/internal/transaction"
	txndomain "github.com/saldotech/saldo/internal/transaction/domain"
	"github.com/saldotech/saldo/internal/upload"
	uploaddomain "github.com/saldotech/saldo/internal/upload/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	cloudmetrics.Module,
	fx.Provide(registerGin),
	category.Module,
	merchant.Module,
	transaction.Module,
	llm.Module,
	embedding.Module,
	upload.Module,
	dashboard.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, registry *prometheus.Registry, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	return r
}

func registerGin(obsCfg observability.Config, registry *prometheus.Registry, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, registry, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	db            *gorm.DB
	uploadSvc     uploaddomain.Service
	txnSvc        txndomain.Service
	merchantSvc   merchantdomain.Service
	categorySvc   categorydomain.Service
	dashboardSvc  dashboarddomain.Service
	llmClient     *llm.Client
	uploadLimiter *ratelimit.TokenBucket
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	DB           *gorm.DB
	UploadSvc    uploaddomain.Service
	TxnSvc       txndomain.Service
	MerchantSvc  merchantdomain.Service
	CategorySvc  categorydomain.Service
	DashboardSvc dashboarddomain.Service
	LLMClient    *llm.Client
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		db:            p.DB,
		uploadSvc:     p.UploadSvc,
		txnSvc:        p.TxnSvc,
		merchantSvc:   p.MerchantSvc,
		categorySvc:   p.CategorySvc,
		dashboardSvc:  p.DashboardSvc,
		llmClient:     p.LLMClient,
		uploadLimiter: ratelimit.NewTokenBucket(uploadSubmitRate, uploadSubmitBurst),
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	s.engine.GET("/ready", s.Ready)

	api := s.engine.Group("/api")

	// -------- Uploads --------
	api.POST("/uploads", s.UploadRateLimit(), s.SubmitUpload)
	api.GET("/uploads/:id", s.GetUploadStatus)

	// -------- Transactions --------
	api.GET("/transactions", s.ListTransactions)
	api.DELETE("/transactions/:id", s.DeleteTransaction)

	// -------- Merchants --------
	api.GET("/merchants", s.ListMerchants)
	api.PATCH("/merchants/:id", s.UpdateMerchantCategory)

	// -------- Categories --------
	api.GET("/categories", s.ListCategories)

	// -------- LLM --------
	api.GET("/llm/check", s.LLMCheck)

	// -------- Dashboard --------
	api.GET("/dashboard/summary", s.DashboardSummary)
	api.GET("/dashboard/spending-by-category", s.DashboardSpendingByCategory)
	api.GET("/dashboard/monthly-trend", s.DashboardMonthlyTrend)
	api.GET("/dashboard/top-merchants", s.DashboardTopMerchants)
	api.GET("/dashboard/currency-breakdown", s.DashboardCurrencyBreakdown)
}

// Ready answers only after a database round trip, so orchestrators stop
// routing to an instance whose pool is gone.
func (s *Server) Ready(c *gin.Context) {
	var one int
	if err := s.db.WithContext(c.Request.Context()).Raw(`SELECT 1`).Scan(&one).Error; err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
