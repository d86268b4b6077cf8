package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mocky70025/suiren/internal/config"
	obsmiddleware "github.com/mocky70025/suiren/internal/observability/logger"
	obsmetrics "github.com/mocky70025/suiren/internal/observability/metrics"
	"github.com/mocky70025/suiren/internal/payment"
	paymentdomain "github.com/mocky70025/suiren/internal/payment/domain"
	"github.com/mocky70025/suiren/internal/pendingpayment"
	pendingpaymentdomain "github.com/mocky70025/suiren/internal/pendingpayment/domain"
	"github.com/mocky70025/suiren/internal/points"
	pointsdomain "github.com/mocky70025/suiren/internal/points/domain"
	"github.com/mocky70025/suiren/internal/providers"
	"github.com/mocky70025/suiren/internal/providers/line"
	"github.com/mocky70025/suiren/internal/providers/paypay"
	"github.com/mocky70025/suiren/internal/providers/vision"
	"github.com/mocky70025/suiren/internal/receipt"
	receiptdomain "github.com/mocky70025/suiren/internal/receipt/domain"
	"github.com/mocky70025/suiren/internal/user"
	userdomain "github.com/mocky70025/suiren/internal/user/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	user.Module,
	payment.Module,
	points.Module,
	receipt.Module,
	pendingpayment.Module,
	providers.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, httpMetrics *obsmetrics.HTTPMetrics, registry *prometheus.Registry) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(log))
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	return r
}

func registerGin(log *zap.Logger, httpMetrics *obsmetrics.HTTPMetrics, registry *prometheus.Registry) *gin.Engine {
	return NewEngine(log, httpMetrics, registry)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
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
	engine     *gin.Engine
	cfg        config.Config
	log        *zap.Logger
	userSvc    userdomain.Service
	pointsSvc  pointsdomain.Service
	paymentSvc paymentdomain.Service
	receiptSvc receiptdomain.Service
	pendingSvc pendingpaymentdomain.Service
	paypay     paypay.Client
	notifier   line.Notifier
	vision     vision.Analyzer
	obsMetrics *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Log        *zap.Logger
	UserSvc    userdomain.Service
	PointsSvc  pointsdomain.Service
	PaymentSvc paymentdomain.Service
	ReceiptSvc receiptdomain.Service
	PendingSvc pendingpaymentdomain.Service
	PayPay     paypay.Client
	Notifier   line.Notifier
	Vision     vision.Analyzer
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		log:        p.Log.Named("http.server"),
		userSvc:    p.UserSvc,
		pointsSvc:  p.PointsSvc,
		paymentSvc: p.PaymentSvc,
		receiptSvc: p.ReceiptSvc,
		pendingSvc: p.PendingSvc,
		paypay:     p.PayPay,
		notifier:   p.Notifier,
		vision:     p.Vision,
		obsMetrics: p.ObsMetrics,
	}

	svc.registerAPIRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.POST("/register", s.Register)
	api.POST("/login", s.Login)

	// -------- Users --------
	users := api.Group("/users")
	users.GET("/:id", s.GetUser)
	users.GET("/:id/points", s.GetPoints)
	users.GET("/:id/payments", s.GetPaymentHistory)
	users.POST("/:id/payments", s.RecordPayment)
	users.PUT("/:id/paypay-id", s.LinkPayPayID)

	// -------- Receipts --------
	api.POST("/seller/receipts", s.SubmitReceipt)

	// -------- External payments --------
	api.POST("/payment-link", s.CreatePaymentLink)
	api.GET("/payment/status/:merchantPaymentId", s.CheckPaymentStatus)
	api.DELETE("/payment/:merchantPaymentId", s.CancelPaymentLink)

	api.POST("/line/webhook", s.HandleLINEWebhook)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/api/admin")

	admin.GET("/users", s.ListUsers)
	admin.GET("/pending-receipts", s.ListPendingReceipts)
	admin.POST("/receipts/:id/process", s.ProcessReceipt)
	admin.GET("/receipts", s.ListReceipts)
	admin.GET("/payments", s.ListPayments)
	admin.GET("/sellers/:id/earnings", s.SellerEarnings)
	admin.GET("/sellers/:id/transactions", s.SellerTransactions)
	admin.POST("/analyze-screenshot", s.AnalyzeScreenshot)
}
