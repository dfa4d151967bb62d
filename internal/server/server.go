package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	biddomain "github.com/rushr-app/rushr/internal/bid/domain"
	"github.com/rushr-app/rushr/internal/clock"
	"github.com/rushr-app/rushr/internal/config"
	connectdomain "github.com/rushr-app/rushr/internal/connect/domain"
	escrowdomain "github.com/rushr-app/rushr/internal/escrow/domain"
	jobdomain "github.com/rushr-app/rushr/internal/job/domain"
	notificationdomain "github.com/rushr-app/rushr/internal/notification/domain"
	"github.com/rushr-app/rushr/internal/observability"
	obsmiddleware "github.com/rushr-app/rushr/internal/observability/logger"
	obsmetrics "github.com/rushr-app/rushr/internal/observability/metrics"
	obstracing "github.com/rushr-app/rushr/internal/observability/tracing"
	"github.com/rushr-app/rushr/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    ":8080",
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server failed", zap.Error(err))
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
	engine          *gin.Engine
	cfg             config.Config
	db              *gorm.DB
	log             *zap.Logger
	genID           *snowflake.Node
	clock           clock.Clock
	escrowSvc       escrowdomain.Service
	bidSvc          biddomain.Service
	jobSvc          jobdomain.Service
	connectSvc      connectdomain.Service
	notificationSvc notificationdomain.Service
	paymentLimiter  *ratelimit.TokenBucket
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	DB              *gorm.DB
	Log             *zap.Logger
	GenID           *snowflake.Node
	Clock           clock.Clock
	EscrowSvc       escrowdomain.Service
	BidSvc          biddomain.Service
	JobSvc          jobdomain.Service
	ConnectSvc      connectdomain.Service
	NotificationSvc notificationdomain.Service
	PaymentLimiter  *ratelimit.TokenBucket `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		db:              p.DB,
		log:             p.Log.Named("server"),
		genID:           p.GenID,
		clock:           p.Clock,
		escrowSvc:       p.EscrowSvc,
		bidSvc:          p.BidSvc,
		jobSvc:          p.JobSvc,
		connectSvc:      p.ConnectSvc,
		notificationSvc: p.NotificationSvc,
		paymentLimiter:  p.PaymentLimiter,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Payments --------
	payments := api.Group("/payments")
	payments.POST("/create-hold", s.PaymentRateLimit(), s.CreateHold)
	payments.POST("/capture", s.PaymentRateLimit(), s.CapturePayment)
	payments.POST("/confirm-complete", s.PaymentRateLimit(), s.ConfirmComplete)
	payments.POST("/release", s.PaymentRateLimit(), s.ReleasePayment)
	payments.GET("/holds/:id", s.GetPaymentHold)

	// -------- Stripe --------
	api.POST("/stripe/webhook", s.HandleStripeWebhook)
	connect := api.Group("/stripe/connect")
	connect.POST("/create-account", s.CreateConnectAccount)
	connect.POST("/onboarding-link", s.CreateOnboardingLink)
	connect.POST("/check-status", s.CheckConnectStatus)

	// -------- Bids --------
	api.POST("/bids/accept", s.AcceptBid)
	api.POST("/bids/reject", s.RejectBid)

	// -------- Jobs --------
	api.GET("/jobs", s.ListJobs)
	api.GET("/jobs/:id", s.GetJob)
	api.POST("/jobs/:id/confirm-arrival", s.ConfirmArrival)

	// -------- Notifications --------
	api.GET("/notifications", s.ListNotifications)
}

func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	status, payload := mapError(err)
	switch {
	case status >= http.StatusInternalServerError:
		return "server_error", payload.Type
	case status >= http.StatusBadRequest:
		return "client_error", payload.Type
	default:
		return "", payload.Type
	}
}
