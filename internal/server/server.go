package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/billingworks/subsync/internal/config"
	"github.com/billingworks/subsync/internal/plan"
	subscriptiondomain "github.com/billingworks/subsync/internal/subscription/domain"
	"github.com/billingworks/subsync/internal/webhook"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("server",
	fx.Provide(NewServer),
	fx.Invoke(RunHTTP),
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Cfg      config.Config
	Registry *prometheus.Registry

	Catalog         *plan.Catalog
	SubscriptionSvc subscriptiondomain.Service
	WebhookSvc      webhook.Service
}

type Server struct {
	db       *gorm.DB
	log      *zap.Logger
	cfg      config.Config
	registry *prometheus.Registry

	catalog         *plan.Catalog
	subscriptionSvc subscriptiondomain.Service
	webhookSvc      webhook.Service
}

func NewServer(p Params) *Server {
	return &Server{
		db:       p.DB,
		log:      p.Log.Named("server"),
		cfg:      p.Cfg,
		registry: p.Registry,

		catalog:         p.Catalog,
		subscriptionSvc: p.SubscriptionSvc,
		webhookSvc:      p.WebhookSvc,
	}
}

func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.requestLogger())
	router.Use(s.requestMetrics())

	router.GET("/healthz", s.Healthz)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	v1 := router.Group("/v1")
	{
		subscriptions := v1.Group("/subscriptions", s.AccountRequired())
		subscriptions.POST("/subscribe", s.Subscribe)
		subscriptions.GET("/status", s.Status)

		v1.POST("/webhooks/stripe", s.StripeWebhook)
	}

	return router
}

func RunHTTP(lc fx.Lifecycle, s *Server) {
	srv := &http.Server{
		Addr:              s.cfg.HTTP.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				s.log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					s.log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
