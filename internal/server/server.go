package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/campustix/campustix/internal/config"
	"github.com/campustix/campustix/internal/event"
	eventdomain "github.com/campustix/campustix/internal/event/domain"
	"github.com/campustix/campustix/internal/notification"
	obstracing "github.com/campustix/campustix/internal/observability/tracing"
	"github.com/campustix/campustix/internal/order"
	orderdomain "github.com/campustix/campustix/internal/order/domain"
	"github.com/campustix/campustix/internal/payment"
	paymentdomain "github.com/campustix/campustix/internal/payment/domain"
	"github.com/campustix/campustix/internal/payout"
	payoutdomain "github.com/campustix/campustix/internal/payout/domain"
	"github.com/campustix/campustix/internal/providers/email"
	"github.com/campustix/campustix/internal/ratelimit"
	"github.com/campustix/campustix/internal/ticket"
	ticketdomain "github.com/campustix/campustix/internal/ticket/domain"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	event.Module,
	order.Module,
	ticket.Module,
	payment.Module,
	payout.Module,
	notification.Module,
	email.Module,
	ratelimit.Module,
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config) *gin.Engine {
	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSAllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodOptions},
		AllowHeaders: []string{"Content-Type", HeaderActorID, HeaderActorRole, HeaderActorEmail},
		MaxAge:       12 * time.Hour,
	}))
	r.Use(ActorContext())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type Params struct {
	fx.In

	Engine     *gin.Engine
	Log        *zap.Logger
	EventSvc   eventdomain.Service
	OrderSvc   orderdomain.Service
	PaymentSvc paymentdomain.Service
	TicketSvc  ticketdomain.Service
	PayoutSvc  payoutdomain.Service
	Limiter    *ratelimit.TokenBucket `optional:"true"`
}

type Server struct {
	engine     *gin.Engine
	log        *zap.Logger
	eventSvc   eventdomain.Service
	orderSvc   orderdomain.Service
	paymentSvc paymentdomain.Service
	ticketSvc  ticketdomain.Service
	payoutSvc  payoutdomain.Service
	limiter    *ratelimit.TokenBucket
}

func NewServer(p Params) *Server {
	s := &Server{
		engine:     p.Engine,
		log:        p.Log.Named("http.server"),
		eventSvc:   p.EventSvc,
		orderSvc:   p.OrderSvc,
		paymentSvc: p.PaymentSvc,
		ticketSvc:  p.TicketSvc,
		payoutSvc:  p.PayoutSvc,
		limiter:    p.Limiter,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api/v1")

	events := api.Group("/events")
	events.GET("/:id", s.getEvent)
	events.POST("", RequireActor(), s.createEvent)
	events.PATCH("/:id/status", RequireActor(), s.updateEventStatus)
	events.POST("/:id/ticket-types", RequireActor(), s.addTicketType)

	api.POST("/orders", s.placeOrder)
	api.GET("/orders/:id", s.getOrder)

	api.POST("/payments/confirm",
		RateLimit(s.limiter, s.log, "payments.confirm", 5, 10),
		s.confirmPayment,
	)

	tickets := api.Group("/tickets")
	tickets.GET("/:id", s.resolveTicket)
	tickets.POST("/:id/check-in",
		RequireActor(),
		RateLimit(s.limiter, s.log, "tickets.checkin", 20, 40),
		s.checkInTicket,
	)

	payouts := api.Group("/payouts", RequireActor())
	payouts.GET("/balance", s.getBalance)
	payouts.POST("/withdrawals", s.submitWithdrawal)
	payouts.POST("/withdrawals/:id/approve", s.approveWithdrawal)
	payouts.POST("/withdrawals/:id/reject", s.rejectWithdrawal)
	payouts.PUT("/bank", s.upsertBankDetails)
	payouts.POST("/bank/verify", s.verifyBank)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.Int("port", cfg.Port))
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
