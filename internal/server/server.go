package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	auditdomain "github.com/smallbiznis/tixora/internal/audit/domain"
	"github.com/smallbiznis/tixora/internal/clock"
	"github.com/smallbiznis/tixora/internal/config"
	discountdomain "github.com/smallbiznis/tixora/internal/discount/domain"
	invitedomain "github.com/smallbiznis/tixora/internal/invitecode/domain"
	"github.com/smallbiznis/tixora/internal/observability"
	obsmiddleware "github.com/smallbiznis/tixora/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/tixora/internal/observability/metrics"
	obstracing "github.com/smallbiznis/tixora/internal/observability/tracing"
	"github.com/smallbiznis/tixora/internal/pricing"
	ticketdomain "github.com/smallbiznis/tixora/internal/ticket/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(*Server) {}),
	fx.Invoke(RunHTTP),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:    obsCfg.Debug(),
		Classify: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func RunHTTP(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
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

type quoter interface {
	Quote(ctx context.Context, ticketTypeID snowflake.ID, at time.Time) (*pricing.Quote, error)
}

type Server struct {
	engine      *gin.Engine
	clock       clock.Clock
	discountSvc discountdomain.Service
	inviteSvc   invitedomain.Service
	ticketSvc   ticketdomain.Service
	pricing     quoter
	auditSvc    auditdomain.Service
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Clock       clock.Clock
	DiscountSvc discountdomain.Service
	InviteSvc   invitedomain.Service
	TicketSvc   ticketdomain.Service
	Pricing     *pricing.Resolver
	AuditSvc    auditdomain.Service
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:      p.Gin,
		clock:       p.Clock,
		discountSvc: p.DiscountSvc,
		inviteSvc:   p.InviteSvc,
		ticketSvc:   p.TicketSvc,
		pricing:     p.Pricing,
		auditSvc:    p.AuditSvc,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api", UserIdentity())

	// -------- Pricing (anonymous) --------
	api.GET("/ticket-types/:id/quote", s.QuoteTicketType)
	api.GET("/ticket-types/:id/discount", s.GetActiveDiscount)

	authed := api.Group("", RequireUser())

	// -------- Discounts --------
	authed.POST("/discounts", s.CreateDiscount)
	authed.GET("/discounts", s.ListDiscounts)
	authed.GET("/discounts/:id", s.GetDiscountByID)
	authed.PATCH("/discounts/:id", s.UpdateDiscount)
	authed.DELETE("/discounts/:id", s.DeleteDiscount)

	// -------- Invite codes --------
	authed.POST("/invite-codes", s.IssueInviteCode)
	authed.GET("/invite-codes", s.ListInviteCodes)
	authed.POST("/invite-codes/validate", s.ValidateInviteCode)
	authed.POST("/invite-codes/redeem", s.RedeemInviteCode)
	authed.GET("/invite-codes/:id", s.GetInviteCodeByID)
	authed.POST("/invite-codes/:id/revoke", s.RevokeInviteCode)

	// -------- Tickets --------
	authed.POST("/tickets", s.PurchaseTicket)
	authed.GET("/tickets", s.ListMyTickets)
	authed.GET("/tickets/:id", s.GetTicketByID)

	// -------- Audit --------
	authed.GET("/audit-logs", s.ListAuditLogs)
}
