// Package server exposes the engine over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	auditdomain "github.com/heraerp/heracore/internal/audit/domain"
	"github.com/heraerp/heracore/internal/authorization"
	"github.com/heraerp/heracore/internal/config"
	entitydomain "github.com/heraerp/heracore/internal/entity/domain"
	identitydomain "github.com/heraerp/heracore/internal/identity/domain"
	obsmetrics "github.com/heraerp/heracore/internal/observability/metrics"
	organizationdomain "github.com/heraerp/heracore/internal/organization/domain"
	"github.com/heraerp/heracore/internal/ratelimit"
	relationshipdomain "github.com/heraerp/heracore/internal/relationship/domain"
	transactiondomain "github.com/heraerp/heracore/internal/transaction/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(CorrelationMiddleware())
	r.Use(LoggingMiddleware(log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	genID           *snowflake.Node
	authzSvc        authorization.Service
	auditSvc        auditdomain.Service
	organizationSvc organizationdomain.Service
	entitySvc       entitydomain.Service
	relationshipSvc relationshipdomain.Service
	transactionSvc  transactiondomain.Service
	identitySvc     identitydomain.Service
	obsMetrics      *obsmetrics.Metrics
	postLimiter     *ratelimit.PostLimiter
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	GenID           *snowflake.Node
	AuthzSvc        authorization.Service
	AuditSvc        auditdomain.Service
	OrganizationSvc organizationdomain.Service
	EntitySvc       entitydomain.Service
	RelationshipSvc relationshipdomain.Service
	TransactionSvc  transactiondomain.Service
	IdentitySvc     identitydomain.Service
	ObsMetrics      *obsmetrics.Metrics    `optional:"true"`
	PostLimiter     *ratelimit.PostLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		genID:           p.GenID,
		authzSvc:        p.AuthzSvc,
		auditSvc:        p.AuditSvc,
		organizationSvc: p.OrganizationSvc,
		entitySvc:       p.EntitySvc,
		relationshipSvc: p.RelationshipSvc,
		transactionSvc:  p.TransactionSvc,
		identitySvc:     p.IdentitySvc,
		obsMetrics:      p.ObsMetrics,
		postLimiter:     p.PostLimiter,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1", s.ActorRequired())

	orgs := api.Group("/organizations")
	orgs.POST("", s.ProvisionOrganization)
	orgs.GET("/:org_id", s.OrgScoped(authorization.ObjectOrganization, authorization.ActionOrganizationView), s.GetOrganization)

	scoped := api.Group("/organizations/:org_id")

	entities := scoped.Group("/entities")
	entities.POST("", s.OrgScoped(authorization.ObjectEntity, authorization.ActionEntityUpsert), s.UpsertEntity)
	entities.GET("", s.OrgScoped(authorization.ObjectEntity, authorization.ActionEntityView), s.ReadEntities)
	entities.GET("/:entity_id", s.OrgScoped(authorization.ObjectEntity, authorization.ActionEntityView), s.GetEntity)
	entities.DELETE("/:entity_id", s.OrgScoped(authorization.ObjectEntity, authorization.ActionEntityDelete), s.DeleteEntity)
	entities.GET("/integrity", s.OrgScoped(authorization.ObjectEntity, authorization.ActionEntityView), s.EntityIntegrity)

	relationships := scoped.Group("/relationships")
	relationships.POST("", s.OrgScoped(authorization.ObjectRelationship, authorization.ActionRelationshipUpsert), s.UpsertRelationship)
	relationships.GET("", s.OrgScoped(authorization.ObjectRelationship, authorization.ActionRelationshipView), s.QueryRelationships)
	relationships.DELETE("/:relationship_id", s.OrgScoped(authorization.ObjectRelationship, authorization.ActionRelationshipDeactivate), s.DeactivateRelationship)

	transactions := scoped.Group("/transactions")
	transactions.POST("", s.OrgScoped(authorization.ObjectTransaction, authorization.ActionTransactionPost), s.PostTransaction)
	transactions.GET("", s.OrgScoped(authorization.ObjectTransaction, authorization.ActionTransactionView), s.ListTransactions)
	transactions.GET("/:transaction_id", s.OrgScoped(authorization.ObjectTransaction, authorization.ActionTransactionView), s.GetTransaction)
	transactions.POST("/:transaction_id/reverse", s.OrgScoped(authorization.ObjectTransaction, authorization.ActionTransactionReverse), s.ReverseTransaction)

	scoped.POST("/members", s.OrgScoped(authorization.ObjectIdentity, authorization.ActionIdentityOnboard), s.OnboardMember)
	scoped.GET("/audit-logs", s.OrgScoped(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.ListAuditLogs)

	api.GET("/identity/introspect", s.Introspect)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
