package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/opendpho/epidash/internal/config"
	diseasedomain "github.com/opendpho/epidash/internal/disease/domain"
	facttabledomain "github.com/opendpho/epidash/internal/facttable/domain"
	importrundomain "github.com/opendpho/epidash/internal/importrun/domain"
	ingestdomain "github.com/opendpho/epidash/internal/ingest/domain"
	"github.com/opendpho/epidash/internal/observability"
	obsmiddleware "github.com/opendpho/epidash/internal/observability/logger"
	obstracing "github.com/opendpho/epidash/internal/observability/tracing"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config) *gin.Engine {
	return NewEngine(obsCfg)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
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
	db         *gorm.DB
	holder     *config.IngestionConfigHolder
	diseaseSvc diseasedomain.Service
	tableSvc   facttabledomain.Service
	ingestSvc  ingestdomain.Service
	runRepo    importrundomain.Repository
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	DB         *gorm.DB
	Holder     *config.IngestionConfigHolder
	DiseaseSvc diseasedomain.Service
	TableSvc   facttabledomain.Service
	IngestSvc  ingestdomain.Service
	RunRepo    importrundomain.Repository
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		db:         p.DB,
		holder:     p.Holder,
		diseaseSvc: p.DiseaseSvc,
		tableSvc:   p.TableSvc,
		ingestSvc:  p.IngestSvc,
		runRepo:    p.RunRepo,
	}

	s.registerAPIRoutes()
	s.registerAdminRoutes()

	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.GET("/diseases", s.ListDiseases)
	api.GET("/diseases/:code/table", s.ResolveDiseaseTable)
	api.GET("/diseases/:code/summary", s.DiseaseSummary)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/api/admin", s.AdminAuth())

	admin.POST("/diseases", s.CreateDisease)
	admin.POST("/fact-tables", s.ProvisionFactTable)
	admin.POST("/fact-tables/:code/import", s.ImportCasesCSV)
	admin.GET("/import-runs", s.ListImportRuns)
}
