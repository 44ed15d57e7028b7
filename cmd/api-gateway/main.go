package main

import (
	"context"
	"fmt"
	"log"
	"net/http/pprof"

	"github.com/gin-gonic/gin"

	"github.com/GamalAsraan/Timetable-generator-ATG/internal/engine"
	internalhandler "github.com/GamalAsraan/Timetable-generator-ATG/internal/handler"
	internalmiddleware "github.com/GamalAsraan/Timetable-generator-ATG/internal/middleware"
	"github.com/GamalAsraan/Timetable-generator-ATG/internal/repository"
	"github.com/GamalAsraan/Timetable-generator-ATG/internal/service"
	"github.com/GamalAsraan/Timetable-generator-ATG/pkg/cache"
	"github.com/GamalAsraan/Timetable-generator-ATG/pkg/config"
	"github.com/GamalAsraan/Timetable-generator-ATG/pkg/database"
	"github.com/GamalAsraan/Timetable-generator-ATG/pkg/jobs"
	"github.com/GamalAsraan/Timetable-generator-ATG/pkg/logger"
	corsmiddleware "github.com/GamalAsraan/Timetable-generator-ATG/pkg/middleware/cors"
	reqidmiddleware "github.com/GamalAsraan/Timetable-generator-ATG/pkg/middleware/requestid"
)

// @title Timetable Generator API
// @version 0.1.0
// @description Constraint-satisfaction backtracking + simulated-annealing timetable solver
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	metricsSvc := service.NewMetricsService()
	metricsHandler := internalhandler.NewMetricsHandler(metricsSvc)

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to initialise database", "error", err)
	}
	defer db.Close()

	cacheClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("cache disabled", "error", err)
		cacheClient = nil
	} else {
		defer cacheClient.Close()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)
	r.GET("/metrics/snapshot", metricsHandler.Snapshot)
	registerPprof(r)

	api := r.Group(cfg.APIPrefix)

	termRepo := repository.NewTermRepository(db)
	termSvc := service.NewTermService(termRepo, nil, logr)
	termHandler := internalhandler.NewTermHandler(termSvc)

	termRoutes := api.Group("/terms")
	termRoutes.GET("", termHandler.List)
	termRoutes.GET("/active", termHandler.GetActive)
	termRoutes.POST("", termHandler.Create)
	termRoutes.PUT("/:id", termHandler.Update)
	termRoutes.POST("/set-active", termHandler.SetActive)
	termRoutes.DELETE("/:id", termHandler.Delete)

	catalogRepo := repository.NewCatalogRepository(db)
	semesterScheduleRepo := repository.NewSemesterScheduleRepository(db)
	semesterSlotRepo := repository.NewSemesterScheduleSlotRepository(db)

	scheduleSvc := service.NewScheduleGeneratorService(
		catalogRepo,
		semesterScheduleRepo,
		semesterSlotRepo,
		db,
		cacheClient,
		metricsSvc,
		nil,
		logr,
	)
	if err := scheduleSvc.SetSolverDefaults(solverDefaults(cfg.Solver)); err != nil {
		logr.Sugar().Fatalw("invalid solver defaults", "error", err)
	}

	queueCfg := jobs.QueueConfig{
		Workers:    cfg.Scheduler.Workers,
		BufferSize: cfg.Scheduler.BufferSize,
		MaxRetries: cfg.Scheduler.MaxRetries,
		RetryDelay: cfg.Scheduler.RetryDelay,
		Logger:     logr,
	}
	annealQueue := jobs.NewQueue("anneal", scheduleSvc.RunAnnealJob, queueCfg)
	queueCtx, cancelQueue := context.WithCancel(context.Background())
	annealQueue.Start(queueCtx)
	defer func() {
		cancelQueue()
		annealQueue.Stop()
	}()
	scheduleSvc.AttachQueue(annealQueue)

	scheduleHandler := internalhandler.NewScheduleGeneratorHandler(scheduleSvc)

	timetables := api.Group("/timetables")
	timetables.POST("/generate", scheduleHandler.Generate)
	timetables.GET("/jobs/:id", scheduleHandler.JobStatus)
	timetables.DELETE("/jobs/:id", scheduleHandler.CancelJob)
	timetables.POST("/:jobId/save", scheduleHandler.Save)
	timetables.GET("", scheduleHandler.List)
	timetables.GET("/:id/rows", scheduleHandler.Rows)
	timetables.DELETE("/:id", scheduleHandler.Delete)
	timetables.GET("/:id/export.csv", scheduleHandler.ExportCSV)
	timetables.GET("/:id/export.pdf", scheduleHandler.ExportPDF)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

// solverDefaults translates the process configuration into the engine's
// baseline Config; per-request overrides are layered on top by the service.
func solverDefaults(cfg config.SolverConfig) engine.Config {
	out := engine.DefaultConfig()
	if cfg.MaxGroupCapacity > 0 {
		out.MaxGroupCapacity = cfg.MaxGroupCapacity
	}
	if len(cfg.ExcludedLectureSpaces) > 0 {
		excluded := make(map[string]struct{}, len(cfg.ExcludedLectureSpaces))
		for _, space := range cfg.ExcludedLectureSpaces {
			excluded[space] = struct{}{}
		}
		out.ExcludedLectureSpaces = excluded
	}
	out.Weights = engine.Weights{
		Gap:       cfg.WeightGap,
		BadTime:   cfg.WeightBadTime,
		Building:  cfg.WeightBuilding,
		Imbalance: cfg.WeightImbalance,
	}
	if cfg.AnnealingIterations > 0 {
		out.Annealing.Iterations = cfg.AnnealingIterations
	}
	if cfg.AnnealingInitialTemp > 0 {
		out.Annealing.InitialTemperature = cfg.AnnealingInitialTemp
	}
	if cfg.AnnealingCoolingRate > 0 && cfg.AnnealingCoolingRate < 1 {
		out.Annealing.CoolingRate = cfg.AnnealingCoolingRate
	}
	out.Seed = cfg.Seed
	return out
}

func registerPprof(r *gin.Engine) {
	group := r.Group("/debug/pprof")
	group.GET("/", gin.WrapF(pprof.Index))
	group.GET("/cmdline", gin.WrapF(pprof.Cmdline))
	group.GET("/profile", gin.WrapF(pprof.Profile))
	group.POST("/symbol", gin.WrapF(pprof.Symbol))
	group.GET("/symbol", gin.WrapF(pprof.Symbol))
	group.GET("/trace", gin.WrapF(pprof.Trace))
	group.GET("/allocs", gin.WrapH(pprof.Handler("allocs")))
	group.GET("/block", gin.WrapH(pprof.Handler("block")))
	group.GET("/goroutine", gin.WrapH(pprof.Handler("goroutine")))
	group.GET("/heap", gin.WrapH(pprof.Handler("heap")))
	group.GET("/mutex", gin.WrapH(pprof.Handler("mutex")))
	group.GET("/threadcreate", gin.WrapH(pprof.Handler("threadcreate")))
}
