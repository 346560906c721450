package main

import (
	"context"

	"github.com/gin-gonic/gin"

	"ucode/ucode_go_query_engine_service/api"
	"ucode/ucode_go_query_engine_service/config"
	"ucode/ucode_go_query_engine_service/engine"
	"ucode/ucode_go_query_engine_service/export"
	"ucode/ucode_go_query_engine_service/pkg/jaeger"
	"ucode/ucode_go_query_engine_service/pkg/logger"
	psqlpool "ucode/ucode_go_query_engine_service/pool"
	"ucode/ucode_go_query_engine_service/storage/postgres"
)

func main() {
	cfg := config.Load()

	loggerLevel := logger.LevelDebug

	switch cfg.Environment {
	case config.DebugMode:
		loggerLevel = logger.LevelDebug
		gin.SetMode(gin.DebugMode)
	case config.TestMode:
		loggerLevel = logger.LevelDebug
		gin.SetMode(gin.TestMode)
	default:
		loggerLevel = logger.LevelInfo
		gin.SetMode(gin.ReleaseMode)
	}

	log := logger.NewLogger(cfg.ServiceName, loggerLevel)
	defer logger.Cleanup(log)
	log.Info("Service env", logger.Any("cfg", cfg))

	closer, err := jaeger.InitGlobalTracer(cfg.ServiceName, cfg.JaegerHostPort)
	if err != nil {
		log.Panic("jaeger.InitGlobalTracer", logger.Error(err))
	}
	defer closer.Close()

	ctx := context.Background()

	pool, err := psqlpool.New(ctx, cfg)
	if err != nil {
		log.Panic("psqlpool.New", logger.Error(err))
	}
	defer pool.Close()

	if err := postgres.Migrate(cfg); err != nil {
		log.Panic("postgres.Migrate", logger.Error(err))
	}

	schemas, err := postgres.NewMetadataLoader(pool, log).LoadSchemas(ctx)
	if err != nil {
		log.Panic("metadata.LoadSchemas", logger.Error(err))
	}

	registry := engine.NewSchemaRegistry()
	optimizer := postgres.NewSQLQueryOptimizer()
	for _, schema := range schemas {
		registry.RegisterObject(schema)
		optimizer.RegisterSchema(schema)
	}
	if err := registry.Graph().Validate(); err != nil {
		log.Panic("dependency graph validation", logger.Error(err))
	}

	compiler, err := engine.NewQueryCompiler(cfg.PlanCacheSize)
	if err != nil {
		log.Panic("engine.NewQueryCompiler", logger.Error(err))
	}
	registry.OnChange(compiler.ClearCache)

	driver := postgres.NewDriver(pool, optimizer, log)
	service := engine.NewQueryService(log, compiler, driver)
	analyzer := engine.NewQueryAnalyzer(registry)
	exporter := export.NewExporter(cfg, log, service)

	router := api.SetUpRouter(log, service, analyzer, exporter)

	log.Info("HTTP: Server being started...", logger.String("port", cfg.HTTPPort))

	if err := router.Run(cfg.HTTPPort); err != nil {
		log.Panic("router.Run", logger.Error(err))
	}
}
