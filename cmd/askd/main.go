package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/pvel/askd/internal/ai"
	"github.com/pvel/askd/internal/config"
	"github.com/pvel/askd/internal/db"
	"github.com/pvel/askd/internal/embedcache"
	"github.com/pvel/askd/internal/evallog"
	"github.com/pvel/askd/internal/handler"
	"github.com/pvel/askd/internal/ingest"
	"github.com/pvel/askd/internal/job"
	"github.com/pvel/askd/internal/middleware"
	"github.com/pvel/askd/internal/repo"
	"github.com/pvel/askd/internal/schedule"
	"github.com/pvel/askd/internal/semcache"
	"github.com/pvel/askd/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "askd",
		Short: "askd question answering server",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run askd server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, conn, err := setup(configPath)
			if err != nil {
				return err
			}
			return runServer(cfg, conn)
		},
	}

	ingestCmd := &cobra.Command{
		Use:   "ingest [files...]",
		Short: "index documents into the retrieval store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, conn, err := setup(configPath)
			if err != nil {
				return err
			}
			return runIngest(cmd.Context(), cfg, conn, args)
		},
	}

	rootCmd.AddCommand(runCmd, ingestCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func setup(configPath string) (*config.Config, *sql.DB, error) {
	if configPath == "" {
		return nil, nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

	conn, err := db.Open(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.ApplyMigrations(conn); err != nil {
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}
	return cfg, conn, nil
}

func buildManager(cfg *config.Config, conn *sql.DB) (*ai.Manager, error) {
	aiProvider, err := ai.NewProvider(cfg.AI.Provider, cfg.AI.Data)
	if err != nil {
		return nil, fmt.Errorf("init ai provider: %w", err)
	}
	embedProvider, err := ai.NewEmbedProvider(cfg.AI.EmbedProvider, cfg.AI.EmbedData)
	if err != nil {
		return nil, fmt.Errorf("init embed provider: %w", err)
	}

	generatorEntries := []ai.GeneratorEntry{{
		Name:      cfg.AI.Provider,
		Generator: ai.NewGenerator(aiProvider, cfg.AI.Model),
	}}
	embedderEntries := []ai.EmbedderEntry{{
		Name:     cfg.AI.EmbedProvider,
		Embedder: ai.NewEmbedder(embedProvider, cfg.AI.EmbedModel),
	}}
	for i, fb := range cfg.AI.Fallbacks {
		if fb.Model != "" {
			provider, err := ai.NewProvider(fb.Provider, fb.Data)
			if err != nil {
				return nil, fmt.Errorf("init fallback provider %d: %w", i, err)
			}
			generatorEntries = append(generatorEntries, ai.GeneratorEntry{
				Name:      fb.Provider,
				Generator: ai.NewGenerator(provider, fb.Model),
			})
		}
		if fb.EmbedModel != "" {
			provider, err := ai.NewEmbedProvider(fb.EmbedProvider, fb.EmbedData)
			if err != nil {
				return nil, fmt.Errorf("init fallback embed provider %d: %w", i, err)
			}
			embedderEntries = append(embedderEntries, ai.EmbedderEntry{
				Name:     fb.EmbedProvider,
				Embedder: ai.NewEmbedder(provider, fb.EmbedModel),
			})
		}
	}

	embedder := ai.NewGroupEmbedder(embedderEntries)
	embedder = embedcache.WrapDBCacheToEmbedder(embedder, repo.NewEmbeddingCacheRepo(conn))
	embedder = embedcache.WrapLruCacheToEmbedder(
		embedder,
		cfg.AI.EmbedCacheSize,
		time.Duration(cfg.AI.EmbedCacheTTL)*time.Hour,
	)

	return ai.NewManager(
		ai.NewGroupGenerator(generatorEntries),
		embedder,
		ai.ManagerConfig{
			Timeout:       cfg.AI.Timeout,
			MaxInputChars: cfg.AI.MaxInputChars,
		},
	), nil
}

func buildAnswerCache(cfg *config.Config) *semcache.Cache {
	var policies []semcache.Policy
	if cfg.Cache.TTLHours > 0 {
		policies = append(policies, semcache.TTL(time.Duration(cfg.Cache.TTLHours)*time.Hour))
	}
	if cfg.Cache.MaxEntries > 0 {
		policies = append(policies, semcache.MaxEntries(cfg.Cache.MaxEntries))
	}
	if len(policies) == 0 {
		return semcache.New(nil)
	}
	return semcache.New(semcache.Chain(policies...))
}

func runServer(cfg *config.Config, conn *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("ai_provider", cfg.AI.Provider),
		zap.String("embed_provider", cfg.AI.EmbedProvider),
		zap.Float64("cache_threshold", cfg.Cache.Threshold),
	)

	manager, err := buildManager(cfg, conn)
	if err != nil {
		return err
	}

	docRepo := repo.NewDocumentRepo(conn)
	resolver := service.NewResolverService(
		manager,
		buildAnswerCache(cfg),
		docRepo,
		evallog.NewJSONLSink(cfg.EvalLogPath),
		service.ResolverOptions{
			Threshold: cfg.Cache.Threshold,
			TopK:      cfg.Retrieval.TopK,
		},
	)
	ingestService := service.NewIngestService(manager, docRepo, ingest.NewChunker(0, 0), cfg.AI.EmbedDimensions)

	deps := handler.RouterDeps{
		Chat:      handler.NewChatHandler(resolver),
		Documents: handler.NewDocumentHandler(ingestService, docRepo),
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(cfg.CORSAllowlist),
			middleware.RateLimit(time.Duration(cfg.RateLimitSeconds)*time.Second),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewEmbeddingCacheCleanupJob(repo.NewEmbeddingCacheRepo(conn), cfg.AI.EmbedCacheTTL), "0 * * * *"); err != nil {
		return err
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	logutil.GetLogger(ctx).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}

func runIngest(ctx context.Context, cfg *config.Config, conn *sql.DB, files []string) error {
	manager, err := buildManager(cfg, conn)
	if err != nil {
		return err
	}
	ingestService := service.NewIngestService(manager, repo.NewDocumentRepo(conn), ingest.NewChunker(0, 0), cfg.AI.EmbedDimensions)

	logger := logutil.GetLogger(ctx)
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read %s: %w", file, err)
		}
		res, err := ingestService.IngestText(ctx, filepath.Base(file), string(content))
		if err != nil {
			return fmt.Errorf("ingest %s: %w", file, err)
		}
		logger.Info("file ingested",
			zap.String("file", file),
			zap.Int("chunks", res.Chunks),
			zap.Int64("removed", res.Removed),
		)
	}
	return nil
}
