// Package wire 组装应用依赖
package wire

import (
	"context"
	"fmt"
	"strings"

	"book-engine/internal/application/workspace"
	"book-engine/internal/config"
	"book-engine/internal/domain/service"
	"book-engine/internal/infrastructure/llm"
	"book-engine/internal/infrastructure/lock"
	"book-engine/internal/infrastructure/persistence/jsonfs"
	"book-engine/internal/infrastructure/persistence/redis"
	"book-engine/internal/interfaces/http/handler"
	"book-engine/internal/interfaces/http/router"
	workflowprompt "book-engine/internal/workflow/prompt"
	"book-engine/pkg/logger"
)

// DataLayer 数据层依赖容器
type DataLayer struct {
	Store    *jsonfs.Client
	Books    *jsonfs.BookRepository
	Lore     *jsonfs.LoreRepository
	Outlines *jsonfs.OutlineRepository
	Chapters *jsonfs.ChapterRepository
	Styles   *jsonfs.StyleRepository
	Settings *jsonfs.SettingsRepository

	// Redis 未启用时为 nil
	RedisClient *redis.Client
}

// Services 应用层服务容器
type Services struct {
	Workspace  *workspace.Service
	Planner    *workspace.OutlinePlanner
	Reconciler *workspace.LoreReconciler
	Generator  *workspace.ChapterGenerator
	Styles     *workspace.StyleService
	Settings   *workspace.SettingsService
}

// InitializeDataLayer 初始化数据层
func InitializeDataLayer(ctx context.Context, cfg *config.Config) (*DataLayer, func(), error) {
	store, err := jsonfs.NewClient(ctx, cfg.Storage.DataDir)
	if err != nil {
		return nil, nil, err
	}
	redisClient, cleanup, err := ProvideRedisClientOptional(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	return &DataLayer{
		Store:       store,
		Books:       jsonfs.NewBookRepository(store),
		Lore:        jsonfs.NewLoreRepository(store),
		Outlines:    jsonfs.NewOutlineRepository(store),
		Chapters:    jsonfs.NewChapterRepository(store),
		Styles:      jsonfs.NewStyleRepository(store),
		Settings:    jsonfs.NewSettingsRepository(store),
		RedisClient: redisClient,
	}, cleanup, nil
}

// InitializeServices 在数据层之上组装应用服务
func InitializeServices(ctx context.Context, cfg *config.Config, data *DataLayer) (*Services, error) {
	genOpts := ProvideGenerationOptions(cfg)
	llmClient := llm.NewClient(llm.NewFactory(&cfg.LLM), data.Settings, &cfg.LLM, genOpts.Timeout)
	prompts := workflowprompt.NewRegistry()

	locker, err := ProvideGenerationLocker(ctx, cfg, data)
	if err != nil {
		return nil, err
	}

	reconciler := workspace.NewLoreReconciler(data.Lore, data.Outlines, data.Chapters, llmClient, prompts).
		WithBudget(cfg.Generation.EffectiveReconcileTimeout())
	return &Services{
		Workspace:  workspace.NewService(data.Books, data.Lore, data.Outlines, data.Chapters, data.Styles, llmClient, llmClient, prompts),
		Planner:    workspace.NewOutlinePlanner(data.Books, data.Lore, data.Outlines, llmClient, prompts),
		Reconciler: reconciler,
		Generator: workspace.NewChapterGenerator(data.Books, data.Lore, data.Outlines, data.Chapters,
			llmClient, locker, reconciler, prompts, genOpts),
		Styles:   workspace.NewStyleService(data.Styles),
		Settings: workspace.NewSettingsService(data.Settings, llmClient, ProvideSupportedProviders()),
	}, nil
}

// InitializeApp 初始化 HTTP 应用
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	data, cleanup, err := InitializeDataLayer(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	svcs, err := InitializeServices(ctx, cfg, data)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	health := handler.NewHealthHandler(cfg.App.Version, data.Store, nil)
	rl := router.RateLimit{}
	if data.RedisClient != nil {
		health = handler.NewHealthHandler(cfg.App.Version, data.Store, data.RedisClient)
		rl = router.RateLimit{Limiter: redis.NewRateLimiter(data.RedisClient), Key: redis.BuildRateLimitKey}
	}

	r := router.New(cfg, router.Handlers{
		Health:   health,
		Books:    handler.NewBookHandler(svcs.Workspace, svcs.Planner, svcs.Generator, svcs.Reconciler),
		Styles:   handler.NewStyleHandler(svcs.Styles),
		Settings: handler.NewSettingsHandler(svcs.Settings),
	}, rl)
	return r, cleanup, nil
}

// ProvideRedisClientOptional Redis 未启用时返回 nil，启用但不可达时报错
func ProvideRedisClientOptional(ctx context.Context, cfg *config.Config) (*redis.Client, func(), error) {
	if !cfg.Cache.Redis.Enabled {
		return nil, func() {}, nil
	}
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	logger.Info(ctx, "redis connected", "host", cfg.Cache.Redis.Host, "port", cfg.Cache.Redis.Port)
	return client, func() { _ = client.Close() }, nil
}

// ProvideGenerationLocker 按 locking.backend 选择生成锁实现
func ProvideGenerationLocker(ctx context.Context, cfg *config.Config, data *DataLayer) (service.GenerationLocker, error) {
	switch strings.ToLower(cfg.Locking.Backend) {
	case "", config.LockBackendLocal:
		logger.Info(ctx, "using local generation lock")
		return lock.NewLocalLocker(data.Store.Paths().LockPath), nil
	case config.LockBackendRedis:
		if data.RedisClient == nil {
			return nil, fmt.Errorf("redis generation lock requires a redis client")
		}
		logger.Info(ctx, "using redis generation lock", "ttl", cfg.Locking.TTL.String())
		return redis.NewGenerationLocker(data.RedisClient, cfg.Locking.TTL), nil
	default:
		return nil, fmt.Errorf("unknown locking backend: %s", cfg.Locking.Backend)
	}
}

// ProvideGenerationOptions 从配置读取章节生成参数，缺省项取默认值
func ProvideGenerationOptions(cfg *config.Config) workspace.GenerationOptions {
	opts := workspace.DefaultGenerationOptions()
	if cfg.Generation.Timeout > 0 {
		opts.Timeout = cfg.Generation.Timeout
	}
	if cfg.Generation.PreviousTailRunes > 0 {
		opts.PreviousTailRunes = cfg.Generation.PreviousTailRunes
	}
	if cfg.Generation.NextPreviewRunes > 0 {
		opts.NextPreviewRunes = cfg.Generation.NextPreviewRunes
	}
	return opts
}

// ProvideSupportedProviders 设置中允许选择的提供商
func ProvideSupportedProviders() []string {
	return []string{
		llm.ProviderOpenAI,
		llm.ProviderAnthropic,
		llm.ProviderGoogle,
		llm.ProviderNvidia,
		llm.ProviderDeepSeek,
		llm.ProviderMock,
	}
}
