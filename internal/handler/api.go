package handler

import (
	"time"

	"github.com/duolog/internal/config"
	"github.com/duolog/internal/service"
	"github.com/duolog/internal/vector"
	"gorm.io/gorm"
)

const tokenTTL = 24 * time.Hour

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db           *gorm.DB
	posts        *service.PostService
	translations *service.TranslationService
	engagement   *service.EngagementService
	embeddings   *service.EmbeddingService
	summaries    service.SummaryGenerator
	tasks        *service.TaskRunner
	jwtSecret    []byte
}

// NewAPI constructs a handler set with shared services.
// AI 与向量索引未配置时对应能力自动降级：翻译返回错误提示，相关推荐为空。
func NewAPI(gdb *gorm.DB, cfg config.AppConfig) *API {
	posts := service.NewPostService(gdb)
	tasks := service.NewTaskRunner(0)
	posts.SetTaskRunner(tasks)

	var embeddings *service.EmbeddingService
	if cfg.AIAPIKey != "" && cfg.VectorHost != "" && cfg.VectorAPIKey != "" {
		embedder := vector.NewEmbeddingClient(cfg.AIBaseURL, cfg.AIAPIKey, cfg.EmbeddingModel)
		store := vector.NewIndexClient(cfg.VectorHost, cfg.VectorAPIKey)
		embeddings = service.NewEmbeddingService(gdb, embedder, store)
		posts.SetEmbeddingService(embeddings)
	}

	var translator service.Translator
	var summaries service.SummaryGenerator
	if cfg.AIAPIKey != "" {
		translator = service.NewAITranslateService(cfg.AIBaseURL, cfg.AIAPIKey, cfg.TranslateModel)
		summaries = service.NewAISummaryService(cfg.AIBaseURL, cfg.AIAPIKey, cfg.SummaryModel)
	}

	return &API{
		db:           gdb,
		posts:        posts,
		translations: service.NewTranslationService(gdb, translator),
		engagement:   service.NewEngagementService(gdb),
		embeddings:   embeddings,
		summaries:    summaries,
		tasks:        tasks,
		jwtSecret:    []byte(cfg.JWTSecret),
	}
}

// Close 等待后台索引任务收尾，服务停机时调用。
func (a *API) Close() {
	if a.tasks != nil {
		a.tasks.Close()
	}
}
