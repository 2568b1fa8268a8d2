package config

import (
	"fmt"
	"os"
	"strings"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr        string
	Port              string
	DatabasePath      string
	GinMode           string
	JWTSecret         string
	SuperRootUserName string
	SuperRootPassword string

	// AI / 向量相关配置，留空时对应能力自动降级
	AIBaseURL      string
	AIAPIKey       string
	TranslateModel string
	SummaryModel   string
	EmbeddingModel string
	VectorHost     string
	VectorAPIKey   string
}

// Load 从环境变量读取应用配置，并为缺失项提供安全的默认值。
func Load() AppConfig {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	listenAddr := strings.TrimSpace(os.Getenv("LISTEN_ADDR"))
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%s", port)
	}

	databasePath := strings.TrimSpace(os.Getenv("DATABASE_PATH"))
	if databasePath == "" {
		databasePath = "duolog.db"
	}

	ginMode := strings.TrimSpace(os.Getenv("GIN_MODE"))
	if ginMode == "" {
		ginMode = "release"
	}

	jwtSecret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if jwtSecret == "" {
		jwtSecret = "duolog-dev-secret"
	}

	return AppConfig{
		ListenAddr:        listenAddr,
		Port:              port,
		DatabasePath:      databasePath,
		GinMode:           ginMode,
		JWTSecret:         jwtSecret,
		SuperRootUserName: strings.TrimSpace(os.Getenv("SUPER_ROOT_USER_NAME")),
		SuperRootPassword: strings.TrimSpace(os.Getenv("SUPER_ROOT_PASSWORD")),
		AIBaseURL:         strings.TrimSpace(os.Getenv("AI_BASE_URL")),
		AIAPIKey:          strings.TrimSpace(os.Getenv("AI_API_KEY")),
		TranslateModel:    strings.TrimSpace(os.Getenv("AI_TRANSLATE_MODEL")),
		SummaryModel:      strings.TrimSpace(os.Getenv("AI_SUMMARY_MODEL")),
		EmbeddingModel:    strings.TrimSpace(os.Getenv("AI_EMBEDDING_MODEL")),
		VectorHost:        strings.TrimSpace(os.Getenv("VECTOR_INDEX_HOST")),
		VectorAPIKey:      strings.TrimSpace(os.Getenv("VECTOR_INDEX_API_KEY")),
	}
}
