package handler

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/duolog/internal/service"
	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// respondServiceError 把服务层的分类错误映射为 HTTP 状态码。
// 未分类的错误一律按内部错误处理，细节只进日志不出响应。
func respondServiceError(c *gin.Context, err error) {
	switch {
	case service.IsValidation(err):
		respondError(c, http.StatusBadRequest, err.Error())
	case service.IsNotFound(err):
		respondError(c, http.StatusNotFound, err.Error())
	case service.IsConflict(err):
		respondError(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrTranslatorNotConfigured), errors.Is(err, service.ErrAIAPIKeyMissing):
		respondError(c, http.StatusServiceUnavailable, "AI 服务未配置")
	default:
		log.Printf("[API] internal error: %v", err)
		respondError(c, http.StatusInternalServerError, "internal error")
	}
}

// respondValidationError 处理 ozzo-validation 的字段级错误。
func respondValidationError(c *gin.Context, err error) {
	if errs, ok := err.(validation.Errors); ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数校验失败", "fields": errs})
		return
	}
	respondError(c, http.StatusBadRequest, err.Error())
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, message)
		return false
	}
	return true
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	raw := c.Param(key)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(id), nil
}

// parseIntQuery 解析整型查询参数，缺失时返回默认值，非法时返回错误。
func parseIntQuery(c *gin.Context, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return value, nil
}
