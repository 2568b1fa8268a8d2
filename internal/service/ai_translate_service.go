package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// TranslationInput 描述待翻译的原文字段。
type TranslationInput struct {
	Title   string
	Summary string
	Content string
}

// TranslationResult 返回模型翻译后的各字段。
type TranslationResult struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Content string `json:"content"`
}

// Translator 定义翻译能力，便于在业务层注入不同实现。
type Translator interface {
	Translate(ctx context.Context, input TranslationInput) (TranslationResult, error)
}

const (
	defaultTranslateModel       = "gpt-4o-mini"
	defaultTranslateMaxTokens   = 8192
	defaultTranslateTemperature = 0.1
)

const translateSystemPrompt = `你是一名专业的技术博客译者，请把用户提供的中文博客文章翻译成地道的英文。
保持 Markdown 结构、代码块和链接原样不动，只翻译自然语言部分。
只输出一个 JSON 对象，格式为 {"title":"...","summary":"...","content":"..."}，不要附加任何解释。
summary 为空时输出空字符串。`

// AITranslateService 基于大模型接口把中文原文翻译为英文。
type AITranslateService struct {
	client *aiChatClient
}

// NewAITranslateService 构造翻译服务，model 为空时使用默认模型。
func NewAITranslateService(baseURL, apiKey, model string) *AITranslateService {
	if strings.TrimSpace(model) == "" {
		model = defaultTranslateModel
	}
	return &AITranslateService{client: newAIChatClient(baseURL, apiKey, model)}
}

// SetHTTPClient 覆盖默认 HTTP 客户端，主要用于测试。
func (s *AITranslateService) SetHTTPClient(client httpDoer) {
	s.client.SetHTTPClient(client)
}

// Translate 调用模型翻译文章，未配置 API Key 时返回 ErrAIAPIKeyMissing。
func (s *AITranslateService) Translate(ctx context.Context, input TranslationInput) (TranslationResult, error) {
	userPrompt := buildTranslatePrompt(input)
	logAIExchange("TRANSLATE", "prompt", userPrompt)

	result, err := s.client.call(ctx, aiChatRequest{
		SystemPrompt: translateSystemPrompt,
		UserPrompt:   userPrompt,
		MaxTokens:    defaultTranslateMaxTokens,
		Temperature:  defaultTranslateTemperature,
	})
	if err != nil {
		return TranslationResult{}, err
	}

	logAIExchange("TRANSLATE", "response", result.Content)

	parsed, err := parseTranslationPayload(result.Content)
	if err != nil {
		return TranslationResult{}, err
	}
	return parsed, nil
}

func buildTranslatePrompt(input TranslationInput) string {
	var builder strings.Builder
	builder.WriteString("标题：")
	builder.WriteString(strings.TrimSpace(input.Title))
	builder.WriteString("\n")
	if summary := strings.TrimSpace(input.Summary); summary != "" {
		builder.WriteString("摘要：")
		builder.WriteString(summary)
		builder.WriteString("\n")
	}
	builder.WriteString("正文：\n")
	builder.WriteString(input.Content)
	return builder.String()
}

func parseTranslationPayload(raw string) (TranslationResult, error) {
	stripped := stripCodeFence(raw)

	var result TranslationResult
	if err := json.Unmarshal([]byte(stripped), &result); err != nil {
		return TranslationResult{}, fmt.Errorf("解析翻译结果失败: %w", err)
	}

	result.Title = strings.TrimSpace(result.Title)
	result.Summary = strings.TrimSpace(result.Summary)
	if result.Title == "" || strings.TrimSpace(result.Content) == "" {
		return TranslationResult{}, errors.New("翻译结果缺少标题或正文")
	}
	return result, nil
}

// stripCodeFence 去掉模型偶尔包裹在 JSON 外层的 ``` 围栏。
func stripCodeFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
