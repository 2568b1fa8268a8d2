package service

import (
	"context"
	"strings"
)

// SummaryInput 描述生成文章摘要所需的上下文。
type SummaryInput struct {
	Title   string
	Content string
	// MaxTokens 控制模型输出上限，0 表示使用默认值。
	MaxTokens int
}

// SummaryResult 返回模型生成的摘要及少量元数据。
type SummaryResult struct {
	Summary          string
	PromptTokens     int
	CompletionTokens int
}

// SummaryGenerator 定义摘要生成能力，便于在业务层注入不同实现。
type SummaryGenerator interface {
	GenerateSummary(ctx context.Context, input SummaryInput) (SummaryResult, error)
}

const (
	defaultSummaryModel        = "gpt-4o-mini"
	defaultSummaryMaxTokens    = 160
	defaultSummaryTemperature  = 0.2
	maxSummaryContentRuneCount = 4000
)

const summarySystemPrompt = `你是一名博客编辑，请用原文的语言为文章撰写一段简洁的摘要。
摘要控制在两三句话以内，直接给出内容，不要添加"本文介绍了"之类的引语，也不要输出 Markdown 标记。`

// AISummaryService 基于大模型接口生成文章摘要。
type AISummaryService struct {
	client *aiChatClient
}

// NewAISummaryService 构造摘要服务，model 为空时使用默认模型。
func NewAISummaryService(baseURL, apiKey, model string) *AISummaryService {
	if strings.TrimSpace(model) == "" {
		model = defaultSummaryModel
	}
	return &AISummaryService{client: newAIChatClient(baseURL, apiKey, model)}
}

// SetHTTPClient 覆盖默认 HTTP 客户端，主要用于测试。
func (s *AISummaryService) SetHTTPClient(client httpDoer) {
	s.client.SetHTTPClient(client)
}

// GenerateSummary 调用模型生成文章摘要，未配置 API Key 时返回 ErrAIAPIKeyMissing。
func (s *AISummaryService) GenerateSummary(ctx context.Context, input SummaryInput) (SummaryResult, error) {
	maxTokens := input.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultSummaryMaxTokens
	}

	contentSnippet := truncateRunes(input.Content, maxSummaryContentRuneCount)
	userPrompt := buildSummaryPrompt(input.Title, contentSnippet)
	logAIExchange("SUMMARY", "prompt", userPrompt)

	result, err := s.client.call(ctx, aiChatRequest{
		SystemPrompt: summarySystemPrompt,
		UserPrompt:   userPrompt,
		MaxTokens:    maxTokens,
		Temperature:  defaultSummaryTemperature,
	})
	if err != nil {
		return SummaryResult{}, err
	}

	summary := strings.TrimSpace(result.Content)
	logAIExchange("SUMMARY", "response", summary)

	return SummaryResult{
		Summary:          summary,
		PromptTokens:     result.PromptTokens,
		CompletionTokens: result.CompletionTokens,
	}, nil
}

func buildSummaryPrompt(title, content string) string {
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	var builder strings.Builder
	if title != "" {
		builder.WriteString("标题：")
		builder.WriteString(title)
		builder.WriteString("\n")
	}
	if content != "" {
		builder.WriteString("正文：\n")
		builder.WriteString(content)
	}
	return builder.String()
}

func truncateRunes(input string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(input)
	if len(runes) <= limit {
		return input
	}
	return string(runes[:limit])
}
