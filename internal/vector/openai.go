package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrEmbedderNotConfigured 表示缺少 API Key，无法调用向量化接口。
var ErrEmbedderNotConfigured = errors.New("embedding api key is not configured")

const defaultEmbeddingModel = "text-embedding-3-small"

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// EmbeddingClient 调用 OpenAI 兼容的 /embeddings 接口生成向量。
type EmbeddingClient struct {
	http    httpDoer
	baseURL string
	apiKey  string
	model   string
}

// NewEmbeddingClient 构造向量化客户端，model 为空时使用默认模型。
func NewEmbeddingClient(baseURL, apiKey, model string) *EmbeddingClient {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = "https://api.openai.com/v1"
	}
	if strings.TrimSpace(model) == "" {
		model = defaultEmbeddingModel
	}
	return &EmbeddingClient{
		http:    &http.Client{Timeout: 30 * time.Second},
		baseURL: base,
		apiKey:  strings.TrimSpace(apiKey),
		model:   strings.TrimSpace(model),
	}
}

// SetHTTPClient 覆盖默认 HTTP 客户端，主要用于测试。
func (c *EmbeddingClient) SetHTTPClient(client httpDoer) {
	if client == nil {
		c.http = &http.Client{Timeout: 30 * time.Second}
		return
	}
	c.http = client
}

// Embed 将文本映射为定长向量。
func (c *EmbeddingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.apiKey == "" {
		return nil, ErrEmbedderNotConfigured
	}

	body, err := json.Marshal(embeddingRequest{Model: c.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("构造向量化请求失败: %w", err)
	}

	endpoint := c.baseURL + "/embeddings"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("创建向量化请求失败: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("请求向量化接口失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("读取向量化响应失败: %w", err)
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("解析向量化响应失败: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		errMsg := strings.TrimSpace(parsed.Error.Message)
		if errMsg == "" {
			errMsg = resp.Status
		}
		return nil, fmt.Errorf("向量化接口返回错误：%s", errMsg)
	}

	if len(parsed.Data) == 0 || len(parsed.Data[0].Embedding) == 0 {
		return nil, errors.New("向量化接口未返回向量")
	}

	return parsed.Data[0].Embedding, nil
}
