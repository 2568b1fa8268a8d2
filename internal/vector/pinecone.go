package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrStoreNotConfigured 表示缺少索引地址或 API Key。
var ErrStoreNotConfigured = errors.New("vector index is not configured")

type upsertRequest struct {
	Vectors []Item `json:"vectors"`
}

type queryRequest struct {
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	IncludeMetadata bool      `json:"includeMetadata"`
}

type queryResponse struct {
	Matches []Match `json:"matches"`
	Message string  `json:"message"`
}

type fetchResponse struct {
	Vectors map[string]Item `json:"vectors"`
	Message string          `json:"message"`
}

type deleteRequest struct {
	IDs []string `json:"ids"`
}

// IndexClient 通过 Pinecone 风格的 REST 接口访问外部向量索引。
type IndexClient struct {
	http   httpDoer
	host   string
	apiKey string
}

// NewIndexClient 构造索引客户端，host 形如 https://{index}.svc.{env}.pinecone.io。
func NewIndexClient(host, apiKey string) *IndexClient {
	return &IndexClient{
		http:   &http.Client{Timeout: 30 * time.Second},
		host:   strings.TrimRight(strings.TrimSpace(host), "/"),
		apiKey: strings.TrimSpace(apiKey),
	}
}

// SetHTTPClient 覆盖默认 HTTP 客户端，主要用于测试。
func (c *IndexClient) SetHTTPClient(client httpDoer) {
	if client == nil {
		c.http = &http.Client{Timeout: 30 * time.Second}
		return
	}
	c.http = client
}

// Upsert 写入或覆盖一条向量记录。
func (c *IndexClient) Upsert(ctx context.Context, item Item) error {
	var parsed struct {
		Message string `json:"message"`
	}
	return c.post(ctx, "/vectors/upsert", upsertRequest{Vectors: []Item{item}}, &parsed)
}

// Fetch 按 ID 读取向量，不存在时返回 (nil, nil)。
func (c *IndexClient) Fetch(ctx context.Context, id string) (*Item, error) {
	if c.host == "" || c.apiKey == "" {
		return nil, ErrStoreNotConfigured
	}

	endpoint := c.host + "/vectors/fetch?ids=" + url.QueryEscape(id)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("创建向量读取请求失败: %w", err)
	}
	c.setHeaders(httpReq)

	var parsed fetchResponse
	if err := c.do(httpReq, &parsed); err != nil {
		return nil, err
	}

	item, ok := parsed.Vectors[id]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

// Query 返回与给定向量最接近的 topK 条记录（含元数据）。
func (c *IndexClient) Query(ctx context.Context, values []float32, topK int) ([]Match, error) {
	var parsed queryResponse
	if err := c.post(ctx, "/query", queryRequest{Vector: values, TopK: topK, IncludeMetadata: true}, &parsed); err != nil {
		return nil, err
	}
	return parsed.Matches, nil
}

// Delete 按 ID 删除向量记录。
func (c *IndexClient) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	var parsed struct {
		Message string `json:"message"`
	}
	return c.post(ctx, "/vectors/delete", deleteRequest{IDs: ids}, &parsed)
}

func (c *IndexClient) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	if c.host == "" || c.apiKey == "" {
		return ErrStoreNotConfigured
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("构造向量索引请求失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("创建向量索引请求失败: %w", err)
	}
	c.setHeaders(httpReq)

	return c.do(httpReq, out)
}

func (c *IndexClient) setHeaders(req *http.Request) {
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}

func (c *IndexClient) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("请求向量索引失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("读取向量索引响应失败: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		snippet := strings.TrimSpace(string(respBody))
		if snippet == "" {
			snippet = resp.Status
		}
		return fmt.Errorf("向量索引返回错误：%s", snippet)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("解析向量索引响应失败: %w", err)
	}
	return nil
}
