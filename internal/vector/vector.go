package vector

import (
	"context"
	"net/http"
)

// Metadata 描述向量记录携带的文章元信息，索引侧据此过滤未发布/未生效的邻居。
type Metadata struct {
	PostID      uint   `json:"postId"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Status      string `json:"status"`
	PublishedAt int64  `json:"publishedAt"`
}

// Item 是写入向量索引的一条记录。
type Item struct {
	ID       string    `json:"id"`
	Values   []float32 `json:"values"`
	Metadata Metadata  `json:"metadata"`
}

// Match 是近邻查询返回的一条结果，Score 越大越相似。
type Match struct {
	ID       string   `json:"id"`
	Score    float64  `json:"score"`
	Metadata Metadata `json:"metadata"`
}

// Embedder 将文本映射为定长向量。
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Store 抽象外部向量索引的最小操作面。
type Store interface {
	Upsert(ctx context.Context, item Item) error
	Fetch(ctx context.Context, id string) (*Item, error)
	Query(ctx context.Context, values []float32, topK int) ([]Match, error)
	Delete(ctx context.Context, ids ...string) error
}

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}
