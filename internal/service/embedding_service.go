package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/duolog/internal/db"
	"github.com/duolog/internal/vector"
	"gorm.io/gorm"
)

// RelatedPost 是相关文章推荐结果，按相似度降序排列。
type RelatedPost struct {
	PostID uint    `json:"postId"`
	Title  string  `json:"title"`
	Slug   string  `json:"slug"`
	Score  float64 `json:"score"`
}

const (
	embedMaxRetries    = 3
	embedBaseDelay     = time.Second
	defaultRelatedTopK = 4
)

// EmbeddingService 负责文章向量的生成、入索引、近邻检索与删除。
// 向量只为原文维护一份，译文共享原文的向量。
type EmbeddingService struct {
	db       *gorm.DB
	embedder vector.Embedder
	store    vector.Store
	sleep    func(time.Duration)
}

// NewEmbeddingService 构造 EmbeddingService 实例。
func NewEmbeddingService(gdb *gorm.DB, embedder vector.Embedder, store vector.Store) *EmbeddingService {
	return &EmbeddingService{db: gdb, embedder: embedder, store: store, sleep: time.Sleep}
}

// VectorID 返回文章在向量索引中的键。
func VectorID(postID uint) string {
	return fmt.Sprintf("post-%d", postID)
}

// IndexPost 为原文生成向量并写入索引；传入译文 ID 时先归一到原文。
func (s *EmbeddingService) IndexPost(ctx context.Context, postID uint) error {
	var post db.Post
	if err := s.db.First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPostNotFound
		}
		return err
	}

	if post.IsTranslation() {
		if err := s.db.First(&post, post.IdentityID()).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPostNotFound
			}
			return err
		}
	}

	var values []float32
	if err := s.withRetry(ctx, func() error {
		var embedErr error
		values, embedErr = s.embedder.Embed(ctx, post.Title+"\n\n"+post.Content)
		return embedErr
	}); err != nil {
		return fmt.Errorf("生成文章向量失败: %w", err)
	}

	item := vector.Item{
		ID:     VectorID(post.ID),
		Values: values,
		Metadata: vector.Metadata{
			PostID:      post.ID,
			Title:       post.Title,
			Slug:        post.Slug,
			Status:      post.Status,
			PublishedAt: post.CreatedAt.Unix(),
		},
	}

	if err := s.withRetry(ctx, func() error { return s.store.Upsert(ctx, item) }); err != nil {
		return fmt.Errorf("写入向量索引失败: %w", err)
	}
	return nil
}

// FindRelated 返回与原文最相近的至多 k 篇已发布文章。
// 相关推荐只是读模型的软增强：任何失败都降级为空结果，不向调用方传播错误。
func (s *EmbeddingService) FindRelated(ctx context.Context, identityID uint, k int) []RelatedPost {
	if k <= 0 {
		k = defaultRelatedTopK
	}

	selfID := VectorID(identityID)
	item, err := s.store.Fetch(ctx, selfID)
	if err != nil {
		log.Printf("[EMBED RELATED] fetch vector for post %d: %v", identityID, err)
		return []RelatedPost{}
	}
	if item == nil {
		return []RelatedPost{}
	}

	// 多取一条，容忍结果集中包含自身
	matches, err := s.store.Query(ctx, item.Values, k+1)
	if err != nil {
		log.Printf("[EMBED RELATED] query neighbours for post %d: %v", identityID, err)
		return []RelatedPost{}
	}

	nowUnix := time.Now().Unix()
	related := make([]RelatedPost, 0, k)
	for _, match := range matches {
		if match.ID == selfID {
			continue
		}
		if match.Metadata.Status != db.PostStatusPublished {
			continue
		}
		if match.Metadata.PublishedAt > nowUnix {
			continue
		}
		related = append(related, RelatedPost{
			PostID: match.Metadata.PostID,
			Title:  match.Metadata.Title,
			Slug:   match.Metadata.Slug,
			Score:  match.Score,
		})
		if len(related) == k {
			break
		}
	}
	return related
}

// DeleteEmbedding 删除原文对应的向量记录。
func (s *EmbeddingService) DeleteEmbedding(ctx context.Context, identityID uint) error {
	if err := s.withRetry(ctx, func() error { return s.store.Delete(ctx, VectorID(identityID)) }); err != nil {
		return fmt.Errorf("删除向量失败: %w", err)
	}
	return nil
}

// withRetry 失败后按 1s/2s/4s 退避重试，最多三次，仍失败时返回最后一次错误。
func (s *EmbeddingService) withRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; ; attempt++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if attempt == embedMaxRetries {
			return lastErr
		}
		s.sleep(embedBaseDelay << attempt)
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}
