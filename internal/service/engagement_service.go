package service

import (
	"errors"
	"strings"
	"time"

	"github.com/duolog/internal/db"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EngagementService 把浏览计数与评论统一挂到原文（identity post）上：
// 无论读者浏览哪个语言版本，看到的都是同一份计数与同一条评论串。
type EngagementService struct {
	db *gorm.DB
}

// CommentInput represents fields accepted when creating a comment.
type CommentInput struct {
	Author  string
	Content string
}

// NewEngagementService creates an EngagementService instance.
func NewEngagementService(gdb *gorm.DB) *EngagementService {
	return &EngagementService{db: gdb}
}

// RecordView 为任意语言版本累加一次浏览。计数落在原文行上，
// 自增是单条原子更新，并发下不会丢更新。
func (s *EngagementService) RecordView(postID uint) error {
	post, err := s.resolvePost(postID, false)
	if err != nil {
		return err
	}

	// UpdateColumn 跳过 updated_at，浏览不应影响按更新时间的排序
	return s.db.Model(&db.Post{}).
		Where("id = ?", post.IdentityID()).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
}

// ViewCount 读取任意语言版本共享的浏览计数。
func (s *EngagementService) ViewCount(postID uint) (uint64, error) {
	post, err := s.resolvePost(postID, false)
	if err != nil {
		return 0, err
	}
	if !post.IsTranslation() {
		return post.ViewCount, nil
	}

	var identity db.Post
	if err := s.db.First(&identity, post.IdentityID()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrPostNotFound
		}
		return 0, err
	}
	return identity.ViewCount, nil
}

// ListComments 返回逻辑文章的评论串，按创建时间升序；同秒评论按插入顺序排列。
// publicOnly 时仅对公开可见的文章开放。
func (s *EngagementService) ListComments(postID uint, publicOnly bool) ([]db.Comment, error) {
	post, err := s.resolvePost(postID, publicOnly)
	if err != nil {
		return nil, err
	}

	var comments []db.Comment
	if err := s.db.
		Where("post_id = ?", post.IdentityID()).
		Order("created_at asc").
		Order("id asc").
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

// CreateComment 在逻辑文章上新增评论：不管评论者浏览的是哪个语言版本，
// 评论都持久化到原文 ID 下。
func (s *EngagementService) CreateComment(postID uint, input CommentInput) (*db.Comment, error) {
	author := strings.TrimSpace(input.Author)
	if author == "" {
		return nil, ErrAuthorRequired
	}
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, ErrCommentRequired
	}

	post, err := s.resolvePost(postID, true)
	if err != nil {
		return nil, err
	}

	comment := db.Comment{
		PublicID: uuid.NewString(),
		PostID:   post.IdentityID(),
		Author:   author,
		Content:  content,
	}
	if err := s.db.Create(&comment).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

// DeleteComment 按对外 UUID 删除评论，仅供后台使用。
func (s *EngagementService) DeleteComment(publicID string) error {
	result := s.db.Where("public_id = ?", strings.TrimSpace(publicID)).Delete(&db.Comment{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCommentNotFound
	}
	return nil
}

func (s *EngagementService) resolvePost(postID uint, requirePublic bool) (*db.Post, error) {
	var post db.Post
	if err := s.db.First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	if requirePublic && !post.PubliclyVisible(time.Now()) {
		return nil, ErrPostNotFound
	}
	return &post, nil
}
