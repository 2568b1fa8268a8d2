package db

import (
	"time"

	"gorm.io/gorm"
)

// 文章状态枚举
const (
	PostStatusDraft     = "draft"
	PostStatusPublished = "published"
)

// DisplayStatusScheduled 表示已发布但生效时间在未来的文章（仅后台可见）。
const DisplayStatusScheduled = "scheduled"

// Post 定义了文章模型。original_post_id 为空的记录是原文（identity post），
// 非空时指向原文，表示某个语言下的译文。
type Post struct {
	gorm.Model
	Slug           string `gorm:"size:200;not null;uniqueIndex:idx_posts_slug_language"`
	Language       string `gorm:"size:8;not null;uniqueIndex:idx_posts_slug_language"`
	Title          string `gorm:"size:200;not null"`
	Content        string
	Summary        string
	Status         string `gorm:"size:16;not null;default:draft;index"`
	OriginalPostID *uint  `gorm:"index"`
	ViewCount      uint64 `gorm:"not null;default:0"`
	Tags           []Tag  `gorm:"many2many:post_tags;"`
}

// IdentityID 返回文章所属的原文 ID：译文返回 original_post_id，原文返回自身 ID。
// 浏览计数、评论等共享状态都挂在该 ID 上。
func (p *Post) IdentityID() uint {
	if p.OriginalPostID != nil && *p.OriginalPostID != 0 {
		return *p.OriginalPostID
	}
	return p.ID
}

// IsTranslation reports whether the post is a locale variant of another post.
func (p *Post) IsTranslation() bool {
	return p.OriginalPostID != nil && *p.OriginalPostID != 0
}

// PubliclyVisible reports whether the post should appear on public paths.
// Published posts with a future creation time are scheduled, not yet visible.
func (p *Post) PubliclyVisible(now time.Time) bool {
	return p.Status == PostStatusPublished && !p.CreatedAt.After(now)
}

// DisplayStatus 计算后台展示状态：published + 未来时间 → scheduled。
func (p *Post) DisplayStatus(now time.Time) string {
	if p.Status == PostStatusPublished && p.CreatedAt.After(now) {
		return DisplayStatusScheduled
	}
	return p.Status
}
