package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/duolog/internal/db"
	"github.com/duolog/internal/locale"
	"gorm.io/gorm"
)

// ErrTranslatorNotConfigured 表示服务未注入翻译实现。
var ErrTranslatorNotConfigured = errors.New("translator is not configured")

// TranslationService 维护原文与译文之间的关联：译文通过 original_post_id 指回原文，
// 原文 ID 即这篇逻辑文章的 identity，所有共享状态都归一到它。
type TranslationService struct {
	db         *gorm.DB
	translator Translator
}

// NewTranslationService creates a TranslationService instance.
func NewTranslationService(gdb *gorm.DB, translator Translator) *TranslationService {
	return &TranslationService{db: gdb, translator: translator}
}

// Variants 返回同一篇逻辑文章的全部语言版本，原文排在最前。
func (s *TranslationService) Variants(identityID uint) ([]db.Post, error) {
	var posts []db.Post
	if err := s.db.
		Where("id = ? OR original_post_id = ?", identityID, identityID).
		Order("CASE WHEN original_post_id IS NULL THEN 0 ELSE 1 END, language asc").
		Find(&posts).Error; err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, ErrPostNotFound
	}
	return posts, nil
}

// VariantForLocale 返回 identity 在目标语言下的版本，用于把读者重定向到对应译文。
func (s *TranslationService) VariantForLocale(identityID uint, language string) (*db.Post, error) {
	normalized := locale.NormalizeLanguage(language)
	if normalized == "" {
		return nil, ErrInvalidLanguage
	}

	var post db.Post
	if err := s.db.
		Where("(id = ? OR original_post_id = ?) AND language = ?", identityID, identityID, normalized).
		First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return &post, nil
}

// Translate 为中文原文生成英文译文：复制标签与原文的创建时间，译文始终从草稿开始。
// 所有校验都发生在翻译模型调用之前；(原文, 目标语言) 已存在译文时返回冲突。
func (s *TranslationService) Translate(ctx context.Context, postID uint, target string) (*db.Post, error) {
	var post db.Post
	if err := s.db.Preload("Tags").First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}

	if post.IsTranslation() {
		return nil, ErrSourceIsTranslation
	}

	normalizedTarget := locale.NormalizeLanguage(target)
	if post.Language != locale.LanguagePrimary || normalizedTarget != locale.LanguageSecondary {
		return nil, ErrTranslationUnsupported
	}

	var existing int64
	if err := s.db.Model(&db.Post{}).
		Where("original_post_id = ? AND language = ?", post.ID, normalizedTarget).
		Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, ErrTranslationExists
	}

	if s.translator == nil {
		return nil, ErrTranslatorNotConfigured
	}

	result, err := s.translator.Translate(ctx, TranslationInput{
		Title:   post.Title,
		Summary: post.Summary,
		Content: post.Content,
	})
	if err != nil {
		return nil, fmt.Errorf("调用翻译模型失败: %w", err)
	}

	originalID := post.ID
	translated := db.Post{
		Slug:           post.Slug,
		Language:       normalizedTarget,
		Title:          result.Title,
		Content:        result.Content,
		Summary:        result.Summary,
		Status:         db.PostStatusDraft,
		OriginalPostID: &originalID,
	}
	// 译文继承原文的生效时间
	translated.CreatedAt = post.CreatedAt

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		// 语言不同，slug 通常可以直接复用；目标语言下已被占用时退化为带语言后缀
		var conflict int64
		if err := tx.Model(&db.Post{}).
			Where("slug = ? AND language = ?", translated.Slug, translated.Language).
			Count(&conflict).Error; err != nil {
			return err
		}
		if conflict > 0 {
			translated.Slug = post.Slug + "-" + normalizedTarget
			if err := tx.Model(&db.Post{}).
				Where("slug = ? AND language = ?", translated.Slug, translated.Language).
				Count(&conflict).Error; err != nil {
				return err
			}
			if conflict > 0 {
				return ErrSlugExists
			}
		}

		if err := tx.Create(&translated).Error; err != nil {
			return err
		}
		if len(post.Tags) > 0 {
			return replaceTags(tx, &translated, tagNames(post.Tags))
		}
		return nil
	}); err != nil {
		return nil, err
	}

	var created db.Post
	if err := s.db.Preload("Tags").First(&created, translated.ID).Error; err != nil {
		return nil, err
	}
	return &created, nil
}

func tagNames(tags []db.Tag) []string {
	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		names = append(names, tag.Name)
	}
	return names
}
