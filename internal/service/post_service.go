package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/duolog/internal/db"
	"github.com/duolog/internal/locale"
	"gorm.io/gorm"
)

const (
	minPageSize = 1
	maxPageSize = 100
)

// sortColumns 是允许参与排序的字段白名单。客户端传入的排序键只会映射到这里的
// 表达式，绝不会直接拼进 SQL。view_count 对译文取原文行上的共享计数。
var sortColumns = map[string]string{
	"created_at": "posts.created_at",
	"updated_at": "posts.updated_at",
	"title":      "posts.title",
	"view_count": "COALESCE(originals.view_count, posts.view_count)",
}

// PostService wraps post related database operations.
type PostService struct {
	db         *gorm.DB
	embeddings *EmbeddingService
	tasks      *TaskRunner
}

// PostInput represents fields accepted when creating or updating a post.
type PostInput struct {
	Title    string
	Slug     string
	Content  string
	Summary  string
	Status   string
	Language string
	TagNames []string
}

// ListOptions describes filters and pagination for listing posts.
// Page 从 0 开始计数。
type ListOptions struct {
	Language string
	TagName  string
	Status   string
	Page     int
	Size     int
	SortBy   string
	SortDir  string
}

// ListResult aggregates paginated list data.
type ListResult struct {
	Posts      []db.Post
	Total      int64
	Page       int
	Size       int
	TotalPages int
}

// AdminPost 在文章之上补充后台关心的派生字段。
type AdminPost struct {
	db.Post
	DisplayStatus string
	IsTranslation bool
}

// AdminListResult 是后台列表的分页结果。
type AdminListResult struct {
	Posts      []AdminPost
	Total      int64
	Page       int
	Size       int
	TotalPages int
}

// NewPostService creates a PostService instance.
func NewPostService(gdb *gorm.DB) *PostService {
	return &PostService{db: gdb}
}

// SetEmbeddingService 注入向量服务；不设置时写路径跳过索引派发。
func (s *PostService) SetEmbeddingService(embeddings *EmbeddingService) {
	s.embeddings = embeddings
}

// SetTaskRunner 注入后台任务执行器；不设置时索引任务在当前 goroutine 同步执行。
func (s *PostService) SetTaskRunner(tasks *TaskRunner) {
	s.tasks = tasks
}

// Get fetches a post by id with tags preloaded.
func (s *PostService) Get(id uint) (*db.Post, error) {
	var post db.Post
	if err := s.db.Preload("Tags").First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return &post, nil
}

// GetBySlug 按 (slug, language) 取公开可见的文章；草稿与未生效文章一律视作不存在。
func (s *PostService) GetBySlug(slug, language string) (*db.Post, error) {
	normalized := locale.NormalizeLanguage(language)
	if normalized == "" {
		return nil, ErrInvalidLanguage
	}

	var post db.Post
	if err := s.db.Preload("Tags").
		Where("slug = ? AND language = ?", strings.TrimSpace(slug), normalized).
		First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}

	if !post.PubliclyVisible(time.Now()) {
		return nil, ErrPostNotFound
	}
	return &post, nil
}

// Create validates input, derives the slug and persists the post with its tags.
// 向量索引在写库成功后异步触发，索引失败只记日志，不影响写入结果。
func (s *PostService) Create(input PostInput) (*db.Post, error) {
	normalized, err := normalizeInput(input)
	if err != nil {
		return nil, err
	}

	taken, err := s.slugTaken(normalized.Slug, normalized.Language, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrSlugExists
	}

	post := db.Post{
		Slug:     normalized.Slug,
		Language: normalized.Language,
		Title:    normalized.Title,
		Content:  normalized.Content,
		Summary:  normalized.Summary,
		Status:   normalized.Status,
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&post).Error; err != nil {
			return err
		}
		return replaceTags(tx, &post, normalized.TagNames)
	}); err != nil {
		return nil, err
	}

	s.dispatchIndex(post.ID)
	return s.Get(post.ID)
}

// Update applies updates to an existing post and replaces its full tag set.
// 文章的语言在创建时即固定，更新不允许改变。
func (s *PostService) Update(id uint, input PostInput) (*db.Post, error) {
	var existing db.Post
	if err := s.db.First(&existing, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}

	input.Language = existing.Language
	normalized, err := normalizeInput(input)
	if err != nil {
		return nil, err
	}

	taken, err := s.slugTaken(normalized.Slug, existing.Language, existing.ID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrSlugExists
	}

	existing.Slug = normalized.Slug
	existing.Title = normalized.Title
	existing.Content = normalized.Content
	existing.Summary = normalized.Summary
	existing.Status = normalized.Status

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&existing).Error; err != nil {
			return err
		}
		return replaceTags(tx, &existing, normalized.TagNames)
	}); err != nil {
		return nil, err
	}

	s.dispatchIndex(existing.IdentityID())
	return s.Get(existing.ID)
}

// Delete removes a post. 删除原文会级联删除其译文与评论；标签关联一并解除。
func (s *PostService) Delete(id uint) error {
	var post db.Post
	if err := s.db.First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPostNotFound
		}
		return err
	}

	isIdentity := !post.IsTranslation()

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		targets := []db.Post{post}
		if isIdentity {
			var translations []db.Post
			if err := tx.Where("original_post_id = ?", post.ID).Find(&translations).Error; err != nil {
				return err
			}
			targets = append(targets, translations...)

			if err := tx.Where("post_id = ?", post.ID).Delete(&db.Comment{}).Error; err != nil {
				return err
			}
		}

		for i := range targets {
			if err := clearTags(tx, &targets[i]); err != nil {
				return err
			}
			// 物理删除，slug 随即可被复用
			if err := tx.Unscoped().Delete(&db.Post{}, targets[i].ID).Error; err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}

	if isIdentity {
		s.dispatchDelete(post.ID)
	}
	return nil
}

// ListPublic 返回指定语言下公开可见的文章分页，未生效的定时文章被过滤掉。
func (s *PostService) ListPublic(opts ListOptions) (*ListResult, error) {
	normalized, err := normalizeListOptions(opts, false)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	countQuery := s.applyPublicFilters(s.db.Model(&db.Post{}), normalized, now)
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, err
	}

	var posts []db.Post
	dataQuery := s.applyPublicFilters(s.db.Model(&db.Post{}).Preload("Tags"), normalized, now)
	if err := dataQuery.
		Order(orderClause(normalized)).
		Limit(normalized.Size).
		Offset(normalized.Page * normalized.Size).
		Find(&posts).Error; err != nil {
		return nil, err
	}

	if err := s.populateSharedViewCounts(posts); err != nil {
		return nil, err
	}

	return &ListResult{
		Posts:      posts,
		Total:      total,
		Page:       normalized.Page,
		Size:       normalized.Size,
		TotalPages: totalPages(total, normalized.Size),
	}, nil
}

// ListAdmin 返回后台文章分页：包含全部状态，标注 scheduled 与原文/译文关系。
func (s *PostService) ListAdmin(opts ListOptions) (*AdminListResult, error) {
	normalized, err := normalizeListOptions(opts, true)
	if err != nil {
		return nil, err
	}

	countQuery := s.applyAdminFilters(s.db.Model(&db.Post{}), normalized)
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, err
	}

	var posts []db.Post
	dataQuery := s.applyAdminFilters(s.db.Model(&db.Post{}).Preload("Tags"), normalized)
	if err := dataQuery.
		Order(orderClause(normalized)).
		Limit(normalized.Size).
		Offset(normalized.Page * normalized.Size).
		Find(&posts).Error; err != nil {
		return nil, err
	}

	if err := s.populateSharedViewCounts(posts); err != nil {
		return nil, err
	}

	now := time.Now()
	adminPosts := make([]AdminPost, 0, len(posts))
	for _, post := range posts {
		adminPosts = append(adminPosts, AdminPost{
			Post:          post,
			DisplayStatus: post.DisplayStatus(now),
			IsTranslation: post.IsTranslation(),
		})
	}

	return &AdminListResult{
		Posts:      adminPosts,
		Total:      total,
		Page:       normalized.Page,
		Size:       normalized.Size,
		TotalPages: totalPages(total, normalized.Size),
	}, nil
}

func (s *PostService) applyPublicFilters(query *gorm.DB, opts ListOptions, now time.Time) *gorm.DB {
	query = query.
		Joins("LEFT JOIN posts AS originals ON originals.id = posts.original_post_id").
		Where("posts.status = ?", db.PostStatusPublished).
		Where("posts.created_at <= ?", now).
		Where("posts.language = ?", opts.Language)
	return s.applyTagFilter(query, opts.TagName)
}

func (s *PostService) applyAdminFilters(query *gorm.DB, opts ListOptions) *gorm.DB {
	query = query.Joins("LEFT JOIN posts AS originals ON originals.id = posts.original_post_id")
	if opts.Language != "" {
		query = query.Where("posts.language = ?", opts.Language)
	}
	if opts.Status != "" {
		query = query.Where("posts.status = ?", opts.Status)
	}
	return s.applyTagFilter(query, opts.TagName)
}

func (s *PostService) applyTagFilter(query *gorm.DB, tagName string) *gorm.DB {
	if strings.TrimSpace(tagName) == "" {
		return query
	}
	subQuery := s.db.Model(&db.Post{}).
		Select("posts.id").
		Joins("JOIN post_tags ON posts.id = post_tags.post_id").
		Joins("JOIN tags ON tags.id = post_tags.tag_id").
		Where("tags.name = ?", strings.TrimSpace(tagName))
	return query.Where("posts.id IN (?)", subQuery)
}

// populateSharedViewCounts 把译文行上的计数替换为原文行的共享计数。
func (s *PostService) populateSharedViewCounts(posts []db.Post) error {
	identityIDs := make([]uint, 0)
	for _, post := range posts {
		if post.IsTranslation() {
			identityIDs = append(identityIDs, post.IdentityID())
		}
	}
	if len(identityIDs) == 0 {
		return nil
	}

	var rows []struct {
		ID        uint
		ViewCount uint64
	}
	if err := s.db.Model(&db.Post{}).
		Select("id, view_count").
		Where("id IN ?", identityIDs).
		Scan(&rows).Error; err != nil {
		return err
	}

	counts := make(map[uint]uint64, len(rows))
	for _, row := range rows {
		counts[row.ID] = row.ViewCount
	}
	for i := range posts {
		if posts[i].IsTranslation() {
			posts[i].ViewCount = counts[posts[i].IdentityID()]
		}
	}
	return nil
}

func (s *PostService) slugTaken(slug, language string, excludeID uint) (bool, error) {
	query := s.db.Model(&db.Post{}).Where("slug = ? AND language = ?", slug, language)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *PostService) dispatchIndex(postID uint) {
	if s.embeddings == nil {
		return
	}
	s.submit(func() {
		if err := s.embeddings.IndexPost(context.Background(), postID); err != nil {
			log.Printf("[EMBED INDEX] post %d: %v", postID, err)
		}
	})
}

func (s *PostService) dispatchDelete(identityID uint) {
	if s.embeddings == nil {
		return
	}
	s.submit(func() {
		if err := s.embeddings.DeleteEmbedding(context.Background(), identityID); err != nil {
			log.Printf("[EMBED DELETE] post %d: %v", identityID, err)
		}
	})
}

func (s *PostService) submit(task func()) {
	if s.tasks != nil {
		s.tasks.Submit(task)
		return
	}
	task()
}

func normalizeInput(input PostInput) (PostInput, error) {
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return input, ErrTitleRequired
	}
	if strings.TrimSpace(input.Content) == "" {
		return input, ErrContentRequired
	}
	input.Summary = strings.TrimSpace(input.Summary)

	if input.Status == "" {
		input.Status = db.PostStatusDraft
	}
	if input.Status != db.PostStatusDraft && input.Status != db.PostStatusPublished {
		return input, ErrInvalidStatus
	}

	if input.Language == "" {
		input.Language = locale.LanguagePrimary
	}
	if !locale.Supported(input.Language) {
		return input, ErrInvalidLanguage
	}

	input.Slug = strings.TrimSpace(input.Slug)
	if input.Slug == "" {
		input.Slug = Slugify(input.Title)
	}
	if input.Slug == "" {
		return input, ErrSlugRequired
	}

	return input, nil
}

// normalizeListOptions 在任何存储访问之前完成分页与排序校验。
func normalizeListOptions(opts ListOptions, admin bool) (ListOptions, error) {
	if opts.Page < 0 {
		return opts, ErrInvalidPage
	}
	if opts.Size < minPageSize || opts.Size > maxPageSize {
		return opts, ErrInvalidPageSize
	}

	if opts.SortBy == "" {
		opts.SortBy = "created_at"
	}
	if _, ok := sortColumns[opts.SortBy]; !ok {
		return opts, ErrInvalidSort
	}

	opts.SortDir = strings.ToLower(strings.TrimSpace(opts.SortDir))
	if opts.SortDir == "" {
		opts.SortDir = "desc"
	}
	if opts.SortDir != "asc" && opts.SortDir != "desc" {
		return opts, ErrInvalidSort
	}

	if admin {
		if opts.Language != "" {
			normalized := locale.NormalizeLanguage(opts.Language)
			if normalized == "" {
				return opts, ErrInvalidLanguage
			}
			opts.Language = normalized
		}
		if opts.Status != "" && opts.Status != db.PostStatusDraft && opts.Status != db.PostStatusPublished {
			return opts, ErrInvalidStatus
		}
	} else {
		normalized := locale.NormalizeLanguage(opts.Language)
		if normalized == "" {
			normalized = locale.LanguagePrimary
		}
		opts.Language = normalized
		opts.Status = ""
	}

	return opts, nil
}

func orderClause(opts ListOptions) string {
	return fmt.Sprintf("%s %s, posts.id %s", sortColumns[opts.SortBy], opts.SortDir, opts.SortDir)
}

func totalPages(total int64, size int) int {
	if total == 0 {
		return 1
	}
	return int((total + int64(size) - 1) / int64(size))
}
