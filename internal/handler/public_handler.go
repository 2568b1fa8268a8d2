package handler

import (
	"bytes"
	"html/template"
	"net/http"
	"time"

	"github.com/duolog/internal/db"
	"github.com/duolog/internal/service"
	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify, extension.Table),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
	)
	sanitizer        = bluemonday.UGCPolicy()
	commentSanitizer = bluemonday.StrictPolicy()
)

const (
	defaultListSize  = 10
	relatedPostCount = 4
)

type postSummary struct {
	ID        uint      `json:"id"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Language  string    `json:"language"`
	Tags      []string  `json:"tags"`
	ViewCount uint64    `json:"viewCount"`
	CreatedAt time.Time `json:"createdAt"`
}

type languageOption struct {
	Language string `json:"language"`
	Slug     string `json:"slug"`
}

type commentView struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type commentPayload struct {
	Author  string `json:"author"`
	Content string `json:"content"`
}

func (p commentPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Author, validation.Required, validation.Length(1, 80)),
		validation.Field(&p.Content, validation.Required, validation.Length(1, 4000)),
	)
}

// ListPosts 返回当前语言下公开可见的文章分页。
func (a *API) ListPosts(c *gin.Context) {
	opts, ok := a.listOptionsFromQuery(c)
	if !ok {
		return
	}
	opts.Language = a.requestLanguage(c)

	result, err := a.posts.ListPublic(opts)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	summaries := make([]postSummary, 0, len(result.Posts))
	for _, post := range result.Posts {
		summaries = append(summaries, summarizePost(post))
	}

	c.JSON(http.StatusOK, gin.H{
		"posts":      summaries,
		"total":      result.Total,
		"page":       result.Page,
		"size":       result.Size,
		"totalPages": result.TotalPages,
	})
}

// GetPost 返回单篇文章的公开读模型：正文 HTML、共享浏览数、可用语言与相关推荐。
func (a *API) GetPost(c *gin.Context) {
	language := a.requestLanguage(c)

	post, err := a.posts.GetBySlug(c.Param("slug"), language)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if err := a.engagement.RecordView(post.ID); err != nil {
		respondServiceError(c, err)
		return
	}
	viewCount, err := a.engagement.ViewCount(post.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	identityID := post.IdentityID()

	variants, err := a.translations.Variants(identityID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	now := time.Now()
	languages := make([]languageOption, 0, len(variants))
	for _, variant := range variants {
		if !variant.PubliclyVisible(now) {
			continue
		}
		languages = append(languages, languageOption{Language: variant.Language, Slug: variant.Slug})
	}

	contentHTML, err := renderMarkdown(post.Content)
	if err != nil {
		contentHTML = template.HTML("")
	}

	related := []service.RelatedPost{}
	if a.embeddings != nil {
		related = a.embeddings.FindRelated(c.Request.Context(), identityID, relatedPostCount)
	}

	c.JSON(http.StatusOK, gin.H{
		"post":      summarizePost(*post),
		"content":   contentHTML,
		"viewCount": viewCount,
		"languages": languages,
		"related":   related,
	})
}

// ListComments 返回文章的共享评论串（所有语言版本看到同一份）。
func (a *API) ListComments(c *gin.Context) {
	post, err := a.posts.GetBySlug(c.Param("slug"), a.requestLanguage(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	comments, err := a.engagement.ListComments(post.ID, true)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"comments": viewComments(comments)})
}

// CreateComment 在文章的共享评论串上新增一条评论。
func (a *API) CreateComment(c *gin.Context) {
	var payload commentPayload
	if !bindJSON(c, &payload, "请求体格式错误") {
		return
	}
	if err := payload.Validate(); err != nil {
		respondValidationError(c, err)
		return
	}

	post, err := a.posts.GetBySlug(c.Param("slug"), a.requestLanguage(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	comment, err := a.engagement.CreateComment(post.ID, service.CommentInput{
		Author:  commentSanitizer.Sanitize(payload.Author),
		Content: commentSanitizer.Sanitize(payload.Content),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"comment": viewComment(*comment)})
}

func (a *API) listOptionsFromQuery(c *gin.Context) (service.ListOptions, bool) {
	page, err := parseIntQuery(c, "page", 0)
	if err != nil {
		respondError(c, http.StatusBadRequest, "page 参数无效")
		return service.ListOptions{}, false
	}
	size, err := parseIntQuery(c, "size", defaultListSize)
	if err != nil {
		respondError(c, http.StatusBadRequest, "size 参数无效")
		return service.ListOptions{}, false
	}

	return service.ListOptions{
		TagName: c.Query("tag"),
		Page:    page,
		Size:    size,
		SortBy:  c.Query("sort"),
		SortDir: c.Query("direction"),
	}, true
}

func summarizePost(post db.Post) postSummary {
	tags := make([]string, 0, len(post.Tags))
	for _, tag := range post.Tags {
		tags = append(tags, tag.Name)
	}
	return postSummary{
		ID:        post.ID,
		Slug:      post.Slug,
		Title:     post.Title,
		Summary:   post.Summary,
		Language:  post.Language,
		Tags:      tags,
		ViewCount: post.ViewCount,
		CreatedAt: post.CreatedAt,
	}
}

func viewComments(comments []db.Comment) []commentView {
	views := make([]commentView, 0, len(comments))
	for _, comment := range comments {
		views = append(views, viewComment(comment))
	}
	return views
}

func viewComment(comment db.Comment) commentView {
	return commentView{
		ID:        comment.PublicID,
		Author:    comment.Author,
		Content:   comment.Content,
		CreatedAt: comment.CreatedAt,
	}
}

func renderMarkdown(content string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(content), &buf); err != nil {
		return "", err
	}
	return template.HTML(sanitizer.SanitizeBytes(buf.Bytes())), nil
}
