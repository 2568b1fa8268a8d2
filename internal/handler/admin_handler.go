package handler

import (
	"net/http"
	"time"

	"github.com/duolog/internal/db"
	"github.com/duolog/internal/locale"
	"github.com/duolog/internal/service"
	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type postPayload struct {
	Title    string   `json:"title"`
	Slug     string   `json:"slug"`
	Content  string   `json:"content"`
	Summary  string   `json:"summary"`
	Status   string   `json:"status"`
	Language string   `json:"language"`
	Tags     []string `json:"tags"`
}

func (p postPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&p.Content, validation.Required),
		validation.Field(&p.Status, validation.In(db.PostStatusDraft, db.PostStatusPublished)),
		validation.Field(&p.Language, validation.In(locale.LanguageChinese, locale.LanguageEnglish)),
	)
}

type translatePayload struct {
	Language string `json:"language"`
}

func (p translatePayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Language, validation.Required),
	)
}

type summarizePayload struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (p summarizePayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Content, validation.Required),
	)
}

type adminPostView struct {
	postSummary
	Status         string `json:"status"`
	DisplayStatus  string `json:"displayStatus"`
	IsTranslation  bool   `json:"isTranslation"`
	OriginalPostID *uint  `json:"originalPostId,omitempty"`
}

// AdminListPosts 返回后台文章列表：全部状态，标注 scheduled 与原文/译文关系。
func (a *API) AdminListPosts(c *gin.Context) {
	opts, ok := a.listOptionsFromQuery(c)
	if !ok {
		return
	}
	opts.Language = c.Query("lang")
	opts.Status = c.Query("status")

	result, err := a.posts.ListAdmin(opts)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	views := make([]adminPostView, 0, len(result.Posts))
	for _, post := range result.Posts {
		views = append(views, adminPostView{
			postSummary:    summarizePost(post.Post),
			Status:         post.Status,
			DisplayStatus:  post.DisplayStatus,
			IsTranslation:  post.IsTranslation,
			OriginalPostID: post.OriginalPostID,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"posts":      views,
		"total":      result.Total,
		"page":       result.Page,
		"size":       result.Size,
		"totalPages": result.TotalPages,
	})
}

// AdminGetPost 返回单篇文章的后台视图（含原始 Markdown 正文）。
func (a *API) AdminGetPost(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的文章ID")
		return
	}

	post, err := a.posts.Get(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	comments, err := a.engagement.ListComments(post.ID, false)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	now := time.Now()
	c.JSON(http.StatusOK, gin.H{
		"post":          summarizePost(*post),
		"content":       post.Content,
		"status":        post.Status,
		"displayStatus": post.DisplayStatus(now),
		"isTranslation": post.IsTranslation(),
		"comments":      viewComments(comments),
	})
}

// AdminCreatePost 创建文章。
func (a *API) AdminCreatePost(c *gin.Context) {
	var payload postPayload
	if !bindJSON(c, &payload, "请求体格式错误") {
		return
	}
	if err := payload.Validate(); err != nil {
		respondValidationError(c, err)
		return
	}

	post, err := a.posts.Create(postInputFromPayload(payload))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"post": summarizePost(*post), "status": post.Status})
}

// AdminUpdatePost 更新文章并整体替换标签集合。
func (a *API) AdminUpdatePost(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的文章ID")
		return
	}

	var payload postPayload
	if !bindJSON(c, &payload, "请求体格式错误") {
		return
	}
	if err := payload.Validate(); err != nil {
		respondValidationError(c, err)
		return
	}

	post, err := a.posts.Update(id, postInputFromPayload(payload))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"post": summarizePost(*post), "status": post.Status})
}

// AdminDeletePost 删除文章；删除原文会级联删除译文与评论。
func (a *API) AdminDeletePost(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的文章ID")
		return
	}

	if err := a.posts.Delete(id); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// AdminTranslatePost 为中文原文生成英文译文草稿。
func (a *API) AdminTranslatePost(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的文章ID")
		return
	}

	var payload translatePayload
	if !bindJSON(c, &payload, "请求体格式错误") {
		return
	}
	if err := payload.Validate(); err != nil {
		respondValidationError(c, err)
		return
	}

	translated, err := a.translations.Translate(c.Request.Context(), id, payload.Language)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"post": summarizePost(*translated), "status": translated.Status})
}

// AdminSummarizePost 为后台编辑中的草稿生成一段摘要，AI 未配置时返回 503。
func (a *API) AdminSummarizePost(c *gin.Context) {
	var payload summarizePayload
	if !bindJSON(c, &payload, "请求体格式错误") {
		return
	}
	if err := payload.Validate(); err != nil {
		respondValidationError(c, err)
		return
	}

	if a.summaries == nil {
		respondServiceError(c, service.ErrAIAPIKeyMissing)
		return
	}

	result, err := a.summaries.GenerateSummary(c.Request.Context(), service.SummaryInput{
		Title:   payload.Title,
		Content: payload.Content,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"summary": result.Summary})
}

// AdminDeleteComment 按对外 UUID 删除评论。
func (a *API) AdminDeleteComment(c *gin.Context) {
	publicID := c.Param("id")
	if err := a.engagement.DeleteComment(publicID); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": publicID})
}

func postInputFromPayload(payload postPayload) service.PostInput {
	return service.PostInput{
		Title:    payload.Title,
		Slug:     payload.Slug,
		Content:  payload.Content,
		Summary:  payload.Summary,
		Status:   payload.Status,
		Language: payload.Language,
		TagNames: payload.Tags,
	}
}
