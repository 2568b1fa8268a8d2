package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/duolog/internal/db"
)

func TestPostServiceCreateDerivesSlugAndDefaults(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewPostService(gdb)

	post, err := svc.Create(PostInput{
		Title:    "Hello, World! 你好",
		Content:  "first post",
		TagNames: []string{"Go", "go", " web "},
	})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}

	if post.Slug != "hello-world-你好" {
		t.Fatalf("expected derived slug, got %q", post.Slug)
	}
	if post.Status != db.PostStatusDraft {
		t.Fatalf("expected default status draft, got %q", post.Status)
	}
	if post.Language != "zh" {
		t.Fatalf("expected default language zh, got %q", post.Language)
	}
	if len(post.Tags) != 2 {
		t.Fatalf("expected deduped tags, got %d", len(post.Tags))
	}
}

func TestPostServiceCreateValidatesInput(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewPostService(gdb)

	cases := []struct {
		name  string
		input PostInput
		want  error
	}{
		{"missing title", PostInput{Content: "body"}, ErrTitleRequired},
		{"missing content", PostInput{Title: "标题"}, ErrContentRequired},
		{"bad status", PostInput{Title: "标题", Content: "body", Status: "archived"}, ErrInvalidStatus},
		{"bad language", PostInput{Title: "标题", Content: "body", Language: "fr"}, ErrInvalidLanguage},
		{"unsluggable title", PostInput{Title: "!!!", Content: "body"}, ErrSlugRequired},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(tc.input); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestPostServiceSlugUniquePerLanguage(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewPostService(gdb)

	input := PostInput{Title: "Go Notes", Content: "body", Status: db.PostStatusPublished}
	if _, err := svc.Create(input); err != nil {
		t.Fatalf("create first post: %v", err)
	}

	if _, err := svc.Create(input); !errors.Is(err, ErrSlugExists) {
		t.Fatalf("expected ErrSlugExists for same locale, got %v", err)
	}

	english := input
	english.Language = "en"
	if _, err := svc.Create(english); err != nil {
		t.Fatalf("same slug in another locale should be allowed: %v", err)
	}
}

func TestPostServiceSlugReusableAfterDelete(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewPostService(gdb)

	input := PostInput{Title: "Reuse Me", Content: "body"}
	post, err := svc.Create(input)
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	if err := svc.Delete(post.ID); err != nil {
		t.Fatalf("delete post: %v", err)
	}
	if _, err := svc.Create(input); err != nil {
		t.Fatalf("slug should be reusable after delete: %v", err)
	}
}

func TestPostServiceUpdateKeepsLanguageAndReplacesTags(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewPostService(gdb)

	post, err := svc.Create(PostInput{
		Title:    "Original",
		Content:  "body",
		Language: "en",
		TagNames: []string{"go", "web"},
	})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}

	updated, err := svc.Update(post.ID, PostInput{
		Title:    "Original",
		Content:  "updated body",
		Status:   db.PostStatusPublished,
		Language: "zh",
		TagNames: []string{"go", "ai"},
	})
	if err != nil {
		t.Fatalf("update post: %v", err)
	}

	if updated.Language != "en" {
		t.Fatalf("language must not change on update, got %q", updated.Language)
	}

	names := make(map[string]bool)
	for _, tag := range updated.Tags {
		names[tag.Name] = true
	}
	if !names["go"] || !names["ai"] || names["web"] {
		t.Fatalf("unexpected tag set after update: %v", names)
	}

	var web db.Tag
	if err := gdb.Where("name = ?", "web").First(&web).Error; err != nil {
		t.Fatalf("load tag web: %v", err)
	}
	if web.PostCount != 0 {
		t.Fatalf("expected web post_count 0, got %d", web.PostCount)
	}
}

func TestPostServiceListPublicPagination(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewPostService(gdb)

	base := time.Now().Add(-24 * time.Hour)
	for i := 0; i < 15; i++ {
		post := db.Post{
			Slug:     fmt.Sprintf("post-%02d", i),
			Language: "zh",
			Title:    "文章",
			Content:  "body",
			Status:   db.PostStatusPublished,
		}
		post.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := gdb.Create(&post).Error; err != nil {
			t.Fatalf("seed post %d: %v", i, err)
		}
	}

	result, err := svc.ListPublic(ListOptions{Page: 1, Size: 5})
	if err != nil {
		t.Fatalf("list public: %v", err)
	}
	if result.Total != 15 {
		t.Fatalf("expected total 15, got %d", result.Total)
	}
	if len(result.Posts) != 5 {
		t.Fatalf("expected 5 posts on page, got %d", len(result.Posts))
	}
	if result.TotalPages != 3 {
		t.Fatalf("expected 3 total pages, got %d", result.TotalPages)
	}

	// 默认按创建时间降序，第二页的第一条应当是第 10 新的
	if result.Posts[0].CreatedAt.After(base.Add(10 * time.Minute)) {
		t.Fatalf("unexpected ordering on second page")
	}
}

func TestPostServiceListValidation(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewPostService(gdb)

	cases := []struct {
		name string
		opts ListOptions
		want error
	}{
		{"negative page", ListOptions{Page: -1, Size: 10}, ErrInvalidPage},
		{"zero size", ListOptions{Size: 0}, ErrInvalidPageSize},
		{"oversized page", ListOptions{Size: 101}, ErrInvalidPageSize},
		{"unknown sort key", ListOptions{Size: 10, SortBy: "content"}, ErrInvalidSort},
		{"bad direction", ListOptions{Size: 10, SortBy: "title", SortDir: "sideways"}, ErrInvalidSort},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.ListPublic(tc.opts); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	if _, err := svc.ListPublic(ListOptions{Size: 10, SortBy: "view_count", SortDir: "asc"}); err != nil {
		t.Fatalf("view_count asc should be accepted: %v", err)
	}
}

func TestPostServiceScheduledHiddenFromPublic(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewPostService(gdb)

	scheduled := db.Post{
		Slug:     "future-post",
		Language: "zh",
		Title:    "定时文章",
		Content:  "body",
		Status:   db.PostStatusPublished,
	}
	scheduled.CreatedAt = time.Now().Add(48 * time.Hour)
	if err := gdb.Create(&scheduled).Error; err != nil {
		t.Fatalf("seed scheduled post: %v", err)
	}

	public, err := svc.ListPublic(ListOptions{Size: 10})
	if err != nil {
		t.Fatalf("list public: %v", err)
	}
	if len(public.Posts) != 0 {
		t.Fatalf("scheduled post must not appear publicly, got %d posts", len(public.Posts))
	}

	if _, err := svc.GetBySlug("future-post", "zh"); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("expected ErrPostNotFound for scheduled post, got %v", err)
	}

	admin, err := svc.ListAdmin(ListOptions{Size: 10})
	if err != nil {
		t.Fatalf("list admin: %v", err)
	}
	if len(admin.Posts) != 1 {
		t.Fatalf("expected scheduled post in admin list, got %d", len(admin.Posts))
	}
	if admin.Posts[0].DisplayStatus != db.DisplayStatusScheduled {
		t.Fatalf("expected display status scheduled, got %q", admin.Posts[0].DisplayStatus)
	}
}

func TestPostServiceListPublicDefaultsToPrimaryLanguage(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewPostService(gdb)

	createTestPost(t, gdb, db.Post{Slug: "zh-post", Language: "zh"})
	createTestPost(t, gdb, db.Post{Slug: "en-post", Language: "en"})

	result, err := svc.ListPublic(ListOptions{Size: 10})
	if err != nil {
		t.Fatalf("list public: %v", err)
	}
	if len(result.Posts) != 1 || result.Posts[0].Slug != "zh-post" {
		t.Fatalf("expected only zh post by default, got %+v", result.Posts)
	}
}

func TestPostServiceTagFilter(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewPostService(gdb)

	if _, err := svc.Create(PostInput{Title: "With Tag", Content: "body", Status: db.PostStatusPublished, TagNames: []string{"go"}}); err != nil {
		t.Fatalf("create tagged post: %v", err)
	}
	if _, err := svc.Create(PostInput{Title: "Without Tag", Content: "body", Status: db.PostStatusPublished}); err != nil {
		t.Fatalf("create untagged post: %v", err)
	}

	result, err := svc.ListPublic(ListOptions{Size: 10, TagName: "go"})
	if err != nil {
		t.Fatalf("list by tag: %v", err)
	}
	if len(result.Posts) != 1 || result.Posts[0].Slug != "with-tag" {
		t.Fatalf("expected only tagged post, got %+v", result.Posts)
	}
}

func TestPostServiceTranslationSharesViewCountInLists(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewPostService(gdb)

	identity := createTestPost(t, gdb, db.Post{Slug: "shared-views", Language: "zh", ViewCount: 42})
	createTestTranslation(t, gdb, identity, "en")

	result, err := svc.ListPublic(ListOptions{Size: 10, Language: "en"})
	if err != nil {
		t.Fatalf("list english posts: %v", err)
	}
	if len(result.Posts) != 1 {
		t.Fatalf("expected one english post, got %d", len(result.Posts))
	}
	if result.Posts[0].ViewCount != 42 {
		t.Fatalf("translation should surface identity view count, got %d", result.Posts[0].ViewCount)
	}
}

func TestPostServiceDeleteIdentityCascades(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewPostService(gdb)

	identity, err := svc.Create(PostInput{Title: "Cascade", Content: "body", Status: db.PostStatusPublished, TagNames: []string{"go"}})
	if err != nil {
		t.Fatalf("create identity: %v", err)
	}
	translation := createTestTranslation(t, gdb, identity, "en")

	comment := db.Comment{PublicID: "11111111-1111-1111-1111-111111111111", PostID: identity.ID, Author: "访客", Content: "不错"}
	if err := gdb.Create(&comment).Error; err != nil {
		t.Fatalf("seed comment: %v", err)
	}

	if err := svc.Delete(identity.ID); err != nil {
		t.Fatalf("delete identity: %v", err)
	}

	if _, err := svc.Get(identity.ID); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("identity should be gone, got %v", err)
	}
	if _, err := svc.Get(translation.ID); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("translation should cascade, got %v", err)
	}

	var commentCount int64
	if err := gdb.Model(&db.Comment{}).Where("post_id = ?", identity.ID).Count(&commentCount).Error; err != nil {
		t.Fatalf("count comments: %v", err)
	}
	if commentCount != 0 {
		t.Fatalf("comments should cascade, got %d", commentCount)
	}

	var tag db.Tag
	if err := gdb.Where("name = ?", "go").First(&tag).Error; err != nil {
		t.Fatalf("load tag: %v", err)
	}
	if tag.PostCount != 0 {
		t.Fatalf("expected tag post_count 0 after cascade, got %d", tag.PostCount)
	}
}

func TestPostServiceWritesDispatchIndexing(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewPostService(gdb)

	store := newFakeStore()
	embeddings := NewEmbeddingService(gdb, &fakeEmbedder{vec: []float32{0.1, 0.2}}, store)
	embeddings.sleep = func(time.Duration) {}
	svc.SetEmbeddingService(embeddings)

	post, err := svc.Create(PostInput{Title: "Indexed", Content: "body", Status: db.PostStatusPublished})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}

	if len(store.upserts) != 1 {
		t.Fatalf("expected one upsert after create, got %d", len(store.upserts))
	}
	if store.upserts[0].ID != VectorID(post.ID) {
		t.Fatalf("unexpected vector id %q", store.upserts[0].ID)
	}

	if err := svc.Delete(post.ID); err != nil {
		t.Fatalf("delete post: %v", err)
	}
	if len(store.deleted) != 1 || store.deleted[0] != VectorID(post.ID) {
		t.Fatalf("expected vector delete for %q, got %v", VectorID(post.ID), store.deleted)
	}
}

func TestPostServiceWriteSucceedsWhenIndexingFails(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewPostService(gdb)

	store := newFakeStore()
	store.upsertErr = errors.New("index offline")
	embeddings := NewEmbeddingService(gdb, &fakeEmbedder{vec: []float32{0.1}}, store)
	embeddings.sleep = func(time.Duration) {}
	svc.SetEmbeddingService(embeddings)

	post, err := svc.Create(PostInput{Title: "Best Effort", Content: "body"})
	if err != nil {
		t.Fatalf("create should succeed despite indexing failure: %v", err)
	}
	if _, err := svc.Get(post.ID); err != nil {
		t.Fatalf("post should be persisted: %v", err)
	}
}
