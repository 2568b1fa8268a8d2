package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/duolog/internal/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:duolog-service-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return gdb
}

func createTestPost(t *testing.T, gdb *gorm.DB, post db.Post) *db.Post {
	t.Helper()
	if post.Status == "" {
		post.Status = db.PostStatusPublished
	}
	if post.Language == "" {
		post.Language = "zh"
	}
	if post.Title == "" {
		post.Title = "测试文章"
	}
	if post.Content == "" {
		post.Content = "正文内容"
	}
	if err := gdb.Create(&post).Error; err != nil {
		t.Fatalf("create test post: %v", err)
	}
	return &post
}

func createTestTranslation(t *testing.T, gdb *gorm.DB, identity *db.Post, language string) *db.Post {
	t.Helper()
	originalID := identity.ID
	translation := db.Post{
		Slug:           identity.Slug,
		Language:       language,
		Title:          "Translated " + identity.Title,
		Content:        "translated content",
		Status:         identity.Status,
		OriginalPostID: &originalID,
	}
	translation.CreatedAt = identity.CreatedAt
	if err := gdb.Create(&translation).Error; err != nil {
		t.Fatalf("create test translation: %v", err)
	}
	return &translation
}
