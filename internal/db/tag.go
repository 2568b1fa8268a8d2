package db

import "gorm.io/gorm"

// Tag 定义了标签模型。PostCount 是冗余计数，随关联变更在同一事务内维护。
type Tag struct {
	gorm.Model
	Name      string `gorm:"unique;not null"`
	PostCount int64  `gorm:"not null;default:0"`
	Posts     []Post `gorm:"many2many:post_tags;"`
}
