package db

import "time"

// Comment 挂在原文（identity post）上，所有语言版本共享同一评论串。
// 数字主键保留插入顺序，同秒创建的评论依然有稳定的排序；对外暴露 PublicID。
type Comment struct {
	ID        uint   `gorm:"primaryKey"`
	PublicID  string `gorm:"size:36;uniqueIndex;not null"`
	PostID    uint   `gorm:"index;not null"`
	Author    string `gorm:"size:80;not null"`
	Content   string `gorm:"not null"`
	CreatedAt time.Time
}

// TableName 指定自定义表名。
func (Comment) TableName() string {
	return "comments"
}
