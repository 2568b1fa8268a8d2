package service

import (
	"strings"

	"github.com/duolog/internal/db"
	"gorm.io/gorm"
)

// replaceTags 用给定名字的标签整体替换文章的标签集合（不存在的标签会创建），
// 并在同一事务内刷新受影响标签的冗余计数。
func replaceTags(tx *gorm.DB, post *db.Post, names []string) error {
	previous, err := associatedTags(tx, post)
	if err != nil {
		return err
	}

	tags := make([]db.Tag, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}

		var tag db.Tag
		if err := tx.Where("name = ?", name).FirstOrCreate(&tag, db.Tag{Name: name}).Error; err != nil {
			return err
		}
		tags = append(tags, tag)
	}

	if err := tx.Model(post).Association("Tags").Replace(tags); err != nil {
		return err
	}

	return recountTags(tx, tagIDSet(previous, tags))
}

// clearTags 解除文章的全部标签关联并刷新计数。
func clearTags(tx *gorm.DB, post *db.Post) error {
	previous, err := associatedTags(tx, post)
	if err != nil {
		return err
	}
	if len(previous) == 0 {
		return nil
	}

	if err := tx.Model(post).Association("Tags").Clear(); err != nil {
		return err
	}

	return recountTags(tx, tagIDSet(previous, nil))
}

func associatedTags(tx *gorm.DB, post *db.Post) ([]db.Tag, error) {
	if post.ID == 0 {
		return nil, nil
	}
	var tags []db.Tag
	if err := tx.Model(post).Association("Tags").Find(&tags); err != nil {
		return nil, err
	}
	return tags, nil
}

// recountTags 以关联表为准重算计数，和关联变更处于同一事务，避免增量维护漂移。
func recountTags(tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return tx.Model(&db.Tag{}).
		Where("id IN ?", ids).
		Update("post_count", gorm.Expr("(SELECT COUNT(*) FROM post_tags WHERE post_tags.tag_id = tags.id)")).Error
}

func tagIDSet(groups ...[]db.Tag) []uint {
	seen := make(map[uint]struct{})
	ids := make([]uint, 0)
	for _, group := range groups {
		for _, tag := range group {
			if _, ok := seen[tag.ID]; ok {
				continue
			}
			seen[tag.ID] = struct{}{}
			ids = append(ids, tag.ID)
		}
	}
	return ids
}
