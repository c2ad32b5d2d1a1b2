package data

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LoadEmojiOverrides returns every override keyed by the derived shortcode.
func LoadEmojiOverrides(ctx context.Context, db *gorm.DB) (map[string]string, error) {
	var rows []EmojiOverride
	if err := db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Shortcode] = r.Target
	}
	return out, nil
}

// SetEmojiOverride stores an override. An empty target deletes it.
func SetEmojiOverride(ctx context.Context, db *gorm.DB, shortcode, target string) error {
	shortcode = strings.ToLower(strings.TrimSpace(shortcode))
	target = strings.Trim(strings.ToLower(strings.TrimSpace(target)), ":")

	if target == "" {
		return db.WithContext(ctx).Delete(&EmojiOverride{}, "shortcode = ?", shortcode).Error
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "shortcode"}},
		DoUpdates: clause.AssignmentColumns([]string{"target", "updated_at"}),
	}).Create(&EmojiOverride{Shortcode: shortcode, Target: target}).Error
}
