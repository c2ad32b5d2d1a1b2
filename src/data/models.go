package data

import "time"

// Setting is one row of the name/value settings table.
type Setting struct {
	ID    uint   `gorm:"primaryKey"`
	Name  string `gorm:"size:64;not null;uniqueIndex"`
	Value string `gorm:"type:text;not null"`
}

// User is a verified member. A chat user holds at most one verified account
// and a game account belongs to at most one chat user.
type User struct {
	ID          uint      `gorm:"primaryKey"`
	DiscordID   string    `gorm:"size:32;not null;uniqueIndex"`
	Game        string    `gorm:"size:16;not null;uniqueIndex:idx_users_game_username"`
	UsernameKey string    `gorm:"size:64;not null;uniqueIndex:idx_users_game_username"`
	PlayerID    uint32    `gorm:"not null"`
	Username    string    `gorm:"size:64;not null"`
	Country     string    `gorm:"size:2"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

// EmojiOverride maps a derived country shortcode to the shortcode to use instead.
type EmojiOverride struct {
	Shortcode string    `gorm:"primaryKey;size:64"`
	Target    string    `gorm:"size:64;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

var allModels = []interface{}{&Setting{}, &User{}, &EmojiOverride{}}
