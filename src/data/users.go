package data

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/stake-plus/sevenkey-bot/src/game"
	"github.com/stake-plus/sevenkey-bot/src/verification"
)

// ErrUserExists is returned by Insert when either uniqueness rule is violated.
var ErrUserExists = errors.New("verified user already exists")

// UserStore is the durable users table backed by gorm.
type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func usernameKey(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// FindByGameAndUsername returns the chat user owning the account, if any.
func (s *UserStore) FindByGameAndUsername(ctx context.Context, g game.Game, username string) (string, bool, error) {
	var u User
	res := s.db.WithContext(ctx).
		Where("game = ? AND username_key = ?", string(g), usernameKey(username)).
		Limit(1).Find(&u)
	if res.Error != nil {
		return "", false, res.Error
	}
	if res.RowsAffected == 0 {
		return "", false, nil
	}
	return u.DiscordID, true, nil
}

// FindByRequester returns the username the chat user is verified as, if any.
func (s *UserStore) FindByRequester(ctx context.Context, requesterID string) (string, bool, error) {
	var u User
	res := s.db.WithContext(ctx).Where("discord_id = ?", requesterID).Limit(1).Find(&u)
	if res.Error != nil {
		return "", false, res.Error
	}
	if res.RowsAffected == 0 {
		return "", false, nil
	}
	return u.Username, true, nil
}

// Insert stores a verified user. The uniqueness check runs in the same
// transaction so concurrent approvals cannot both succeed.
func (s *UserStore) Insert(ctx context.Context, vu verification.VerifiedUser) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&User{}).
			Where("discord_id = ? OR (game = ? AND username_key = ?)", vu.RequesterID, string(vu.Game), usernameKey(vu.Username)).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrUserExists
		}
		return tx.Create(&User{
			DiscordID:   vu.RequesterID,
			Game:        string(vu.Game),
			UsernameKey: usernameKey(vu.Username),
			PlayerID:    vu.ExternalID,
			Username:    vu.Username,
			Country:     vu.Country,
		}).Error
	})
}

// Remove deletes the row for a game account and returns the chat user it
// belonged to.
func (s *UserStore) Remove(ctx context.Context, g game.Game, username string) (string, bool, error) {
	var u User
	res := s.db.WithContext(ctx).
		Where("game = ? AND username_key = ?", string(g), usernameKey(username)).
		Limit(1).Find(&u)
	if res.Error != nil {
		return "", false, res.Error
	}
	if res.RowsAffected == 0 {
		return "", false, nil
	}
	if err := s.db.WithContext(ctx).Delete(&u).Error; err != nil {
		return "", false, fmt.Errorf("delete user %d: %w", u.ID, err)
	}
	return u.DiscordID, true, nil
}

// CountryCount is one row of the per-country tally.
type CountryCount struct {
	Country string
	Members int64
}

// TopCountries returns the countries with the most verified members.
func (s *UserStore) TopCountries(ctx context.Context, limit int) ([]CountryCount, error) {
	var out []CountryCount
	err := s.db.WithContext(ctx).Model(&User{}).
		Select("country, COUNT(*) AS members").
		Where("country <> ''").
		Group("country").
		Order("members DESC, country ASC").
		Limit(limit).
		Scan(&out).Error
	return out, err
}

// Count returns the number of verified users.
func (s *UserStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&User{}).Count(&n).Error
	return n, err
}
