package config

import (
	"context"
	"fmt"
	"sync"

	"github.com/stake-plus/sevenkey-bot/src/data"
	"github.com/stake-plus/sevenkey-bot/src/verification"
	"gorm.io/gorm"
)

const (
	SettingAdminChannel        = "admin_channel_id"
	SettingVerificationChannel = "verification_channel_id"
	SettingMemberRole          = "member_role_name"

	defaultMemberRole = "Member"
)

// Verification is the in-memory verification configuration. It is read on
// every request and only changes through Reload or the setters.
type Verification struct {
	mu             sync.RWMutex
	db             *gorm.DB
	adminChannel   string
	verifyChannel  string
	memberRole     string
	emojiOverrides map[string]string
}

// NewVerification creates the configuration object and loads it from db.
func NewVerification(ctx context.Context, db *gorm.DB) (*Verification, error) {
	v := &Verification{db: db}
	if err := v.Reload(ctx); err != nil {
		return nil, err
	}
	return v, nil
}

// Reload re-reads settings and emoji overrides from the database.
func (v *Verification) Reload(ctx context.Context) error {
	if err := data.LoadSettings(v.db.WithContext(ctx)); err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	overrides, err := data.LoadEmojiOverrides(ctx, v.db)
	if err != nil {
		return fmt.Errorf("load emoji overrides: %w", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.adminChannel = GetSetting(SettingAdminChannel, "ADMIN_CHANNEL_ID", "")
	v.verifyChannel = GetSetting(SettingVerificationChannel, "VERIFICATION_CHANNEL_ID", "")
	v.memberRole = GetSetting(SettingMemberRole, "MEMBER_ROLE_NAME", defaultMemberRole)
	v.emojiOverrides = overrides
	return nil
}

// Channels returns the verification and admin channel ids.
func (v *Verification) Channels() (string, string, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.verifyChannel == "" || v.adminChannel == "" {
		return "", "", verification.ErrNotConfigured
	}
	return v.verifyChannel, v.adminChannel, nil
}

// EmojiOverrides returns a copy of the override map.
func (v *Verification) EmojiOverrides() map[string]string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make(map[string]string, len(v.emojiOverrides))
	for k, val := range v.emojiOverrides {
		out[k] = val
	}
	return out
}

func (v *Verification) MemberRoleName() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.memberRole == "" {
		return defaultMemberRole
	}
	return v.memberRole
}

// SetAdminChannel persists the admin channel and reloads.
func (v *Verification) SetAdminChannel(ctx context.Context, channelID string) error {
	return v.save(ctx, SettingAdminChannel, channelID)
}

// SetVerificationChannel persists the verification channel and reloads.
func (v *Verification) SetVerificationChannel(ctx context.Context, channelID string) error {
	return v.save(ctx, SettingVerificationChannel, channelID)
}

// SetEmojiOverride persists an override and reloads. An empty target removes it.
func (v *Verification) SetEmojiOverride(ctx context.Context, shortcode, target string) error {
	if err := data.SetEmojiOverride(ctx, v.db, shortcode, target); err != nil {
		return err
	}
	return v.Reload(ctx)
}

func (v *Verification) save(ctx context.Context, name, value string) error {
	if err := data.SaveSetting(ctx, v.db, name, value); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	return v.Reload(ctx)
}
