package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/stake-plus/sevenkey-bot/src/data"
	"github.com/stake-plus/sevenkey-bot/src/verification"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := data.ConnectDB("sqlite:file:" + t.Name() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, data.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestParseBoolDefault(t *testing.T) {
	assert.True(t, parseBoolDefault("YES", false))
	assert.False(t, parseBoolDefault("off", true))
	assert.True(t, parseBoolDefault("maybe", true))
}

func TestGetSettingFallbacks(t *testing.T) {
	t.Setenv("SEVENKEY_TEST_VALUE", "from-env")
	assert.Equal(t, "from-env", GetSetting("sevenkey_missing", "SEVENKEY_TEST_VALUE", "default"))
	assert.Equal(t, "default", GetSetting("sevenkey_missing", "", "default"))
}

func TestVerificationConfig(t *testing.T) {
	t.Setenv("ADMIN_CHANNEL_ID", "")
	t.Setenv("VERIFICATION_CHANNEL_ID", "")
	t.Setenv("MEMBER_ROLE_NAME", "")

	ctx := context.Background()
	v, err := NewVerification(ctx, openTestDB(t))
	require.NoError(t, err)

	_, _, err = v.Channels()
	assert.ErrorIs(t, err, verification.ErrNotConfigured)
	assert.Equal(t, "Member", v.MemberRoleName())

	require.NoError(t, v.SetAdminChannel(ctx, "admin"))
	_, _, err = v.Channels()
	assert.ErrorIs(t, err, verification.ErrNotConfigured, "both channels are required")

	require.NoError(t, v.SetVerificationChannel(ctx, "verify"))
	verify, admin, err := v.Channels()
	require.NoError(t, err)
	assert.Equal(t, "verify", verify)
	assert.Equal(t, "admin", admin)

	require.NoError(t, v.SetEmojiOverride(ctx, "country_with_no_emoji", "france"))
	overrides := v.EmojiOverrides()
	assert.Equal(t, "france", overrides["country_with_no_emoji"])
	overrides["mutated"] = "x"
	assert.NotContains(t, v.EmojiOverrides(), "mutated")
}

func TestParseCSV(t *testing.T) {
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, parseCSV(" https://a.example, https://b.example ;"))
}
