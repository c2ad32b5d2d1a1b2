package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/stake-plus/sevenkey-bot/src/data"
	"gorm.io/gorm"
)

// Base contains common configuration fields
type Base struct {
	Token    string
	GuildID  string
	DSN      string
	RedisURL string
}

// LoadBase loads common configuration (discord token, guild ID, database DSN, Redis URL)
func LoadBase(db *gorm.DB) Base {
	if err := data.LoadSettings(db); err != nil {
		log.Printf("config: load settings: %v (using env fallbacks)", err)
	}

	dsn, _ := data.GetDSN()
	return Base{
		Token:    GetSetting("discord_token", "DISCORD_TOKEN", ""),
		GuildID:  GetSetting("guild_id", "GUILD_ID", ""),
		DSN:      dsn,
		RedisURL: GetSetting("redis_url", "REDIS_URL", ""),
	}
}

// GetSetting retrieves a setting with env fallback
func GetSetting(name, envKey, defaultValue string) string {
	val := data.GetSetting(name)
	if val == "" && envKey != "" {
		val = os.Getenv(envKey)
	}
	if val == "" {
		val = defaultValue
	}
	return val
}

func getBoolSetting(settingKey, envKey string, defaultValue bool) bool {
	return parseBoolDefault(GetSetting(settingKey, envKey, ""), defaultValue)
}

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getFloatSetting(settingKey, envKey string, defaultValue float64) float64 {
	raw := GetSetting(settingKey, envKey, "")
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return defaultValue
	}
	return v
}

func getDurationSetting(settingKey, envKey string, defaultValue time.Duration) time.Duration {
	raw := GetSetting(settingKey, envKey, "")
	if raw == "" {
		return defaultValue
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	return defaultValue
}

func parseCSV(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == '|' || r == ' '
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if trimmed := strings.TrimSpace(f); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
