package config

import (
	"time"

	"github.com/stake-plus/sevenkey-bot/src/profiles"
	"gorm.io/gorm"
)

// ProfilesConfig holds the game API endpoints and credentials.
type ProfilesConfig struct {
	OsuClientID     string
	OsuClientSecret string
	OsuAPI          string
	OsuTokenURL     string
	QuaverAPI       string
	TachiAPI        string
	DMJamAPI        string
	HTTPTimeout     time.Duration
}

// OsuEnabled reports whether osu! credentials are present.
func (c ProfilesConfig) OsuEnabled() bool {
	return c.OsuClientID != "" && c.OsuClientSecret != ""
}

// StatusConfig configures the HTTP status server.
type StatusConfig struct {
	Addr        string
	CORSOrigins []string
	Enabled     bool
}

// BotConfig is everything the bot process needs at start.
type BotConfig struct {
	Base
	Profiles ProfilesConfig
	Status   StatusConfig

	// VerifyRate is the sustained number of !verify commands per second a
	// single member may issue; VerifyBurst is the bucket size.
	VerifyRate  float64
	VerifyBurst int
}

// LoadBotConfig loads the bot configuration
func LoadBotConfig(db *gorm.DB) BotConfig {
	base := LoadBase(db)

	profilesCfg := ProfilesConfig{
		OsuClientID:     GetSetting("osu_client_id", "OSU_CLIENT_ID", ""),
		OsuClientSecret: GetSetting("osu_client_secret", "OSU_CLIENT_SECRET", ""),
		OsuAPI:          GetSetting("osu_api_url", "OSU_API_URL", profiles.DefaultOsuAPI),
		OsuTokenURL:     GetSetting("osu_token_url", "OSU_TOKEN_URL", profiles.DefaultOsuTokenURL),
		QuaverAPI:       GetSetting("quaver_api_url", "QUAVER_API_URL", profiles.DefaultQuaverAPI),
		TachiAPI:        GetSetting("tachi_api_url", "TACHI_API_URL", profiles.DefaultTachiAPI),
		DMJamAPI:        GetSetting("dmjam_api_url", "DMJAM_API_URL", profiles.DefaultDMJamAPI),
		HTTPTimeout:     getDurationSetting("profiles_http_timeout", "PROFILES_HTTP_TIMEOUT", 15*time.Second),
	}

	origins := parseCSV(GetSetting("status_cors_origins", "STATUS_CORS_ORIGINS", "*"))

	return BotConfig{
		Base:     base,
		Profiles: profilesCfg,
		Status: StatusConfig{
			Addr:        GetSetting("status_addr", "STATUS_ADDR", ":8080"),
			CORSOrigins: origins,
			Enabled:     getBoolSetting("enable_status", "ENABLE_STATUS", true),
		},
		VerifyRate:  getFloatSetting("verify_rate_per_second", "VERIFY_RATE_PER_SECOND", 1.0/30),
		VerifyBurst: int(getFloatSetting("verify_burst", "VERIFY_BURST", 2)),
	}
}
