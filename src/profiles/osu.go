package profiles

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/stake-plus/sevenkey-bot/src/game"
	"github.com/stake-plus/sevenkey-bot/src/webclient"
)

const (
	DefaultOsuAPI      = "https://osu.ppy.sh/api/v2"
	DefaultOsuTokenURL = "https://osu.ppy.sh/oauth/token"
)

// OsuConfig holds the osu! OAuth application credentials.
type OsuConfig struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	TokenURL     string
}

// Osu fetches osu!mania profiles from API v2.
type Osu struct {
	base string
	json *webclient.JSON
}

type osuUser struct {
	ID          uint32 `json:"id"`
	Username    string `json:"username"`
	CountryCode string `json:"country_code"`
	AvatarURL   string `json:"avatar_url"`
	Statistics  *struct {
		GlobalRank  *uint32 `json:"global_rank"`
		CountryRank *uint32 `json:"country_rank"`
		PlayTime    uint64  `json:"play_time"`
		Level       struct {
			Current uint32 `json:"current"`
		} `json:"level"`
	} `json:"statistics"`
}

// NewOsu builds an osu! fetcher. Tokens come from the client-credentials grant
// and are refreshed by the oauth2 transport. hc, if set, is used for both the
// token and API requests.
func NewOsu(cfg OsuConfig, hc *http.Client) *Osu {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOsuAPI
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultOsuTokenURL
	}
	if hc == nil {
		hc = webclient.NewDefault(0)
	}

	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       []string{"public"},
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, hc)
	authed := cc.Client(ctx)
	authed.Timeout = hc.Timeout

	return &Osu{base: strings.TrimRight(cfg.BaseURL, "/"), json: webclient.NewJSON(authed)}
}

// Fetch loads a user by numeric id or username.
func (o *Osu) Fetch(ctx context.Context, account string) (*game.Profile, error) {
	account = strings.TrimSpace(account)
	key := account
	if _, err := strconv.ParseUint(account, 10, 32); err != nil {
		key = "@" + account
	}

	var u osuUser
	endpoint := fmt.Sprintf("%s/users/%s/mania", o.base, url.PathEscape(key))
	if err := o.json.GetJSON(ctx, endpoint, nil, &u); err != nil {
		return nil, err
	}
	if u.ID == 0 {
		return nil, nil
	}

	p := &game.Profile{
		Game:      game.Osu,
		ID:        u.ID,
		Username:  u.Username,
		Country:   strings.ToUpper(strings.TrimSpace(u.CountryCode)),
		AvatarURL: u.AvatarURL,
		Link:      fmt.Sprintf("https://osu.ppy.sh/users/%d", u.ID),
	}
	if s := u.Statistics; s != nil {
		p.Ranks = game.Ranks{Global: s.GlobalRank, Country: s.CountryRank}
		p.PlaytimeHours = game.Uint(uint32(s.PlayTime / 3600))
		p.Level = game.Uint(s.Level.Current)
	}
	return p, nil
}
