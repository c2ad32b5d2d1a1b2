package profiles

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/stake-plus/sevenkey-bot/src/game"
	"github.com/stake-plus/sevenkey-bot/src/webclient"
)

const DefaultQuaverAPI = "https://api.quavergame.com/v1"

// Quaver fetches 7K profiles from the Quaver API.
type Quaver struct {
	base string
	json *webclient.JSON
}

type quaverResponse struct {
	User *struct {
		Info struct {
			ID        uint32 `json:"id"`
			Username  string `json:"username"`
			Country   string `json:"country"`
			AvatarURL string `json:"avatar_url"`
		} `json:"info"`
		Keys7 struct {
			GlobalRank  *uint32 `json:"globalRank"`
			CountryRank *uint32 `json:"countryRank"`
		} `json:"keys7"`
	} `json:"user"`
}

func NewQuaver(base string, j *webclient.JSON) *Quaver {
	if base == "" {
		base = DefaultQuaverAPI
	}
	if j == nil {
		j = webclient.NewJSON(nil)
	}
	return &Quaver{base: strings.TrimRight(base, "/"), json: j}
}

// Fetch loads a user by id or username.
func (q *Quaver) Fetch(ctx context.Context, account string) (*game.Profile, error) {
	var resp quaverResponse
	endpoint := fmt.Sprintf("%s/users/full/%s", q.base, url.PathEscape(strings.TrimSpace(account)))
	if err := q.json.GetJSON(ctx, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	if resp.User == nil || resp.User.Info.ID == 0 {
		return nil, nil
	}

	info := resp.User.Info
	country := strings.ToUpper(strings.TrimSpace(info.Country))
	// Quaver reports "XX" for users without a country.
	if country == "XX" {
		country = ""
	}
	return &game.Profile{
		Game:      game.Quaver,
		ID:        info.ID,
		Username:  info.Username,
		Country:   country,
		Ranks:     game.Ranks{Global: resp.User.Keys7.GlobalRank, Country: resp.User.Keys7.CountryRank},
		AvatarURL: info.AvatarURL,
		Link:      fmt.Sprintf("https://quavergame.com/user/%d", info.ID),
	}, nil
}
