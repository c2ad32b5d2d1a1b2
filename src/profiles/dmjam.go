package profiles

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/stake-plus/sevenkey-bot/src/game"
	"github.com/stake-plus/sevenkey-bot/src/webclient"
)

const DefaultDMJamAPI = "https://dmjam.net/api"

// DMJam fetches player cards by player code.
type DMJam struct {
	base string
	json *webclient.JSON
}

type dmjamPlayer struct {
	PlayerCode    string  `json:"player_code"`
	Nickname      string  `json:"nickname"`
	PlayerRanking *uint32 `json:"player_ranking"`
	Level         *uint32 `json:"level"`
}

func NewDMJam(base string, j *webclient.JSON) *DMJam {
	if base == "" {
		base = DefaultDMJamAPI
	}
	if j == nil {
		j = webclient.NewJSON(nil)
	}
	return &DMJam{base: strings.TrimRight(base, "/"), json: j}
}

func (d *DMJam) Fetch(ctx context.Context, account string) (*game.Profile, error) {
	code := strings.TrimSpace(account)
	var player dmjamPlayer
	if err := d.json.GetJSON(ctx, fmt.Sprintf("%s/player/%s", d.base, url.PathEscape(code)), nil, &player); err != nil {
		return nil, err
	}
	if player.PlayerCode == "" {
		return nil, nil
	}

	id, err := strconv.ParseUint(player.PlayerCode, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("dmjam player code %q is not numeric", player.PlayerCode)
	}
	return &game.Profile{
		Game:     game.DMJam,
		ID:       uint32(id),
		Username: player.Nickname,
		Ranks:    game.Ranks{Global: player.PlayerRanking},
		Level:    player.Level,
		Link:     fmt.Sprintf("https://dmjam.net/player-scoreboard/%s", url.PathEscape(player.PlayerCode)),
	}, nil
}
