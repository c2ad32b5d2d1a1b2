package profiles

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/stake-plus/sevenkey-bot/src/game"
	"github.com/stake-plus/sevenkey-bot/src/webclient"
)

const DefaultTachiAPI = "https://boku.tachi.ac/api/v1"

// Tachi fetches BMS 7K profiles from a Bokutachi instance.
type Tachi struct {
	base string
	json *webclient.JSON
}

type tachiEnvelope[T any] struct {
	Success     bool   `json:"success"`
	Description string `json:"description"`
	Body        T      `json:"body"`
}

type tachiUser struct {
	ID       uint32 `json:"id"`
	Username string `json:"username"`
}

type tachiStats struct {
	RankingData map[string]struct {
		Ranking uint32 `json:"ranking"`
		OutOf   uint32 `json:"outOf"`
	} `json:"rankingData"`
}

func NewTachi(base string, j *webclient.JSON) *Tachi {
	if base == "" {
		base = DefaultTachiAPI
	}
	if j == nil {
		j = webclient.NewJSON(nil)
	}
	return &Tachi{base: strings.TrimRight(base, "/"), json: j}
}

// Fetch loads the user and their 7K stats concurrently. Players without 7K
// scores have no stats document and are reported without a rank.
func (t *Tachi) Fetch(ctx context.Context, account string) (*game.Profile, error) {
	name := url.PathEscape(strings.TrimSpace(account))

	var user tachiEnvelope[tachiUser]
	var stats tachiEnvelope[tachiStats]
	noStats := false

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return t.json.GetJSON(gctx, fmt.Sprintf("%s/users/%s", t.base, name), nil, &user)
	})
	g.Go(func() error {
		err := t.json.GetJSON(gctx, fmt.Sprintf("%s/users/%s/games/bms/7K", t.base, name), nil, &stats)
		if errors.Is(err, webclient.ErrNotFound) {
			noStats = true
			return nil
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if !user.Success || user.Body.ID == 0 {
		return nil, nil
	}

	p := &game.Profile{
		Game:      game.BMS,
		ID:        user.Body.ID,
		Username:  user.Body.Username,
		AvatarURL: fmt.Sprintf("%s/users/%d/pfp", t.base, user.Body.ID),
		Link:      fmt.Sprintf("https://boku.tachi.ac/u/%s", url.PathEscape(user.Body.Username)),
	}
	if !noStats {
		if r, ok := stats.Body.RankingData["sieglinde"]; ok && r.Ranking > 0 {
			p.Ranks.Global = game.Uint(r.Ranking)
		}
	}
	return p, nil
}
