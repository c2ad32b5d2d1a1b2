package profiles

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/stake-plus/sevenkey-bot/src/game"
	"github.com/stake-plus/sevenkey-bot/src/webclient"
)

// ErrGameUnavailable is returned when no fetcher is configured for a game.
var ErrGameUnavailable = errors.New("profile lookups for this game are not configured")

// Fetcher loads one account from a game's public API. A missing account is
// reported as (nil, nil).
type Fetcher interface {
	Fetch(ctx context.Context, account string) (*game.Profile, error)
}

// Resolver turns the argument of a verify command into a profile.
type Resolver struct {
	fetchers map[game.Game]Fetcher
}

// NewResolver builds a resolver over the given fetchers. Nil entries are skipped.
func NewResolver(fetchers map[game.Game]Fetcher) *Resolver {
	r := &Resolver{fetchers: make(map[game.Game]Fetcher, len(fetchers))}
	for g, f := range fetchers {
		if f != nil {
			r.fetchers[g] = f
		}
	}
	return r
}

// Games lists the games the resolver can look up.
func (r *Resolver) Games() []game.Game {
	var out []game.Game
	for _, g := range game.All {
		if _, ok := r.fetchers[g]; ok {
			out = append(out, g)
		}
	}
	return out
}

// Resolve accepts a profile URL, "<game> <account>", or a bare osu! username or
// id. It returns nil when the account does not exist.
func (r *Resolver) Resolve(ctx context.Context, input string) (*game.Profile, error) {
	g, account, err := Identify(input)
	if err != nil {
		return nil, err
	}

	f, ok := r.fetchers[g]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGameUnavailable, g.Title())
	}

	profile, err := f.Fetch(ctx, account)
	if errors.Is(err, webclient.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch %s profile %q: %w", g, account, err)
	}
	if profile == nil {
		log.Printf("profiles: no %s account for %q", g, account)
	}
	return profile, nil
}

type urlPattern struct {
	prefix string
	game   game.Game
}

var urlPatterns = []urlPattern{
	{"osu.ppy.sh/users/", game.Osu},
	{"osu.ppy.sh/u/", game.Osu},
	{"quavergame.com/user/", game.Quaver},
	{"quavergame.com/profile/", game.Quaver},
	{"boku.tachi.ac/u/", game.BMS},
	{"dmjam.net/player-scoreboard/", game.DMJam},
}

// Identify splits a verify argument into the game and the account key.
func Identify(input string) (game.Game, string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", "", errors.New("no account supplied")
	}

	bare := strings.TrimPrefix(strings.TrimPrefix(input, "https://"), "http://")
	bare = strings.TrimPrefix(bare, "www.")
	for _, p := range urlPatterns {
		if strings.HasPrefix(strings.ToLower(bare), p.prefix) {
			account := bare[len(p.prefix):]
			if i := strings.IndexAny(account, "/?#"); i >= 0 {
				account = account[:i]
			}
			if account == "" {
				return "", "", fmt.Errorf("no account in %q", input)
			}
			return p.game, account, nil
		}
	}

	fields := strings.Fields(input)
	if len(fields) >= 2 {
		if g, err := game.Parse(fields[0]); err == nil {
			return g, strings.Join(fields[1:], " "), nil
		}
	}
	return game.Osu, input, nil
}
