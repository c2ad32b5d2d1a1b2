package game

import (
	"fmt"
	"strings"
)

// Game identifies a supported rhythm-game platform.
type Game string

const (
	Osu    Game = "osu"
	Quaver Game = "quaver"
	BMS    Game = "bms"
	DMJam  Game = "dmjam"
)

// All lists the supported games in display order.
var All = []Game{Osu, Quaver, BMS, DMJam}

// Parse maps a user-supplied game tag to a Game.
func Parse(s string) (Game, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "osu", "osu!", "mania":
		return Osu, nil
	case "quaver":
		return Quaver, nil
	case "bms", "bokutachi", "tachi":
		return BMS, nil
	case "dmjam":
		return DMJam, nil
	default:
		return "", fmt.Errorf("unknown game %q", s)
	}
}

// Title is the human readable name used in embeds.
func (g Game) Title() string {
	switch g {
	case Osu:
		return "osu!mania"
	case Quaver:
		return "Quaver 7K"
	case BMS:
		return "BMS 7K"
	case DMJam:
		return "DMJam"
	default:
		return string(g)
	}
}

func (g Game) String() string { return string(g) }

// Ranks holds optional leaderboard positions.
type Ranks struct {
	Global  *uint32
	Country *uint32
}

// Profile is the normalized account data produced by a profile fetcher.
// Country holds an ISO 3166-1 alpha-2 code and may be empty.
type Profile struct {
	Game          Game
	ID            uint32
	Username      string
	Country       string
	Ranks         Ranks
	AvatarURL     string
	Link          string
	PlaytimeHours *uint32
	Level         *uint32
}

// HasCountry reports whether the profile carries a country code.
func (p Profile) HasCountry() bool { return p.Country != "" }

// Clone returns a copy that shares no pointers with p.
func (p Profile) Clone() Profile {
	out := p
	out.Ranks.Global = copyUint(p.Ranks.Global)
	out.Ranks.Country = copyUint(p.Ranks.Country)
	out.PlaytimeHours = copyUint(p.PlaytimeHours)
	out.Level = copyUint(p.Level)
	return out
}

func copyUint(v *uint32) *uint32 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Uint is a helper for building optional numeric fields.
func Uint(v uint32) *uint32 { return &v }
