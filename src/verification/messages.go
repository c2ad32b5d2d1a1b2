package verification

import (
	"fmt"
	"strings"

	"github.com/stake-plus/sevenkey-bot/src/game"
)

const (
	profileColor = 0xFF66F0
	pendingColor = 0xF1C40F
	acceptColor  = 0x2ECC71
	denyColor    = 0xE74C3C
)

// StatusKind is the outcome shown on the requester's status message.
type StatusKind string

const (
	StatusPending  StatusKind = "🟡 Pending"
	StatusAccepted StatusKind = "🟢 Accepted"
	StatusDenied   StatusKind = "🔴 Denied"
)

func statusMessage(rec *Record, status StatusKind) Message {
	color := pendingColor
	switch status {
	case StatusAccepted:
		color = acceptColor
	case StatusDenied:
		color = denyColor
	}
	return Message{
		Title:       "Verification Request",
		Description: fmt.Sprintf("**Current status for %s:** %s", rec.Requester.DisplayName, status),
		Color:       color,
	}
}

// ProfileMessage renders a game profile the way admins see it.
func ProfileMessage(p game.Profile, countryName string) Message {
	if countryName == "" {
		countryName = "Unknown"
	}

	var lines []string
	lines = append(lines, fmt.Sprintf("**- Country:** %s", countryName))
	switch p.Game {
	case game.Osu, game.Quaver:
		lines = append(lines, fmt.Sprintf("**- Rank:** Global: #%d | Country: #%d", deref(p.Ranks.Global), deref(p.Ranks.Country)))
	case game.DMJam:
		lines = append(lines, fmt.Sprintf("**- Level:** %d", deref(p.Level)))
		lines = append(lines, fmt.Sprintf("**- Rank:** #%d", deref(p.Ranks.Global)))
	default:
		lines = append(lines, fmt.Sprintf("**- Rank:** #%d", deref(p.Ranks.Global)))
	}
	if p.PlaytimeHours != nil {
		lines = append(lines, fmt.Sprintf("**- Play Time:** %dh", *p.PlaytimeHours))
	}
	if p.Link != "" {
		lines = append(lines, fmt.Sprintf("[%s](%s)", p.Link, p.Link))
	}

	return Message{
		Title:       fmt.Sprintf("%s profile for %s", p.Game.Title(), p.Username),
		Description: strings.Join(lines, "\n"),
		URL:         p.Link,
		ImageURL:    p.AvatarURL,
		Color:       profileColor,
	}
}

func adminPrompt(rec *Record, countryName string) Message {
	msg := ProfileMessage(rec.Profile, countryName)
	msg.Fields = append(msg.Fields,
		Field{Name: "Requested by", Value: fmt.Sprintf("<@%s>", rec.Requester.ID), Inline: true},
		Field{Name: "Request", Value: fmt.Sprintf("#%d", rec.ID), Inline: true},
	)
	msg.Buttons = []Button{
		{Label: "Click here to verify", Token: Action{Kind: ActionApprove, ID: rec.ID}.Token(), Style: ButtonSuccess},
		{Label: "Click here to decline", Token: Action{Kind: ActionDeny, ID: rec.ID}.Token(), Style: ButtonDanger},
	}
	return msg
}

func countryPrompt(rec *Record) Message {
	return Message{
		Title: "Choose your country",
		Description: fmt.Sprintf("<@%s>, your %s profile **%s** does not list a country. "+
			"Press the button below and enter the country you want your role for.",
			rec.Requester.ID, rec.Profile.Game.Title(), rec.Profile.Username),
		Color: pendingColor,
		Buttons: []Button{
			{Label: "Choose country", Token: Action{Kind: ActionCountry, ID: rec.ID}.Token(), Style: ButtonPrimary},
		},
	}
}

func deref(v *uint32) uint32 {
	if v == nil {
		return 0
	}
	return *v
}
