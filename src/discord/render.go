package discord

import (
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/stake-plus/sevenkey-bot/src/verification"
)

// CountryInputID is the text input inside the country modal.
const CountryInputID = "country"

func renderEmbed(msg verification.Message) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       msg.Title,
		Description: msg.Description,
		URL:         msg.URL,
		Color:       msg.Color,
	}
	if msg.ImageURL != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: msg.ImageURL}
	}
	for _, f := range msg.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	return embed
}

func renderComponents(msg verification.Message) []discordgo.MessageComponent {
	if len(msg.Buttons) == 0 {
		return []discordgo.MessageComponent{}
	}
	row := discordgo.ActionsRow{}
	for _, b := range msg.Buttons {
		row.Components = append(row.Components, discordgo.Button{
			Label:    b.Label,
			Style:    buttonStyle(b.Style),
			CustomID: b.Token,
		})
	}
	return []discordgo.MessageComponent{row}
}

func buttonStyle(s verification.ButtonStyle) discordgo.ButtonStyle {
	switch s {
	case verification.ButtonSuccess:
		return discordgo.SuccessButton
	case verification.ButtonDanger:
		return discordgo.DangerButton
	default:
		return discordgo.PrimaryButton
	}
}

// RenderSend converts a chat-neutral message into a discordgo send payload.
func RenderSend(msg verification.Message) *discordgo.MessageSend {
	send := &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{renderEmbed(msg)}}
	if components := renderComponents(msg); len(components) > 0 {
		send.Components = components
	}
	return send
}

// RenderEdit converts a chat-neutral message into an edit of ref. Buttons not
// present in msg are removed.
func RenderEdit(ref verification.MessageRef, msg verification.Message) *discordgo.MessageEdit {
	embeds := []*discordgo.MessageEmbed{renderEmbed(msg)}
	components := renderComponents(msg)
	return &discordgo.MessageEdit{
		ID:         ref.MessageID,
		Channel:    ref.ChannelID,
		Embeds:     &embeds,
		Components: &components,
	}
}

// CountryModal asks the requester for the country of a pending verification.
func CountryModal(id uint64) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: verification.Action{Kind: verification.ActionCountrySubmit, ID: id}.Token(),
			Title:    "Choose your country",
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.TextInput{
						CustomID:    CountryInputID,
						Label:       "Country name or two letter code",
						Style:       discordgo.TextInputShort,
						Placeholder: "France or FR",
						Required:    true,
						MinLength:   2,
						MaxLength:   64,
					},
				}},
			},
		},
	}
}

// ModalValue returns the value of a text input in a submitted modal.
func ModalValue(data discordgo.ModalSubmitInteractionData, inputID string) string {
	for _, c := range data.Components {
		row, ok := c.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, inner := range row.Components {
			if input, ok := inner.(*discordgo.TextInput); ok && input.CustomID == inputID {
				return strings.TrimSpace(input.Value)
			}
		}
	}
	return ""
}

// EphemeralReply answers an interaction with a message only the actor sees.
func EphemeralReply(s *discordgo.Session, i *discordgo.Interaction, content string) error {
	return s.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}
