package discord

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/stake-plus/sevenkey-bot/src/game"
)

const (
	CommandConfig     = "config"
	CommandRemoveUser = "remove_user"
	CommandList       = "list"

	SubSetChannel    = "set_channel"
	SubEmojiOverride = "emoji_override"
	SubListCountry   = "country"
	SubListPending   = "pending"

	ChannelKindAdmin        = "admin_only"
	ChannelKindVerification = "verifications"
)

var adminPermission int64 = discordgo.PermissionAdministrator

func gameChoices() []*discordgo.ApplicationCommandOptionChoice {
	out := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(game.All))
	for _, g := range game.All {
		out = append(out, &discordgo.ApplicationCommandOptionChoice{Name: g.Title(), Value: string(g)})
	}
	return out
}

var commandDefinitions = map[string]*discordgo.ApplicationCommand{
	CommandConfig: {
		Name:                     CommandConfig,
		Description:              "Configure the verification bot",
		DefaultMemberPermissions: &adminPermission,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        SubSetChannel,
				Description: "Set the admin or verification channel",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "kind",
						Description: "Which channel to set",
						Required:    true,
						Choices: []*discordgo.ApplicationCommandOptionChoice{
							{Name: "Admin only", Value: ChannelKindAdmin},
							{Name: "Verifications", Value: ChannelKindVerification},
						},
					},
					{
						Type:         discordgo.ApplicationCommandOptionChannel,
						Name:         "channel",
						Description:  "The channel to use",
						Required:     true,
						ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        SubEmojiOverride,
				Description: "Use a different emoji shortcode for a country",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "country",
						Description: "Country name as shown on profiles",
						Required:    true,
					},
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "shortcode",
						Description: "Emoji shortcode to use instead, empty to clear",
						Required:    false,
					},
				},
			},
		},
	},
	CommandRemoveUser: {
		Name:                     CommandRemoveUser,
		Description:              "Remove a verified game account",
		DefaultMemberPermissions: &adminPermission,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "game",
				Description: "Game the account belongs to",
				Required:    true,
				Choices:     gameChoices(),
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "username",
				Description: "Username of the verified account",
				Required:    true,
			},
		},
	},
	CommandList: {
		Name:        CommandList,
		Description: "List verification statistics",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        SubListCountry,
				Description: "Top 10 countries by verified members",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        SubListPending,
				Description: "Pending verification requests",
			},
		},
	},
}

var defaultCommandOrder = []string{
	CommandConfig,
	CommandRemoveUser,
	CommandList,
}

// RegisterSlashCommands registers the requested slash commands for a guild.
// When no command names are provided, all known commands are registered.
func RegisterSlashCommands(s *discordgo.Session, guildID string, names ...string) error {
	if guildID == "" {
		return fmt.Errorf("discord: guildID is required to register slash commands")
	}

	if len(names) == 0 {
		names = defaultCommandOrder
	}

	var failures []string
	for _, name := range names {
		definition, ok := commandDefinitions[name]
		if !ok {
			log.Printf("discord: unknown slash command %q", name)
			continue
		}

		_, err := s.ApplicationCommandCreate(s.State.User.ID, guildID, definition)
		if err != nil {
			if isDuplicateCommandError(err) {
				log.Printf("discord: slash command %q already registered", name)
				continue
			}
			failures = append(failures, fmt.Sprintf("%s: %v", name, err))
			log.Printf("discord: failed to register command %q: %v", name, err)
		}
	}

	if len(failures) > 0 {
		return fmt.Errorf("discord: slash command registration errors: %s", strings.Join(failures, "; "))
	}

	return nil
}

// OptionMap indexes interaction options by name, descending into a single
// subcommand. It returns the subcommand name, if any.
func OptionMap(opts []*discordgo.ApplicationCommandInteractionDataOption) (string, map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	sub := ""
	if len(opts) == 1 && opts[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		sub = opts[0].Name
		opts = opts[0].Options
	}
	out := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, o := range opts {
		out[o.Name] = o
	}
	return sub, out
}

func isDuplicateCommandError(err error) bool {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) {
		if restErr.Message != nil {
			msg := strings.ToLower(restErr.Message.Message)
			if strings.Contains(msg, "already exists") {
				return true
			}
		}
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "50035") && strings.Contains(msg, "already exists")
}
