package verify

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"time"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"

	"github.com/stake-plus/sevenkey-bot/src/actions/core"
	sharedconfig "github.com/stake-plus/sevenkey-bot/src/config"
	shareddiscord "github.com/stake-plus/sevenkey-bot/src/discord"
	"github.com/stake-plus/sevenkey-bot/src/verification"
)

var _ core.Module = (*Module)(nil)

const requestTimeout = 45 * time.Second

// Dependencies are the collaborators built by the process bootstrap.
type Dependencies struct {
	Users    verification.UserStore
	Accounts AccountStore
	Settings Settings
	Resolver ProfileResolver
	Events   verification.EventSink
}

// Module is the Discord side of verification: the !verify command, the
// approval buttons, the country modal and the admin slash commands.
type Module struct {
	config     *sharedconfig.BotConfig
	session    *discordgo.Session
	engine     *verification.Engine
	handler    *Handler
	runtimeCtx context.Context
	cancel     context.CancelFunc
}

// NewModule creates the Discord session and the verification engine behind it.
// The gateway is not opened until Start.
func NewModule(cfg *sharedconfig.BotConfig, deps Dependencies) (*Module, error) {
	session, err := discordgo.New("Bot " + cfg.Base.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent

	engine := verification.NewEngine(verification.EngineDeps{
		Chat:     shareddiscord.NewChat(session),
		Users:    deps.Users,
		Settings: deps.Settings,
		Events:   deps.Events,
	})

	module := &Module{
		config:  cfg,
		session: session,
		engine:  engine,
		handler: &Handler{
			Engine:   engine,
			Resolver: deps.Resolver,
			Accounts: deps.Accounts,
			Settings: deps.Settings,
			Limiter:  NewMemberLimiter(rate.Limit(cfg.VerifyRate), cfg.VerifyBurst),
		},
	}

	module.initHandlers()
	return module, nil
}

// Name implements actions.Module.
func (b *Module) Name() string { return "verify" }

// Registry exposes the pending verifications for read-only views.
func (b *Module) Registry() *verification.Registry { return b.engine.Registry() }

func (b *Module) initHandlers() {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onInteractionCreate)
}

func (b *Module) onReady(s *discordgo.Session, r *discordgo.Ready) {
	log.Printf("Verification bot logged in as: %v", s.State.User.Username)

	if err := shareddiscord.RegisterSlashCommands(s, b.config.Base.GuildID); err != nil {
		log.Printf("verify: failed to register slash commands: %v", err)
	} else {
		log.Printf("verify: slash commands registered")
	}
}

func (b *Module) requestContext() (context.Context, context.CancelFunc) {
	parent := b.runtimeCtx
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, requestTimeout)
}

func recoverHandler(name string) {
	if r := recover(); r != nil {
		log.Printf("verify: panic in %s: %v\n%s", name, r, debug.Stack())
	}
}

func (b *Module) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	defer recoverHandler("message")

	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}
	arg, ok := parseVerifyCommand(m.Content)
	if !ok {
		return
	}

	ctx, cancel := b.requestContext()
	defer cancel()

	reply := b.handler.verify(ctx, verifyRequest{
		Member:    messageMember(m),
		ChannelID: m.ChannelID,
		Arg:       arg,
	})
	if reply == "" {
		return
	}
	if _, err := s.ChannelMessageSendReply(m.ChannelID, reply, m.Reference()); err != nil {
		log.Printf("verify: reply in %s: %v", m.ChannelID, err)
	}
}

func messageMember(m *discordgo.MessageCreate) verification.Member {
	name := m.Author.GlobalName
	if name == "" {
		name = m.Author.Username
	}
	if m.Member != nil && m.Member.Nick != "" {
		name = m.Member.Nick
	}
	return verification.Member{ID: m.Author.ID, GuildID: m.GuildID, DisplayName: name}
}

func (b *Module) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	defer recoverHandler("interaction")

	user := shareddiscord.InteractionUser(i)
	if user == nil {
		log.Printf("verify: interaction missing user context")
		return
	}

	switch i.Type {
	case discordgo.InteractionMessageComponent:
		b.handleComponent(s, i, user.ID)
	case discordgo.InteractionModalSubmit:
		b.handleModal(s, i, user.ID)
	case discordgo.InteractionApplicationCommand:
		b.handleCommand(s, i, user.ID)
	}
}

func (b *Module) handleComponent(s *discordgo.Session, i *discordgo.InteractionCreate, actorID string) {
	action, err := verification.ParseAction(i.MessageComponentData().CustomID)
	if err != nil {
		log.Printf("verify: ignoring component %q: %v", i.MessageComponentData().CustomID, err)
		return
	}

	ctx, cancel := b.requestContext()
	defer cancel()

	if action.Kind == verification.ActionCountry {
		if err := b.engine.AuthorizeCountrySelection(ctx, action.ID, actorID); err != nil {
			b.reply(s, i, verification.UserMessage(err))
			return
		}
		if err := s.InteractionRespond(i.Interaction, shareddiscord.CountryModal(action.ID)); err != nil {
			log.Printf("verify: open country modal for #%d: %v", action.ID, err)
		}
		return
	}

	// approval outlasts the 3s interaction deadline; acknowledge first
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	}); err != nil {
		log.Printf("verify: failed to acknowledge interaction: %v", err)
		return
	}
	msg := b.handler.decide(ctx, action, actorID, i.ChannelID)
	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &msg}); err != nil {
		log.Printf("verify: edit interaction reply: %v", err)
	}
}

func (b *Module) handleModal(s *discordgo.Session, i *discordgo.InteractionCreate, actorID string) {
	data := i.ModalSubmitData()
	action, err := verification.ParseAction(data.CustomID)
	if err != nil || action.Kind != verification.ActionCountrySubmit {
		log.Printf("verify: ignoring modal %q", data.CustomID)
		return
	}

	ctx, cancel := b.requestContext()
	defer cancel()

	b.reply(s, i, b.handler.submitCountry(ctx, action.ID, actorID, shareddiscord.ModalValue(data, shareddiscord.CountryInputID)))
}

func (b *Module) handleCommand(s *discordgo.Session, i *discordgo.InteractionCreate, actorID string) {
	cmd := i.ApplicationCommandData()
	sub, opts := shareddiscord.OptionMap(cmd.Options)

	ctx, cancel := b.requestContext()
	defer cancel()

	reply := b.handler.command(ctx, cmd.Name, sub, opts, commandActor{ID: actorID, Admin: shareddiscord.IsAdmin(i)})
	if reply == "" {
		return
	}
	b.reply(s, i, reply)
}

func (b *Module) reply(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	if err := shareddiscord.EphemeralReply(s, i.Interaction, content); err != nil {
		log.Printf("verify: interaction reply: %v", err)
	}
}

func (b *Module) Start(ctx context.Context) error {
	runtimeCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.runtimeCtx = runtimeCtx

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}
	return nil
}

func (b *Module) Stop(ctx context.Context) {
	if b.cancel != nil {
		b.cancel()
	}

	b.runtimeCtx = nil

	if b.session != nil {
		if err := b.session.Close(); err != nil {
			log.Printf("verify: close session: %v", err)
		}
	}
}
