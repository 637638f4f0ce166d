// Package bot wires the Discord session to the verification workflow and
// the housekeeping features around it.
package bot

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/TechMC-Studios/discord-bot/internal/config"
	"github.com/TechMC-Studios/discord-bot/internal/polymart"
	"github.com/TechMC-Studios/discord-bot/internal/registry"
	"github.com/TechMC-Studios/discord-bot/internal/scheduler"
	"github.com/TechMC-Studios/discord-bot/internal/spigot"
	"github.com/TechMC-Studios/discord-bot/internal/verify"
)

// Bot represents the Discord bot instance
type Bot struct {
	config    *config.Config
	session   *discordgo.Session
	spigot    *spigot.Client
	polymart  *polymart.Client
	registry  *registry.Client
	workflow  *verify.Workflow
	scheduler *scheduler.Scheduler
	sessions  *sessionStore
	sweeper   *threadSweeper
	commands  []*discordgo.ApplicationCommand
}

// New creates a new Bot instance
func New(cfg *config.Config) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers

	spigotClient := spigot.NewClient(cfg.Verification.Spigot)
	polymartClient := polymart.NewClient(cfg.Verification.Polymart)
	registryClient := registry.NewClient(cfg.Verification.API)

	b := &Bot{
		config:    cfg,
		session:   session,
		spigot:    spigotClient,
		polymart:  polymartClient,
		registry:  registryClient,
		scheduler: scheduler.New(),
		sessions:  newSessionStore(),
	}
	b.workflow = verify.New(
		cfg.Verification,
		spigotClient,
		polymartClient,
		registryClient,
		&discordRoleManager{session: session},
		slog.Default(),
	)

	b.registerHandlers()

	return b, nil
}

// Start opens the Discord connection and starts background tasks
func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}

	slog.Info("Connected to Discord", "user", b.session.State.User.Username)

	if err := b.registerCommands(); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	b.sweeper = newThreadSweeper(b.session, b.config.Verification.Channels.VerificationChannel)
	go b.sweeper.Start()

	return nil
}

// Stop gracefully shuts down the bot
func (b *Bot) Stop() error {
	if b.sweeper != nil {
		b.sweeper.Stop()
	}
	b.scheduler.Stop()

	if b.session != nil {
		return b.session.Close()
	}
	return nil
}

// registerHandlers sets up Discord event handlers
func (b *Bot) registerHandlers() {
	b.session.AddHandler(b.handleInteraction)
	b.session.AddHandler(b.handleThreadCreate)
	b.session.AddHandler(b.handleThreadUpdate)
	b.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		slog.Info("Bot is ready", "guilds", len(r.Guilds))
	})
}

// handleInteraction routes commands, component clicks, and modal submits
func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		slog.Debug("Received command", "command", data.Name, "guild", i.GuildID)
		switch data.Name {
		case "verify_panel":
			b.handleVerifyPanel(s, i)
		case "priority_tag":
			b.handlePriorityTag(s, i)
		default:
			slog.Warn("Unknown command", "command", data.Name)
		}

	case discordgo.InteractionMessageComponent:
		b.handleComponent(s, i)

	case discordgo.InteractionModalSubmit:
		b.handleModal(s, i)
	}
}

// handleComponent routes button and select interactions by custom ID.
// Custom IDs look like "area:kind:action[:token]"; the trailing token binds
// the component to one panel session.
func (b *Bot) handleComponent(s *discordgo.Session, i *discordgo.InteractionCreate) {
	customID := i.MessageComponentData().CustomID
	parts := strings.Split(customID, ":")
	if len(parts) < 3 {
		slog.Warn("Malformed component ID", "custom_id", customID)
		return
	}

	switch {
	case customID == "verify:btn:verify":
		b.handleVerifyButton(s, i)
	case parts[0] == "verify" && parts[1] == "platform":
		b.handlePlatformButton(s, i, parts[2], lastPart(parts))
	case parts[0] == "verify" && parts[1] == "staff":
		b.handleNotifyStaff(s, i, parts[2], lastPart(parts))
	case parts[0] == "verify" && parts[1] == "bbb":
		b.handleBBBNotify(s, i)
	case parts[0] == "spigot" && parts[1] == "btn":
		b.handleSpigotMethodButton(s, i, parts[2], lastPart(parts))
	case parts[0] == "spigot" && parts[1] == "search":
		b.handleSearchComponent(s, i, parts[2], lastPart(parts))
	case parts[0] == "polymart" && parts[1] == "btn":
		b.handlePolymartTokenButton(s, i, lastPart(parts))
	default:
		slog.Warn("Unknown component", "custom_id", customID)
	}
}

// handleModal routes modal submissions by custom ID.
func (b *Bot) handleModal(s *discordgo.Session, i *discordgo.InteractionCreate) {
	customID := i.ModalSubmitData().CustomID
	parts := strings.Split(customID, ":")
	if len(parts) < 3 {
		slog.Warn("Malformed modal ID", "custom_id", customID)
		return
	}

	switch {
	case parts[0] == "spigot" && parts[1] == "modal":
		b.handleSpigotModal(s, i, parts[2], lastPart(parts))
	case parts[0] == "polymart" && parts[1] == "modal":
		b.handlePolymartModal(s, i, lastPart(parts))
	default:
		slog.Warn("Unknown modal", "custom_id", customID)
	}
}

func lastPart(parts []string) string {
	return parts[len(parts)-1]
}

// guardSession rejects interactions whose token no longer matches the
// user's active panel. Results from superseded panels must not render.
func (b *Bot) guardSession(s *discordgo.Session, i *discordgo.InteractionCreate, token string) bool {
	user := interactionUser(i)
	if user == nil || !b.sessions.IsCurrent(user.ID, token) {
		_ = respondEphemeral(s, i, &discordgo.InteractionResponseData{
			Content: b.t(i, "verification.errors.expired", nil),
		})
		return false
	}
	return true
}
