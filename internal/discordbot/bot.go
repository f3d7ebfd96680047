package discordbot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/ichi0g0y/discord-rpg-bot/internal/combat"
	"github.com/ichi0g0y/discord-rpg-bot/internal/settings"
	"github.com/ichi0g0y/discord-rpg-bot/internal/shared/logger"
	"github.com/ichi0g0y/discord-rpg-bot/internal/types"
	"go.uber.org/zap"
)

const (
	battleButtonPrefix = "battle:"
	commandTimeout     = 10 * time.Second
	debugLogLines      = 15
	maxMessageLength   = 2000
)

// CommandObserver receives one call per handled interaction (metrics).
type CommandObserver interface {
	ObserveCommand(command string, ok bool)
}

// Config holds the Discord credentials.
type Config struct {
	Token   string
	AppID   string
	GuildID string
}

// Bot はDiscordのインタラクションをGameに繋ぐ
type Bot struct {
	Session  *discordgo.Session
	Config   Config
	Game     *Game
	Commands []*discordgo.ApplicationCommand

	handlers map[string]func(ctx context.Context, i *discordgo.InteractionCreate) (*discordgo.InteractionResponseData, error)
	observer CommandObserver
	settings SettingsLister
}

// SettingsLister lists the stored settings with secrets masked.
type SettingsLister interface {
	GetAllSettings() (map[string]settings.Setting, error)
}

type BotOption func(*Bot)

func WithCommandObserver(o CommandObserver) BotOption {
	return func(b *Bot) {
		b.observer = o
	}
}

// WithSettings shows the current settings in /luck debug.
func WithSettings(l SettingsLister) BotOption {
	return func(b *Bot) {
		b.settings = l
	}
}

func NewBot(cfg Config, game *Game, opts ...BotOption) (*Bot, error) {
	if cfg.Token == "" {
		return nil, errors.New("discord token is not set")
	}
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds

	b := &Bot{
		Session:  session,
		Config:   cfg,
		Game:     game,
		Commands: Commands(),
	}
	b.handlers = map[string]func(ctx context.Context, i *discordgo.InteractionCreate) (*discordgo.InteractionResponseData, error){
		"luck":      b.handleLuck,
		"adventure": b.handleAdventure,
		"battle":    b.handleBattle,
		"dungeon":   b.handleDungeon,
		"potion":    b.handlePotion,
		"profile":   b.handleProfile,
	}
	for _, opt := range opts {
		opt(b)
	}
	session.AddHandler(b.onInteraction)
	return b, nil
}

func choices(names ...string) []*discordgo.ApplicationCommandOptionChoice {
	out := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(names))
	for _, n := range names {
		out = append(out, &discordgo.ApplicationCommandOptionChoice{Name: n, Value: n})
	}
	return out
}

// Commands returns the slash command definitions.
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "luck",
			Description: "Check or change your luck",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "action",
				Description: "status, potion (buy a Luck Potion) or debug (admin)",
				Choices:     choices("status", "potion", "debug"),
			}},
		},
		{
			Name:        "adventure",
			Description: "Go on an adventure",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "location",
				Description: "Where to go",
				Required:    true,
				Choices:     choices(combat.LocationNames()...),
			}},
		},
		{
			Name:        "battle",
			Description: "Fight a monster",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "action",
				Description: "Action in the current battle (omit to start one)",
				Choices: choices(string(combat.ActionAttack), string(combat.ActionDefend),
					string(combat.ActionUseItem), string(combat.ActionFlee)),
			}},
		},
		{
			Name:        "dungeon",
			Description: "Explore a dungeon",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "action",
					Description: "enter, next or exit",
					Required:    true,
					Choices:     choices("enter", "next", "exit"),
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "name",
					Description: "Dungeon to enter",
					Choices:     choices(combat.DungeonNames()...),
				},
			},
		},
		{
			Name:        "potion",
			Description: "Buy or drink a Health Potion",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "action",
				Description: "buy or drink",
				Required:    true,
				Choices:     choices("buy", "drink"),
			}},
		},
		{
			Name:        "profile",
			Description: "Show your character",
		},
	}
}

// Start opens the gateway and registers the commands.
func (b *Bot) Start() error {
	if err := b.Session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}

	appID := b.Config.AppID
	if appID == "" && b.Session.State != nil && b.Session.State.User != nil {
		appID = b.Session.State.User.ID
	}
	if _, err := b.Session.ApplicationCommandBulkOverwrite(appID, b.Config.GuildID, b.Commands); err != nil {
		logger.Error("Failed to register commands", zap.Error(err))
		return fmt.Errorf("failed to register commands: %w", err)
	}
	logger.Info("Discord bot started", zap.Int("commands", len(b.Commands)), zap.String("guild_id", b.Config.GuildID))
	return nil
}

func (b *Bot) Stop() error {
	return b.Session.Close()
}

func interactionUser(i *discordgo.InteractionCreate) (id, name string) {
	u := i.User
	if i.Member != nil && i.Member.User != nil {
		u = i.Member.User
		if i.Member.Nick != "" {
			return u.ID, i.Member.Nick
		}
	}
	if u == nil {
		return "", ""
	}
	if u.GlobalName != "" {
		return u.ID, u.GlobalName
	}
	return u.ID, u.Username
}

func isAdmin(i *discordgo.InteractionCreate) bool {
	return i.Member != nil && i.Member.Permissions&discordgo.PermissionAdministrator != 0
}

func stringOption(i *discordgo.InteractionCreate, name string) string {
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == name {
			return opt.StringValue()
		}
	}
	return ""
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	var (
		command  string
		respType = discordgo.InteractionResponseChannelMessageWithSource
		data     *discordgo.InteractionResponseData
		err      error
	)

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		command = i.ApplicationCommandData().Name
		h, ok := b.handlers[command]
		if !ok {
			return
		}
		data, err = h(ctx, i)

	case discordgo.InteractionMessageComponent:
		customID := i.MessageComponentData().CustomID
		action, ok := strings.CutPrefix(customID, battleButtonPrefix)
		if !ok {
			return
		}
		command = "battle"
		respType = discordgo.InteractionResponseUpdateMessage
		data, err = b.battleAction(ctx, i, combat.Action(action))

	default:
		return
	}

	if err != nil {
		userID, _ := interactionUser(i)
		logger.Debug("Command rejected", zap.String("command", command), zap.String("user_id", userID), zap.Error(err))
		respType = discordgo.InteractionResponseChannelMessageWithSource
		data = &discordgo.InteractionResponseData{
			Content: "❌ " + errorMessage(err),
			Flags:   discordgo.MessageFlagsEphemeral,
		}
	}
	if b.observer != nil {
		b.observer.ObserveCommand(command, err == nil)
	}

	data.Content = truncate(data.Content)
	if rerr := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{Type: respType, Data: data}); rerr != nil {
		logger.Error("Failed to respond to interaction", zap.String("command", command), zap.Error(rerr))
	}
}

// errorMessage はユーザーに見せるエラー文言
func errorMessage(err error) string {
	switch {
	case errors.Is(err, types.ErrInvalidArgument),
		errors.Is(err, ErrNotEnoughCoins),
		errors.Is(err, combat.ErrLevelTooLow):
		return err.Error()
	case errors.Is(err, ErrNoBattle):
		return "You are not in a battle. Use /battle to start one."
	case errors.Is(err, ErrNoDungeon):
		return "You are not exploring a dungeon. Use /dungeon enter."
	case errors.Is(err, combat.ErrLowHealth):
		return "You need at least half of your HP to enter a dungeon."
	case errors.Is(err, combat.ErrDungeonInBattle):
		return "Finish the battle in this room first."
	}
	known := []error{
		ErrInDungeon, ErrFullHealth, ErrInventoryFull, ErrNoHealthPotion, ErrDungeonRunning,
		combat.ErrBattleInProgress, combat.ErrBattleOver, combat.ErrNoUsableItem, combat.ErrDungeonFinished,
	}
	for _, k := range known {
		if errors.Is(err, k) {
			return title(k.Error()) + "."
		}
	}
	logger.Error("Command failed", zap.Error(err))
	return "Something went wrong. Please try again later."
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxMessageLength {
		return s
	}
	return string(r[:maxMessageLength-3]) + "..."
}

func battleButtons(disabled bool) []discordgo.MessageComponent {
	btn := func(label string, style discordgo.ButtonStyle, action combat.Action) discordgo.Button {
		return discordgo.Button{Label: label, Style: style, CustomID: battleButtonPrefix + string(action), Disabled: disabled}
	}
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			btn("Attack", discordgo.DangerButton, combat.ActionAttack),
			btn("Defend", discordgo.PrimaryButton, combat.ActionDefend),
			btn("Use Item", discordgo.SuccessButton, combat.ActionUseItem),
			btn("Flee", discordgo.SecondaryButton, combat.ActionFlee),
		}},
	}
}

func (b *Bot) handleLuck(ctx context.Context, i *discordgo.InteractionCreate) (*discordgo.InteractionResponseData, error) {
	userID, name := interactionUser(i)

	switch stringOption(i, "action") {
	case "potion":
		mod, p, err := b.Game.BuyLuckPotion(ctx, userID, name)
		if err != nil {
			return nil, err
		}
		return &discordgo.InteractionResponseData{
			Content: fmt.Sprintf("🧪 You drink a %s: luck %+d until <t:%d:t>. 💰 %d coins left.", mod.Label, mod.Delta, mod.ExpiresAt.Unix(), p.Coins),
		}, nil

	case "debug":
		if !isAdmin(i) {
			return &discordgo.InteractionResponseData{Content: "Administrator only.", Flags: discordgo.MessageFlagsEphemeral}, nil
		}
		profile, st, logs := b.Game.LuckDebug(ctx, userID, debugLogLines)
		content := fmt.Sprintf("%s\nBase %d  Rolls %d/%d  Modifiers %d\n```\n%s\n```",
			RenderLuck(name, st), profile.BaseLuck, profile.SuccessfulRolls, profile.TotalRolls, len(profile.Modifiers), logs)
		if b.settings != nil {
			all, err := b.settings.GetAllSettings()
			if err != nil {
				logger.Warn("Failed to list settings", zap.Error(err))
			} else {
				content += "\n⚙️ Settings\n```\n" + RenderSettings(all) + "\n```"
			}
		}
		return &discordgo.InteractionResponseData{Content: content, Flags: discordgo.MessageFlagsEphemeral}, nil

	default:
		return &discordgo.InteractionResponseData{Content: RenderLuck(name, b.Game.LuckStatus(ctx, userID))}, nil
	}
}

func (b *Bot) handleAdventure(ctx context.Context, i *discordgo.InteractionCreate) (*discordgo.InteractionResponseData, error) {
	userID, name := interactionUser(i)
	res, err := b.Game.Adventure(ctx, userID, name, stringOption(i, "location"))
	if err != nil {
		return nil, err
	}
	return &discordgo.InteractionResponseData{Content: RenderAdventure(res)}, nil
}

func (b *Bot) handleBattle(ctx context.Context, i *discordgo.InteractionCreate) (*discordgo.InteractionResponseData, error) {
	if action := stringOption(i, "action"); action != "" {
		return b.battleAction(ctx, i, combat.Action(action))
	}

	userID, name := interactionUser(i)
	view, err := b.Game.StartBattle(ctx, userID, name)
	// 進行中の戦闘があればそれをもう一度表示
	if err != nil && !(errors.Is(err, combat.ErrBattleInProgress) && view != nil) {
		return nil, err
	}
	return &discordgo.InteractionResponseData{Content: RenderBattle(view), Components: battleButtons(false)}, nil
}

func (b *Bot) battleAction(ctx context.Context, i *discordgo.InteractionCreate, action combat.Action) (*discordgo.InteractionResponseData, error) {
	userID, name := interactionUser(i)
	view, err := b.Game.BattleAction(ctx, userID, name, action)
	if err != nil {
		return nil, err
	}
	return &discordgo.InteractionResponseData{Content: RenderBattle(view), Components: battleButtons(view.Record != nil)}, nil
}

func (b *Bot) handleDungeon(ctx context.Context, i *discordgo.InteractionCreate) (*discordgo.InteractionResponseData, error) {
	userID, name := interactionUser(i)

	switch stringOption(i, "action") {
	case "enter":
		run, err := b.Game.EnterDungeon(ctx, userID, name, stringOption(i, "name"))
		if err != nil {
			return nil, err
		}
		return &discordgo.InteractionResponseData{
			Content: fmt.Sprintf("🏰 You enter **%s** (%d floors). %s\nUse /dungeon next to explore.", run.Dungeon.Name, run.Dungeon.Floors, run.Dungeon.Description),
		}, nil

	case "next":
		room, run, err := b.Game.ExploreRoom(ctx, userID)
		if err != nil {
			return nil, err
		}
		data := &discordgo.InteractionResponseData{Content: RenderRoom(room, run)}
		if room.Battle != nil {
			data.Components = battleButtons(false)
		}
		return data, nil

	case "exit":
		run, err := b.Game.ExitDungeon(ctx, userID)
		if err != nil {
			return nil, err
		}
		return &discordgo.InteractionResponseData{
			Content: fmt.Sprintf("🚶 You leave %s after %d rooms.", run.Dungeon.Name, run.Rooms),
		}, nil
	}
	return nil, fmt.Errorf("unknown dungeon action: %w", types.ErrInvalidArgument)
}

func (b *Bot) handlePotion(ctx context.Context, i *discordgo.InteractionCreate) (*discordgo.InteractionResponseData, error) {
	userID, name := interactionUser(i)

	switch stringOption(i, "action") {
	case "buy":
		p, err := b.Game.BuyHealthPotion(ctx, userID, name)
		if err != nil {
			return nil, err
		}
		return &discordgo.InteractionResponseData{
			Content: fmt.Sprintf("🧪 You bought a %s for %d coins. 💰 %d coins left.", HealthPotionName, HealthPotionPrice, p.Coins),
		}, nil

	case "drink":
		healed, p, err := b.Game.DrinkHealthPotion(ctx, userID, name)
		if err != nil {
			return nil, err
		}
		return &discordgo.InteractionResponseData{
			Content: fmt.Sprintf("❤️ You recover %d HP. HP %d/%d", healed, p.HP, p.MaxHP),
		}, nil
	}
	return nil, fmt.Errorf("unknown potion action: %w", types.ErrInvalidArgument)
}

func (b *Bot) handleProfile(ctx context.Context, i *discordgo.InteractionCreate) (*discordgo.InteractionResponseData, error) {
	userID, name := interactionUser(i)
	p, stats, err := b.Game.Profile(ctx, userID, name)
	if err != nil {
		return nil, err
	}
	return &discordgo.InteractionResponseData{Content: RenderProfile(p, stats)}, nil
}
