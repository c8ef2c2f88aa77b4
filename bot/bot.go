// Package bot wires the birthday features and guild settings to Discord.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"equibot/birthdays"
	"equibot/discordutils"

	"github.com/bwmarrin/discordgo"
	"github.com/go-co-op/gocron"
	"golang.org/x/sync/errgroup"
)

// Store is everything the bot persists.
type Store interface {
	birthdays.Store

	Prefix(ctx context.Context, guildID, fallback string) (string, error)
	SetPrefix(ctx context.Context, guildID, prefix string) error
	ModRoles(ctx context.Context, guildID string) ([]string, error)
	AddModRole(ctx context.Context, guildID, roleID string) (bool, error)
	DeleteModRole(ctx context.Context, guildID, roleID string) (bool, error)
}

// Discord is what command handlers need from Discord.
type Discord interface {
	birthdays.Platform

	Guild(guildID string) (*discordgo.Guild, error)
	GuildChannels(guildID string) ([]*discordgo.Channel, error)
	GuildRoles(guildID string) ([]*discordgo.Role, error)
	GuildMembers(ctx context.Context, guildID string) ([]*discordgo.Member, error)
	React(channelID, messageID, emoji string) error
}

// Config holds the bot settings.
type Config struct {
	Token             string
	DefaultPrefix     string
	Intents           discordgo.Intent
	MessagesPerSecond float64
	PollInterval      time.Duration
	IdleInterval      time.Duration
	// CalendarRefreshAt is the UTC time of day, as HH:MM, every calendar is
	// rebuilt.
	CalendarRefreshAt string
}

// Bot represents an instance of the bot.
type Bot struct {
	session   *discordgo.Session
	store     Store
	discord   Discord
	publisher *birthdays.Publisher
	scheduler *birthdays.Scheduler
	clock     birthdays.Clock
	cfg       Config
	log       *slog.Logger

	commands map[string]*command

	ready     chan struct{}
	readyOnce sync.Once
}

// New creates a bot. The session is not opened until Run.
func New(cfg Config, store Store, logger *slog.Logger) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	session.Identify.Intents = cfg.Intents

	bot := newBot(cfg, store, discordutils.NewPlatform(session, cfg.MessagesPerSecond), birthdays.UTC, logger)
	bot.session = session

	session.AddHandler(bot.onReady)
	session.AddHandler(bot.onMessageCreate)

	return bot, nil
}

func newBot(cfg Config, store Store, discord Discord, clock birthdays.Clock, logger *slog.Logger) *Bot {
	greeter := birthdays.NewGreeter(discord, logger)
	scheduler := birthdays.NewScheduler(store, discord, greeter, clock, logger)
	if cfg.PollInterval > 0 {
		scheduler.PollInterval = cfg.PollInterval
	}
	if cfg.IdleInterval > 0 {
		scheduler.IdleInterval = cfg.IdleInterval
	}

	bot := &Bot{
		store:     store,
		discord:   discord,
		publisher: birthdays.NewPublisher(store, discord, logger),
		scheduler: scheduler,
		clock:     clock,
		cfg:       cfg,
		log:       logger.With("logger", "bot"),
		ready:     make(chan struct{}),
	}
	bot.commands = bot.commandTable()
	return bot
}

func (bot *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	bot.log.Info("bot is up", "user", r.User.Username, "guilds", len(r.Guilds))
	bot.readyOnce.Do(func() { close(bot.ready) })
}

// Run opens the session and blocks until ctx is done. The birthday scheduler
// starts on the first Ready event and is never restarted.
func (bot *Bot) Run(ctx context.Context) error {
	if err := bot.session.Open(); err != nil {
		return fmt.Errorf("opening discord session: %w", err)
	}
	defer bot.shutdown()

	cron, err := bot.newCron(ctx)
	if err != nil {
		return err
	}
	cron.StartAsync()
	defer cron.Stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		select {
		case <-bot.ready:
			bot.scheduler.Run(ctx)
		case <-ctx.Done():
		}
		return nil
	})

	return g.Wait()
}

// newCron schedules the nightly calendar refresh of every guild at
// CalendarRefreshAt, UTC. The scheduler is returned unstarted.
func (bot *Bot) newCron(ctx context.Context) (*gocron.Scheduler, error) {
	cron := gocron.NewScheduler(time.UTC)
	cron.SingletonModeAll()
	_, err := cron.Every(1).Day().At(bot.cfg.CalendarRefreshAt).Do(func() {
		bot.log.Info("refreshing all calendars")
		bot.publisher.RefreshAll(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("scheduling calendar refresh at %q: %w", bot.cfg.CalendarRefreshAt, err)
	}
	return cron, nil
}

func (bot *Bot) shutdown() {
	bot.log.Info("shutting down")
	if err := bot.session.Close(); err != nil {
		bot.log.Error("closing discord session", "error", err)
	}
}
