package birthdays

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const (
	DefaultPollInterval = 15 * time.Second
	DefaultIdleInterval = 30 * time.Minute
)

// Scheduler runs the daily greet pass.
type Scheduler struct {
	store    Store
	platform Platform
	greeter  *Greeter
	clock    Clock
	log      *slog.Logger

	// PollInterval is slept between checks while today's pass is pending.
	PollInterval time.Duration
	// IdleInterval is slept once today's pass is known to be complete.
	IdleInterval time.Duration

	// completed is the last date greeted by this process. saved is false
	// while that date has not reached the store yet.
	completed string
	saved     bool
}

// NewScheduler creates a Scheduler with the default intervals.
func NewScheduler(
	store Store,
	platform Platform,
	greeter *Greeter,
	clock Clock,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		store:        store,
		platform:     platform,
		greeter:      greeter,
		clock:        clock,
		log:          logger.With("logger", "scheduler"),
		PollInterval: DefaultPollInterval,
		IdleInterval: DefaultIdleInterval,
	}
}

// Run loops until ctx is done. A pass that has already started is finished
// before Run returns.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.InfoContext(ctx, "birthday scheduler started")

	for {
		wait := s.Tick(context.WithoutCancel(ctx))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.log.Info("birthday scheduler stopped")
			return
		case <-timer.C:
		}
	}
}

// Tick runs one iteration and returns how long to sleep before the next.
func (s *Scheduler) Tick(ctx context.Context) time.Duration {
	today := TodayFrom(s.clock())

	if s.completed != "" && s.completed >= today.Date {
		if !s.saved {
			return s.saveCompletion(ctx, s.completed)
		}
		return s.IdleInterval
	}

	last, err := s.store.GreetCompletion(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "reading greet completion", "error", err)
		return s.PollInterval
	}
	// Dates are zero padded, so string order is date order. A completion
	// date ahead of the clock still counts as done.
	if last != "" && last >= today.Date {
		s.completed, s.saved = last, true
		return s.IdleInterval
	}

	birthdays, err := s.store.BirthdaysOn(ctx, today.Month, today.Day)
	if err != nil {
		s.log.ErrorContext(ctx, "looking up today's birthdays", "error", err)
		return s.PollInterval
	}

	if len(birthdays) == 0 {
		s.log.InfoContext(ctx, "no birthdays today", "date", today.Date)
	} else {
		for _, guildID := range s.platform.Guilds() {
			s.dispatch(ctx, guildID, birthdays)
		}
		s.log.InfoContext(ctx, "birthdays concluded", "date", today.Date, "count", len(birthdays))
	}

	s.completed, s.saved = today.Date, false
	return s.saveCompletion(ctx, today.Date)
}

// saveCompletion stores date as greeted. A failed write is retried on the
// next tick without greeting again.
func (s *Scheduler) saveCompletion(ctx context.Context, date string) time.Duration {
	if err := s.store.SetGreetCompletion(ctx, date); err != nil {
		s.log.ErrorContext(ctx, "saving greet completion", "date", date, "error", err)
		return s.PollInterval
	}
	s.saved = true
	return s.PollInterval
}

// dispatch greets every member of guildID whose id is in birthdays.
func (s *Scheduler) dispatch(ctx context.Context, guildID string, birthdays []string) {
	log := s.log.With("guild_id", guildID)

	cfg, err := s.store.GuildBirthdayConfig(ctx, guildID)
	switch {
	case errors.Is(err, ErrNotConfigured):
		log.InfoContext(ctx, "birthday channels not set up for guild")
		return
	case err != nil:
		log.ErrorContext(ctx, "loading birthday config", "error", err)
		return
	}

	channel, ok := s.platform.ResolveChannel(guildID, cfg.GreetChannelID)
	if !ok {
		log.WarnContext(ctx, "greet channel not found", "channel_id", cfg.GreetChannelID)
		return
	}

	memberIDs, err := s.platform.GuildMemberIDs(ctx, guildID)
	if err != nil {
		log.ErrorContext(ctx, "listing guild members", "error", err)
		return
	}

	members := make(map[string]bool, len(memberIDs))
	for _, id := range memberIDs {
		members[id] = true
	}

	for _, userID := range birthdays {
		if !members[userID] {
			continue
		}
		if err := s.greeter.Greet(ctx, cfg, channel.ID, userID); err != nil {
			log.ErrorContext(ctx, "greeting failed", "user_id", userID, "error", err)
		}
	}
}
