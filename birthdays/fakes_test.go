package birthdays

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"equibot/models"

	"github.com/bwmarrin/discordgo"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock(date string) Clock {
	return func() time.Time {
		t, err := time.Parse(DateFormat, date)
		if err != nil {
			panic(err)
		}
		return t.Add(9 * time.Hour)
	}
}

type sentMessage struct {
	channelID string
	msg       *discordgo.MessageSend
	id        string
}

type fakePlatform struct {
	mu       sync.Mutex
	guilds   []string
	members  map[string][]string
	channels map[string]*discordgo.Channel
	roles    map[string]*discordgo.Role
	messages map[string]*discordgo.Message
	sent     []sentMessage
	edited   []string
	nextID   int
	// memberCalls counts GuildMemberIDs lookups.
	memberCalls int
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		members:  map[string][]string{},
		channels: map[string]*discordgo.Channel{},
		roles:    map[string]*discordgo.Role{},
		messages: map[string]*discordgo.Message{},
	}
}

func (f *fakePlatform) addGuild(guildID string, memberIDs ...string) {
	f.guilds = append(f.guilds, guildID)
	f.members[guildID] = memberIDs
}

func (f *fakePlatform) addChannel(guildID, channelID string) {
	f.channels[channelID] = &discordgo.Channel{ID: channelID, GuildID: guildID}
}

func (f *fakePlatform) SendMessage(_ context.Context, channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.channels[channelID]; !ok {
		return nil, fmt.Errorf("unknown channel %s", channelID)
	}

	f.nextID++
	m := &discordgo.Message{
		ID:        fmt.Sprintf("m%d", f.nextID),
		ChannelID: channelID,
		Content:   msg.Content,
		Embeds:    msg.Embeds,
	}
	f.messages[m.ID] = m
	f.sent = append(f.sent, sentMessage{channelID: channelID, msg: msg, id: m.ID})
	return m, nil
}

func (f *fakePlatform) FetchMessage(_ context.Context, channelID, messageID string) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, ok := f.messages[messageID]
	if !ok || m.ChannelID != channelID {
		return nil, ErrMessageNotFound
	}
	return m, nil
}

func (f *fakePlatform) EditMessage(_ context.Context, msg *discordgo.Message, embed *discordgo.MessageEmbed) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	msg.Embeds = []*discordgo.MessageEmbed{embed}
	f.edited = append(f.edited, msg.ID)
	return nil
}

func (f *fakePlatform) ResolveChannel(guildID, channelID string) (*discordgo.Channel, bool) {
	ch, ok := f.channels[channelID]
	if !ok || ch.GuildID != guildID {
		return nil, false
	}
	return ch, true
}

func (f *fakePlatform) ResolveRole(_, roleID string) (*discordgo.Role, bool) {
	role, ok := f.roles[roleID]
	return role, ok
}

func (f *fakePlatform) GuildMemberIDs(_ context.Context, guildID string) ([]string, error) {
	f.mu.Lock()
	f.memberCalls++
	f.mu.Unlock()
	return f.members[guildID], nil
}

func (f *fakePlatform) Guilds() []string {
	return f.guilds
}

func (f *fakePlatform) deleteMessage(id string) {
	delete(f.messages, id)
}

func (f *fakePlatform) sentTo(channelID string) []sentMessage {
	var out []sentMessage
	for _, s := range f.sent {
		if s.channelID == channelID {
			out = append(out, s)
		}
	}
	return out
}

type memStore struct {
	mu         sync.Mutex
	birthdates map[string]models.Birthdate
	configs    map[string]*GuildConfig
	completed  string
	completes  int
	// completeErr, when set, fails every SetGreetCompletion.
	completeErr error
}

func newMemStore() *memStore {
	return &memStore{
		birthdates: map[string]models.Birthdate{},
		configs:    map[string]*GuildConfig{},
	}
}

func (m *memStore) Birthdate(_ context.Context, userID string) (*models.Birthdate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bd, ok := m.birthdates[userID]
	if !ok {
		return nil, nil
	}
	return &bd, nil
}

func (m *memStore) SetBirthdate(_ context.Context, userID string, month time.Month, day int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.birthdates[userID] = models.Birthdate{UserID: userID, Month: uint(month), Day: uint(day)}
	return nil
}

func (m *memStore) Birthdates(_ context.Context, userIDs []string) ([]models.Birthdate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Birthdate
	for _, id := range userIDs {
		if bd, ok := m.birthdates[id]; ok {
			out = append(out, bd)
		}
	}
	return out, nil
}

func (m *memStore) BirthdaysOn(_ context.Context, month time.Month, day int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for id, bd := range m.birthdates {
		if time.Month(bd.Month) == month && int(bd.Day) == day {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *memStore) GuildBirthdayConfig(_ context.Context, guildID string) (*GuildConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.configs[guildID]
	if !ok {
		return nil, ErrNotConfigured
	}
	c := *cfg
	c.CalendarMessageIDs = append([]string(nil), cfg.CalendarMessageIDs...)
	if len(c.CalendarMessageIDs) == 0 {
		c.CalendarMessageIDs = nil
	}
	return &c, nil
}

func (m *memStore) SetBirthdayChannels(_ context.Context, guildID, calendarChannelID, greetChannelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.configs[guildID]
	if !ok {
		cfg = &GuildConfig{GuildID: guildID}
		m.configs[guildID] = cfg
	}
	cfg.CalendarChannelID = calendarChannelID
	cfg.GreetChannelID = greetChannelID
	return nil
}

func (m *memStore) SetBirthdayPingRole(_ context.Context, guildID, roleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cfg, ok := m.configs[guildID]; ok {
		cfg.PingRoleID = roleID
	}
	return nil
}

func (m *memStore) SetCalendarMessageIDs(_ context.Context, guildID string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cfg, ok := m.configs[guildID]; ok {
		cfg.CalendarMessageIDs = append([]string(nil), ids...)
	}
	return nil
}

func (m *memStore) ClearCalendarMessageIDs(_ context.Context, guildID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cfg, ok := m.configs[guildID]; ok {
		cfg.CalendarMessageIDs = nil
	}
	return nil
}

func (m *memStore) GreetCompletion(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.completed, nil
}

func (m *memStore) SetGreetCompletion(_ context.Context, date string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completes++
	if m.completeErr != nil {
		return m.completeErr
	}
	if strings.Compare(date, m.completed) > 0 {
		m.completed = date
	}
	return nil
}
