package bot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"equibot/birthdays"
	"equibot/dal"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/require"
)

type fakeDiscord struct {
	mu        sync.Mutex
	guild     *discordgo.Guild
	members   []*discordgo.Member
	channels  []*discordgo.Channel
	roles     []*discordgo.Role
	messages  map[string]*discordgo.Message
	sent      []*discordgo.Message
	files     []*discordgo.File
	reactions []string
	nextID    int
	// denied channels reject every SendMessage.
	denied map[string]bool
}

func newFakeDiscord() *fakeDiscord {
	return &fakeDiscord{
		guild: &discordgo.Guild{ID: "G", Name: "Test", OwnerID: "owner"},
		members: []*discordgo.Member{
			{User: &discordgo.User{ID: "owner", Username: "owner"}},
			{User: &discordgo.User{ID: "42", Username: "alice"}, Nick: "Al"},
			{User: &discordgo.User{ID: "7", Username: "bob"}, Roles: []string{"mods"}},
		},
		channels: []*discordgo.Channel{
			{ID: "cmd", GuildID: "G", Name: "bot-commands"},
			{ID: "cal", GuildID: "G", Name: "calendar"},
			{ID: "greet", GuildID: "G", Name: "general"},
		},
		roles: []*discordgo.Role{
			{ID: "mods", Name: "Moderators"},
			{ID: "party", Name: "party"},
		},
		messages: map[string]*discordgo.Message{},
	}
}

func (f *fakeDiscord) SendMessage(_ context.Context, channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.denied[channelID] {
		return nil, fmt.Errorf("HTTP 403 Forbidden: Missing Permissions in %s", channelID)
	}

	f.nextID++
	m := &discordgo.Message{
		ID:        fmt.Sprintf("m%d", f.nextID),
		ChannelID: channelID,
		Content:   msg.Content,
		Embeds:    msg.Embeds,
	}
	f.messages[m.ID] = m
	f.sent = append(f.sent, m)
	f.files = append(f.files, msg.Files...)
	return m, nil
}

func (f *fakeDiscord) FetchMessage(_ context.Context, channelID, messageID string) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, ok := f.messages[messageID]
	if !ok || m.ChannelID != channelID {
		return nil, birthdays.ErrMessageNotFound
	}
	return m, nil
}

func (f *fakeDiscord) EditMessage(_ context.Context, msg *discordgo.Message, embed *discordgo.MessageEmbed) error {
	msg.Embeds = []*discordgo.MessageEmbed{embed}
	return nil
}

func (f *fakeDiscord) ResolveChannel(guildID, channelID string) (*discordgo.Channel, bool) {
	for _, c := range f.channels {
		if c.ID == channelID && c.GuildID == guildID {
			return c, true
		}
	}
	return nil, false
}

func (f *fakeDiscord) ResolveRole(_, roleID string) (*discordgo.Role, bool) {
	for _, r := range f.roles {
		if r.ID == roleID {
			return r, true
		}
	}
	return nil, false
}

func (f *fakeDiscord) GuildMembers(context.Context, string) ([]*discordgo.Member, error) {
	return f.members, nil
}

func (f *fakeDiscord) GuildMemberIDs(ctx context.Context, guildID string) ([]string, error) {
	ids := make([]string, len(f.members))
	for i, m := range f.members {
		ids[i] = m.User.ID
	}
	return ids, nil
}

func (f *fakeDiscord) Guilds() []string {
	return []string{f.guild.ID}
}

func (f *fakeDiscord) Guild(string) (*discordgo.Guild, error) {
	return f.guild, nil
}

func (f *fakeDiscord) GuildChannels(string) ([]*discordgo.Channel, error) {
	return f.channels, nil
}

func (f *fakeDiscord) GuildRoles(string) ([]*discordgo.Role, error) {
	return f.roles, nil
}

func (f *fakeDiscord) React(channelID, messageID, emoji string) error {
	f.reactions = append(f.reactions, emoji)
	return nil
}

// sentTo returns every message sent to channelID.
func (f *fakeDiscord) sentTo(channelID string) []*discordgo.Message {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*discordgo.Message
	for _, m := range f.sent {
		if m.ChannelID == channelID {
			out = append(out, m)
		}
	}
	return out
}

// lastReply returns the text of the last reply in the command channel.
func (f *fakeDiscord) lastReply(t *testing.T) string {
	t.Helper()

	replies := f.sentTo("cmd")
	require.NotEmpty(t, replies)
	last := replies[len(replies)-1]
	if len(last.Embeds) > 0 {
		return last.Embeds[0].Title + "|" + last.Embeds[0].Description
	}
	return last.Content
}

type testBot struct {
	*Bot
	discord *fakeDiscord
	store   *dal.Store
}

func newTestBot(t *testing.T, now time.Time) *testBot {
	t.Helper()

	handler := slog.NewTextHandler(io.Discard, nil)
	dsn := fmt.Sprintf(
		"file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"),
	)
	store, err := dal.Open(dal.SQLite, dsn, 0, handler)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	discord := newFakeDiscord()
	bot := newBot(
		Config{DefaultPrefix: "!"},
		store,
		discord,
		func() time.Time { return now },
		slog.New(handler),
	)
	return &testBot{Bot: bot, discord: discord, store: store}
}

// say sends content to the command channel as userID.
func (tb *testBot) say(userID, content string) {
	tb.handleMessage(context.Background(), &discordgo.Message{
		ID:        "in",
		ChannelID: "cmd",
		GuildID:   "G",
		Content:   content,
		Author:    &discordgo.User{ID: userID},
		Member:    &discordgo.Member{Roles: tb.rolesOf(userID)},
	})
}

func (tb *testBot) rolesOf(userID string) []string {
	for _, m := range tb.discord.members {
		if m.User.ID == userID {
			return m.Roles
		}
	}
	return nil
}

// botMessage builds a message sent by another bot.
func botMessage(content string) *discordgo.Message {
	return &discordgo.Message{
		ChannelID: "cmd",
		GuildID:   "G",
		Content:   content,
		Author:    &discordgo.User{ID: "bot", Bot: true},
	}
}
