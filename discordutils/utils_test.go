package discordutils

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindRole(t *testing.T) {
	roles := []*discordgo.Role{
		{ID: "1", Name: "mods"},
		{ID: "2", Name: "<@&3>"},
		{ID: "3", Name: "party"},
		{ID: "4", Name: "mods"},
	}

	tests := []struct {
		token string
		want  string
		found bool
	}{
		{token: "mods", want: "1", found: true},
		{token: "<@&4>", want: "4", found: true},
		// A mention beats a role that happens to be named like one.
		{token: "<@&3>", want: "3", found: true},
		{token: "party", want: "3", found: true},
		{token: "Party", found: false},
		{token: "<@&99>", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			role, ok := FindRole(roles, tt.token)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				require.NotNil(t, role)
				assert.Equal(t, tt.want, role.ID)
			} else {
				assert.Nil(t, role)
			}
		})
	}
}

func TestFindChannel(t *testing.T) {
	channels := []*discordgo.Channel{
		{ID: "10", Name: "general"},
		{ID: "11", Name: "birthdays"},
	}

	channel, ok := FindChannel(channels, "<#11>")
	require.True(t, ok)
	assert.Equal(t, "11", channel.ID)

	channel, ok = FindChannel(channels, "general")
	require.True(t, ok)
	assert.Equal(t, "10", channel.ID)

	_, ok = FindChannel(channels, "<#12>")
	assert.False(t, ok)
}

func TestFindByNameOrMentionEmpty(t *testing.T) {
	_, ok := FindByNameOrMention(
		[]string{},
		"x",
		func(s string) string { return s },
		func(s string) string { return s },
	)
	assert.False(t, ok)
}

func TestMemberIsModerator(t *testing.T) {
	guild := &discordgo.Guild{ID: "G", OwnerID: "owner"}
	owner := &discordgo.Member{User: &discordgo.User{ID: "owner"}}
	mod := &discordgo.Member{User: &discordgo.User{ID: "mod"}, Roles: []string{"x", "R"}}
	pleb := &discordgo.Member{User: &discordgo.User{ID: "pleb"}, Roles: []string{"x"}}

	assert.True(t, MemberIsModerator(guild, owner, nil))
	assert.True(t, MemberIsModerator(guild, mod, []string{"R"}))
	assert.False(t, MemberIsModerator(guild, pleb, []string{"R"}))
	assert.False(t, MemberIsModerator(guild, mod, nil))

	assert.True(t, IsOwner(guild, owner))
	assert.False(t, IsOwner(guild, mod))
	assert.False(t, IsOwner(guild, nil))
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "nick", DisplayName(&discordgo.Member{Nick: "nick", User: &discordgo.User{Username: "user"}}))
	assert.Equal(t, "user", DisplayName(&discordgo.Member{User: &discordgo.User{Username: "user"}}))
}

func TestIsNotFound(t *testing.T) {
	unknownMessage := &discordgo.RESTError{
		Message: &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownMessage},
	}
	notFound := &discordgo.RESTError{
		Response: &http.Response{StatusCode: http.StatusNotFound},
	}
	forbidden := &discordgo.RESTError{
		Response: &http.Response{StatusCode: http.StatusForbidden},
		Message:  &discordgo.APIErrorMessage{Code: discordgo.ErrCodeMissingAccess},
	}

	assert.True(t, IsNotFound(unknownMessage))
	assert.True(t, IsNotFound(fmt.Errorf("wrapped: %w", notFound)))
	assert.False(t, IsNotFound(forbidden))
	assert.False(t, IsNotFound(errors.New("boom")))
	assert.False(t, IsNotFound(nil))
}
