package discord

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/kalambet/gnomo/internal/agent"
	"github.com/kalambet/gnomo/internal/agent/tools"
	"github.com/kalambet/gnomo/internal/history"
)

const testGuild = "g1"

type reply struct {
	channelID string
	content   string
	ref       *discordgo.MessageReference
}

// fakeAPI records outgoing calls. Member listing is served from members,
// paged by user ID.
type fakeAPI struct {
	mu       sync.Mutex
	channels map[string]*discordgo.Channel
	members  []*discordgo.Member
	search   []*discordgo.Member
	listErr  error
	sendErr  error

	sent    []reply
	replies []reply
	typing  int
	afters  []string
	queries []string
}

func (f *fakeAPI) Channel(channelID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	if ch, ok := f.channels[channelID]; ok {
		return ch, nil
	}
	return nil, errors.New("HTTP 404 Not Found")
}

func (f *fakeAPI) ChannelMessageSend(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, reply{channelID: channelID, content: content})
	return &discordgo.Message{ChannelID: channelID, Content: content}, nil
}

func (f *fakeAPI) ChannelMessageSendReply(channelID, content string, ref *discordgo.MessageReference, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, reply{channelID: channelID, content: content, ref: ref})
	return &discordgo.Message{ChannelID: channelID, Content: content}, nil
}

func (f *fakeAPI) ChannelTyping(string, ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typing++
	return nil
}

func (f *fakeAPI) GuildMembers(_, after string, limit int, _ ...discordgo.RequestOption) ([]*discordgo.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.afters = append(f.afters, after)
	if f.listErr != nil {
		return nil, f.listErr
	}
	start := 0
	if after != "" {
		for i, m := range f.members {
			if m.User.ID == after {
				start = i + 1
			}
		}
	}
	end := min(start+limit, len(f.members))
	return f.members[start:end], nil
}

func (f *fakeAPI) GuildMembersSearch(_, query string, _ int, _ ...discordgo.RequestOption) ([]*discordgo.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.search, nil
}

func member(id, username, nick string) *discordgo.Member {
	return &discordgo.Member{GuildID: testGuild, Nick: nick, User: &discordgo.User{ID: id, Username: username}}
}

func manyMembers(n int) []*discordgo.Member {
	out := make([]*discordgo.Member, n)
	for i := range out {
		out[i] = member(fmt.Sprintf("%05d", i), fmt.Sprintf("user%d", i), "")
	}
	return out
}

// newState builds a gateway cache holding one guild with a text channel,
// a voice channel and two members, one of them in voice.
func newState(t *testing.T, memberCount int) *discordgo.State {
	t.Helper()
	s := discordgo.NewState()
	s.User = &discordgo.User{ID: "bot", Username: "Gnomo"}

	g := &discordgo.Guild{
		ID:          testGuild,
		MemberCount: memberCount,
		Channels: []*discordgo.Channel{
			{ID: "text", GuildID: testGuild, Name: "general", Type: discordgo.ChannelTypeGuildText},
			{ID: "voice", GuildID: testGuild, Name: "Sala de gnomos", Type: discordgo.ChannelTypeGuildVoice},
		},
		Members: []*discordgo.Member{
			member("u1", "alice", "Ali"),
			member("u2", "david_g", ""),
		},
		VoiceStates: []*discordgo.VoiceState{
			{GuildID: testGuild, UserID: "u2", ChannelID: "voice", SelfMute: true, Deaf: true},
			{GuildID: testGuild, UserID: "u1", ChannelID: ""},
		},
	}
	if err := s.GuildAdd(g); err != nil {
		t.Fatalf("GuildAdd: %v", err)
	}
	return s
}

type fakeResponder struct {
	resp   agent.Response
	called int
	got    string
	rc     tools.Context
}

func (f *fakeResponder) Route(_ context.Context, utterance string, rc tools.Context) agent.Response {
	f.called++
	f.got = utterance
	f.rc = rc
	return f.resp
}

type fakeConversations struct {
	past     []history.Turn
	appended []history.Turn
}

func (f *fakeConversations) Get(context.Context, string) []history.Turn { return f.past }

func (f *fakeConversations) Append(_ context.Context, _ string, turn history.Turn) {
	f.appended = append(f.appended, turn)
}
