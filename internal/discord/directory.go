package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/kalambet/gnomo/internal/agent/tools"
)

const (
	searchLimit = 10
	pageSize    = 1000
)

// Directory answers member queries for one guild, preferring the gateway
// state cache and falling back to the REST API.
type Directory struct {
	api     api
	state   *discordgo.State
	guildID string
	logger  *slog.Logger
}

func NewDirectory(a api, state *discordgo.State, guildID string, logger *slog.Logger) *Directory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Directory{api: a, state: state, guildID: guildID, logger: logger.With("component", "user-lookup")}
}

// DisplayName is the guild nickname, then the global name, then the username.
func DisplayName(m *discordgo.Member) string {
	switch {
	case m.Nick != "":
		return m.Nick
	case m.User != nil && m.User.GlobalName != "":
		return m.User.GlobalName
	case m.User != nil:
		return m.User.Username
	}
	return ""
}

func toMember(m *discordgo.Member) tools.Member {
	return tools.Member{ID: m.User.ID, Username: m.User.Username, DisplayName: DisplayName(m)}
}

func matches(m *discordgo.Member, name string) bool {
	if m == nil || m.User == nil {
		return false
	}
	return strings.ToLower(m.User.Username) == name || strings.ToLower(DisplayName(m)) == name
}

// cached snapshots the guild's cached members and the guild's member count.
func (d *Directory) cached() ([]*discordgo.Member, int) {
	g, err := d.state.Guild(d.guildID)
	if err != nil {
		return nil, 0
	}
	d.state.RLock()
	defer d.state.RUnlock()
	return append([]*discordgo.Member(nil), g.Members...), g.MemberCount
}

// FindMember matches name case-insensitively against usernames and display
// names. It returns nil, nil when nobody matches.
func (d *Directory) FindMember(ctx context.Context, name string) (*tools.Member, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return nil, nil
	}

	members, _ := d.cached()
	for _, m := range members {
		if matches(m, needle) {
			found := toMember(m)
			return &found, nil
		}
	}

	found, err := d.api.GuildMembersSearch(d.guildID, strings.TrimSpace(name), searchLimit, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("searching guild members: %w", err)
	}
	for _, m := range found {
		if matches(m, needle) {
			out := toMember(m)
			return &out, nil
		}
	}
	return nil, nil
}

// Members lists everyone in the guild. When the cache is incomplete the full
// list is paged from the API; on failure the cached members are returned
// together with the error.
func (d *Directory) Members(ctx context.Context) ([]tools.Member, error) {
	cached, total := d.cached()
	if len(cached) >= total {
		return convert(cached), nil
	}

	var all []*discordgo.Member
	after := ""
	for {
		page, err := d.api.GuildMembers(d.guildID, after, pageSize, discordgo.WithContext(ctx))
		if err != nil {
			return convert(cached), fmt.Errorf("listing guild members: %w", err)
		}
		all = append(all, page...)
		if len(page) < pageSize {
			break
		}
		last := page[len(page)-1]
		if last.User == nil {
			break
		}
		after = last.User.ID
	}
	d.logger.Debug("fetched guild members", "count", len(all), "cached", len(cached))
	return convert(all), nil
}

func convert(members []*discordgo.Member) []tools.Member {
	out := make([]tools.Member, 0, len(members))
	for _, m := range members {
		if m == nil || m.User == nil {
			continue
		}
		out = append(out, toMember(m))
	}
	return out
}

// VoiceMembers lists members with an active voice connection, from the
// gateway state.
func (d *Directory) VoiceMembers(_ context.Context) ([]tools.VoiceMember, error) {
	g, err := d.state.Guild(d.guildID)
	if err != nil {
		return nil, fmt.Errorf("guild %s not in state: %w", d.guildID, err)
	}

	d.state.RLock()
	states := append([]*discordgo.VoiceState(nil), g.VoiceStates...)
	d.state.RUnlock()

	out := make([]tools.VoiceMember, 0, len(states))
	for _, vs := range states {
		if vs == nil || vs.ChannelID == "" {
			continue
		}
		member := vs.Member
		if member == nil {
			member, _ = d.state.Member(d.guildID, vs.UserID)
		}
		if member == nil || member.User == nil {
			continue
		}

		channelName := ""
		if ch, err := d.state.Channel(vs.ChannelID); err == nil {
			channelName = ch.Name
		}
		out = append(out, tools.VoiceMember{
			Member:      toMember(member),
			ChannelID:   vs.ChannelID,
			ChannelName: channelName,
			SelfMute:    vs.SelfMute,
			SelfDeaf:    vs.SelfDeaf,
			ServerMute:  vs.Mute,
			ServerDeaf:  vs.Deaf,
		})
	}
	return out, nil
}
