// Package tools defines the fixed set of capabilities the assistant can
// invoke while answering a chat turn.
//
// Tools never return errors: failures become a Result with Success false and
// a diagnostic Text, which is fed back to the model so it can react.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/kalambet/gnomo/internal/history"
	"github.com/kalambet/gnomo/internal/llm"
)

// Tool names exposed to the model.
const (
	NameFetchRandomPhrase = "fetch-random-phrase"
	NameFetchRandomImage  = "fetch-random-image"
	NameWebSearch         = "web-search"
	NameLookupUserByName  = "lookup-user-by-name"
	NameListAllGuildUsers = "list-all-guild-users"
	NameListVoiceUsers    = "list-users-in-voice-channels"
	NameCreateReminder    = "create-reminder"
)

// UserInfo identifies the speaker of the current turn.
type UserInfo struct {
	UserID   string
	Username string
}

// ChannelRef is the text channel the turn came from.
type ChannelRef struct {
	ID string
}

// Member is a guild member as reported to the model.
type Member struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
}

// Mention renders the member as a chat mention.
func (m Member) Mention() string { return Mention(m.ID) }

// Mention renders a user id as a chat mention.
func Mention(userID string) string { return "<@" + userID + ">" }

// VoiceMember is a member connected to a voice channel.
type VoiceMember struct {
	Member
	ChannelID   string
	ChannelName string
	SelfMute    bool
	SelfDeaf    bool
	ServerMute  bool
	ServerDeaf  bool
}

// GuildDirectory answers member and voice-state queries for one guild.
type GuildDirectory interface {
	// FindMember matches name against usernames and display names,
	// case-insensitively. It returns nil, nil when nobody matches.
	FindMember(ctx context.Context, name string) (*Member, error)
	Members(ctx context.Context) ([]Member, error)
	VoiceMembers(ctx context.Context) ([]VoiceMember, error)
}

// Context carries the ambient values of one chat turn. Any field may be
// nil; tools that need a missing value report it in their Result.
type Context struct {
	User    *UserInfo
	Guild   GuildDirectory
	Channel *ChannelRef
	History []history.Turn
}

// Result is what a tool hands back to the router.
type Result struct {
	Success bool
	Text    string
	// Data is the structured payload shown to the model. When nil the model
	// sees {"success", "text"}.
	Data any
}

// LLMContent serializes the result for a tool message.
func (r Result) LLMContent() string {
	payload := r.Data
	if payload == nil {
		payload = struct {
			Success bool   `json:"success"`
			Text    string `json:"text"`
		}{r.Success, r.Text}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf(`{"success":false,"text":%q}`, r.Text)
	}
	return string(b)
}

func succeed(text string, data any) Result { return Result{Success: true, Text: text, Data: data} }
func fail(text string, data any) Result { return Result{Success: false, Text: text, Data: data} }

// unavailable is the generic failure text for a tool.
func unavailable(name string) string { return name + " no disponible" }

// Tool is one capability.
type Tool interface {
	Name() string
	Description() string
	Parameters() llm.Schema
	Execute(ctx context.Context, args json.RawMessage, rc Context) Result
}

// Catalog is the immutable set of tools offered to the model.
type Catalog struct {
	tools  []Tool
	byName map[string]Tool
	logger *slog.Logger
}

// NewCatalog builds a catalog. Later tools with a duplicate name are ignored.
func NewCatalog(logger *slog.Logger, tools ...Tool) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Catalog{byName: make(map[string]Tool, len(tools)), logger: logger.With("component", "tools")}
	for _, t := range tools {
		if _, dup := c.byName[t.Name()]; dup {
			c.logger.Warn("duplicate tool ignored", "tool", t.Name())
			continue
		}
		c.tools = append(c.tools, t)
		c.byName[t.Name()] = t
	}
	return c
}

// Tools returns the tools in registration order.
func (c *Catalog) Tools() []Tool { return append([]Tool(nil), c.tools...) }

// Lookup returns the tool with the given name.
func (c *Catalog) Lookup(name string) (Tool, bool) {
	t, ok := c.byName[name]
	return t, ok
}

// Definitions returns the function declarations sent to the model.
func (c *Catalog) Definitions() []llm.Tool {
	defs := make([]llm.Tool, 0, len(c.tools))
	for _, t := range c.tools {
		defs = append(defs, llm.NewTool(t.Name(), t.Description(), t.Parameters()))
	}
	return defs
}

// Execute runs the named tool. Unknown names and panics are turned into
// failed results.
func (c *Catalog) Execute(ctx context.Context, name string, args json.RawMessage, rc Context) (res Result) {
	t, found := c.byName[name]
	if !found {
		c.logger.Warn("model requested unknown tool", "tool", name)
		return fail(unavailable(name), nil)
	}

	defer func() {
		if p := recover(); p != nil {
			c.logger.Error("tool execution failed", "tool", name, "panic", p)
			res = fail(unavailable(name), nil)
		}
	}()

	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	return t.Execute(ctx, args, rc)
}

// decodeArgs unmarshals tool arguments, tolerating an empty payload.
func decodeArgs(args json.RawMessage, v any) error {
	if len(args) == 0 {
		return nil
	}
	return json.Unmarshal(args, v)
}
