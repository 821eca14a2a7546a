// Package discord connects the assistant to a Discord guild: it listens for
// mentions, answers through the agent router and exposes the guild and its
// channels to tools and background jobs.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/kalambet/gnomo/internal/agent"
	"github.com/kalambet/gnomo/internal/agent/tools"
	"github.com/kalambet/gnomo/internal/history"
)

const (
	intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildVoiceStates

	typingInterval = 7 * time.Second
	messageTimeout = 2 * time.Minute
)

// api is the part of *discordgo.Session the bot talks to.
type api interface {
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendReply(channelID, content string, reference *discordgo.MessageReference, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelTyping(channelID string, options ...discordgo.RequestOption) error
	GuildMembers(guildID, after string, limit int, options ...discordgo.RequestOption) ([]*discordgo.Member, error)
	GuildMembersSearch(guildID, query string, limit int, options ...discordgo.RequestOption) ([]*discordgo.Member, error)
}

// Responder answers one utterance.
type Responder interface {
	Route(ctx context.Context, utterance string, rc tools.Context) agent.Response
}

// Conversations is the per-channel history the handler reads and extends.
type Conversations interface {
	Get(ctx context.Context, channelID string) []history.Turn
	Append(ctx context.Context, channelID string, turn history.Turn)
}

// Options configures a Bot.
type Options struct {
	Token   string
	GuildID string

	Responder     Responder
	Conversations Conversations
	Logger        *slog.Logger
}

// Bot owns the gateway session.
type Bot struct {
	session *discordgo.Session
	api     api
	state   *discordgo.State
	guildID string

	responder     Responder
	conversations Conversations
	directory     *Directory
	channels      *Channels

	baseCtx        context.Context
	typingInterval time.Duration
	ready          atomic.Bool
	logger         *slog.Logger
}

// New creates a Bot. The gateway connection is opened by Run.
func New(opts Options) (*Bot, error) {
	s, err := discordgo.New("Bot " + opts.Token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	s.Identify.Intents = intents
	s.StateEnabled = true

	b := newBot(s, s.State, opts)
	b.session = s
	s.AddHandler(b.onReady)
	s.AddHandler(b.onResumed)
	s.AddHandler(b.onDisconnect)
	s.AddHandler(b.onMessageCreate)
	return b, nil
}

func newBot(a api, state *discordgo.State, opts Options) *Bot {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		api:            a,
		state:          state,
		guildID:        opts.GuildID,
		responder:      opts.Responder,
		conversations:  opts.Conversations,
		directory:      NewDirectory(a, state, opts.GuildID, logger),
		channels:       NewChannels(a, state, logger),
		baseCtx:        context.Background(),
		typingInterval: typingInterval,
		logger:         logger.With("component", "discord"),
	}
}

// Directory exposes the configured guild to tools.
func (b *Bot) Directory() *Directory { return b.directory }

// Channels resolves and posts to text channels.
func (b *Bot) Channels() *Channels { return b.channels }

// Ready reports whether the gateway session is connected.
func (b *Bot) Ready() bool { return b.ready.Load() }

// Run opens the gateway and blocks until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	if b.session == nil {
		return fmt.Errorf("discord session not initialised")
	}
	b.baseCtx = ctx

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("opening discord gateway: %w", err)
	}
	<-ctx.Done()

	b.ready.Store(false)
	if err := b.session.Close(); err != nil {
		return fmt.Errorf("closing discord gateway: %w", err)
	}
	b.logger.Info("discord session closed")
	return nil
}

func (b *Bot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	b.ready.Store(true)
	tag := ""
	if r.User != nil {
		tag = r.User.String()
	}
	b.logger.Info("discord client ready", "tag", tag, "guilds", len(r.Guilds))
}

func (b *Bot) onResumed(*discordgo.Session, *discordgo.Resumed) {
	b.ready.Store(true)
}

func (b *Bot) onDisconnect(*discordgo.Session, *discordgo.Disconnect) {
	b.ready.Store(false)
	b.logger.Warn("discord gateway disconnected")
}

func (b *Bot) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	ctx, cancel := context.WithTimeout(b.baseCtx, messageTimeout)
	defer cancel()
	b.handle(ctx, m.Message)
}
