package discord

import (
	"context"
	"math/rand/v2"
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/kalambet/gnomo/internal/agent"
	"github.com/kalambet/gnomo/internal/agent/tools"
	"github.com/kalambet/gnomo/internal/history"
)

var mentionPattern = regexp.MustCompile(`<@!?\d+>`)

var confusedPhrases = []string{
	"¿Qué? 🤔 Creo que mi cerebro de gnomo necesita un upgrade...",
	"No entendí ni papa 🥔 ¿Me lo explicas como si tuviera 5 años?",
	"Emmm... ¿sí? ¿no? ¿tal vez? Estoy más perdido que gnomo en autopista 🚗",
	"Mi detector de sentido común está fallando. Error 404: comprensión no encontrada 🤖",
	"¿Hablas en código encriptado o soy yo que soy medio tonto? 🧐",
	"Disculpa, estaba pensando en hongos mágicos y no presté atención 🍄✨",
	"Ajá, ajá... no tengo ni idea de lo que dijiste pero suena interesante 👀",
	"Creo que me perdí en la parte donde... bueno, en toda la parte 😅",
	"¿Podrías repetir eso pero en idioma gnomo? Porque no cacé nada 🎣",
	"Mi QI de gnomo no alcanza para procesar eso, intenta de nuevo porfa 🧙‍♂️",
}

// ConfusedPhrase returns a random fallback reply.
func ConfusedPhrase() string {
	return confusedPhrases[rand.IntN(len(confusedPhrases))]
}

// StripMentions removes user mentions (<@id> and <@!id>) and trims the result.
func StripMentions(content string) string {
	return strings.TrimSpace(mentionPattern.ReplaceAllString(content, ""))
}

func mentions(m *discordgo.Message, userID string) bool {
	for _, u := range m.Mentions {
		if u != nil && u.ID == userID {
			return true
		}
	}
	return false
}

// handle answers a message that mentions the bot in the configured guild.
func (b *Bot) handle(ctx context.Context, m *discordgo.Message) {
	if m == nil || m.Author == nil || m.Author.Bot {
		return
	}
	if m.GuildID != b.guildID {
		return
	}

	b.logger.Debug("message received", "username", m.Author.Username, "content", m.Content)

	self := b.state.User
	if self == nil || !mentions(m, self.ID) {
		return
	}

	channel, _ := b.state.Channel(m.ChannelID)
	if channel != nil && channel.Type == discordgo.ChannelTypeGroupDM {
		return
	}

	content := StripMentions(m.Content)
	user := &tools.UserInfo{UserID: m.Author.ID, Username: m.Author.Username}

	past := b.conversations.Get(ctx, m.ChannelID)
	b.conversations.Append(ctx, m.ChannelID, history.Turn{
		Role:      history.RoleUser,
		Username:  user.Username,
		UserID:    user.UserID,
		Content:   content,
		Timestamp: time.Now().UnixMilli(),
	})

	rc := tools.Context{User: user, Guild: b.directory, History: past}
	if channel != nil && channel.Type == discordgo.ChannelTypeGuildText {
		rc.Channel = &tools.ChannelRef{ID: channel.ID}
	}

	resp := b.route(ctx, m.ChannelID, content, rc)

	reply := ConfusedPhrase()
	if resp.Success && resp.Text != "" {
		b.logger.Info("message handled", "channel_id", m.ChannelID, "username", user.Username)
		b.conversations.Append(ctx, m.ChannelID, history.Turn{
			Role:      history.RoleAssistant,
			Username:  self.Username,
			UserID:    self.ID,
			Content:   resp.Text,
			Timestamp: time.Now().UnixMilli(),
		})
		reply = resp.Text
	}

	if _, err := b.api.ChannelMessageSendReply(m.ChannelID, reply, m.Reference(), discordgo.WithContext(ctx)); err != nil {
		b.logger.Error("failed to send reply", "channel_id", m.ChannelID, "error", err)
	}
}

// route runs the responder under the typing indicator. The indicator stops
// on every exit, a panicking responder included.
func (b *Bot) route(ctx context.Context, channelID, content string, rc tools.Context) agent.Response {
	stop := b.startTyping(ctx, channelID)
	defer stop()
	return b.responder.Route(ctx, content, rc)
}

// startTyping shows the typing indicator until the returned stop function is
// called. The indicator expires on its own after ~10s, so it is refreshed.
func (b *Bot) startTyping(ctx context.Context, channelID string) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)

	if err := b.api.ChannelTyping(channelID, discordgo.WithContext(ctx)); err != nil {
		b.logger.Debug("typing indicator failed", "channel_id", channelID, "error", err)
	}

	go func() {
		t := time.NewTicker(b.typingInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if err := b.api.ChannelTyping(channelID, discordgo.WithContext(ctx)); err != nil {
					return
				}
			}
		}
	}()

	return cancel
}
