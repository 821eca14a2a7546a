package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kalambet/gnomo/internal/llm"
)

const (
	noGuildAccess       = "No hay acceso al servidor"
	unknownVoiceChannel = "Canal desconocido"
)

type memberView struct {
	Mention     string `json:"mention"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	ID          string `json:"id,omitempty"`
}

func viewOf(m Member, withID bool) memberView {
	v := memberView{Mention: m.Mention(), Username: m.Username, DisplayName: m.DisplayName}
	if withID {
		v.ID = m.ID
	}
	return v
}

// LookupUser resolves a name to a member mention.
type LookupUser struct {
	logger *slog.Logger
}

func NewLookupUser(logger *slog.Logger) *LookupUser {
	if logger == nil {
		logger = slog.Default()
	}
	return &LookupUser{logger: logger.With("tool", NameLookupUserByName)}
}

func (*LookupUser) Name() string { return NameLookupUserByName }

func (*LookupUser) Description() string {
	return "Busca un usuario en el servidor de Discord por su nombre de usuario o nombre visible. " +
		"Usa esto cuando necesites mencionar o etiquetar a un usuario específico. " +
		"Retorna la mención del usuario si lo encuentra."
}

func (*LookupUser) Parameters() llm.Schema {
	return llm.Object(map[string]llm.SchemaProperty{
		"name": {Type: "string", Description: "El nombre de usuario o nombre visible a buscar"},
	}, "name")
}

type lookupUserData struct {
	Found       bool    `json:"found"`
	Mention     *string `json:"mention"`
	Username    string  `json:"username,omitempty"`
	DisplayName string  `json:"displayName,omitempty"`
	Message     string  `json:"message"`
}

func (l *LookupUser) Execute(ctx context.Context, args json.RawMessage, rc Context) Result {
	var in struct {
		Name string `json:"name"`
	}
	if err := decodeArgs(args, &in); err != nil {
		l.logger.Warn("invalid arguments", "error", err)
	}
	name := strings.TrimSpace(in.Name)

	if rc.Guild == nil {
		return fail(noGuildAccess, lookupUserData{Message: noGuildAccess})
	}

	notFound := fmt.Sprintf("No se encontró ningún usuario llamado %q", name)
	if name == "" {
		return fail(notFound, lookupUserData{Message: notFound})
	}

	m, err := rc.Guild.FindMember(ctx, name)
	if err != nil {
		l.logger.Error("failed to search guild members", "query", name, "error", err)
	}
	if m == nil {
		return fail(notFound, lookupUserData{Message: notFound})
	}

	msg := "Usuario encontrado: " + m.DisplayName
	mention := m.Mention()
	return succeed(msg, lookupUserData{
		Found:       true,
		Mention:     &mention,
		Username:    m.Username,
		DisplayName: m.DisplayName,
		Message:     msg,
	})
}

// ListGuildUsers lists every member of the guild.
type ListGuildUsers struct {
	logger *slog.Logger
}

func NewListGuildUsers(logger *slog.Logger) *ListGuildUsers {
	if logger == nil {
		logger = slog.Default()
	}
	return &ListGuildUsers{logger: logger.With("tool", NameListAllGuildUsers)}
}

func (*ListGuildUsers) Name() string { return NameListAllGuildUsers }

func (*ListGuildUsers) Description() string {
	return "Obtiene una lista de todos los usuarios en el servidor de Discord. " +
		"Usa esto cuando el usuario quiera ver todos los miembros del servidor o necesites información sobre todos los usuarios."
}

func (*ListGuildUsers) Parameters() llm.Schema { return llm.Object(nil) }

type userListData struct {
	Success bool         `json:"success"`
	Users   []memberView `json:"users"`
	Count   int          `json:"count"`
	Message string       `json:"message"`
}

func (l *ListGuildUsers) Execute(ctx context.Context, _ json.RawMessage, rc Context) Result {
	if rc.Guild == nil {
		return fail(noGuildAccess, userListData{Users: []memberView{}, Message: noGuildAccess})
	}

	members, err := rc.Guild.Members(ctx)
	if err != nil {
		l.logger.Error("failed to fetch all guild members", "error", err)
	}

	users := make([]memberView, 0, len(members))
	for _, m := range members {
		users = append(users, viewOf(m, true))
	}
	msg := fmt.Sprintf("Se encontraron %d usuarios en el servidor", len(users))
	return succeed(msg, userListData{Success: true, Users: users, Count: len(users), Message: msg})
}

// ListVoiceUsers lists members connected to voice channels.
type ListVoiceUsers struct {
	logger *slog.Logger
}

func NewListVoiceUsers(logger *slog.Logger) *ListVoiceUsers {
	if logger == nil {
		logger = slog.Default()
	}
	return &ListVoiceUsers{logger: logger.With("tool", NameListVoiceUsers)}
}

func (*ListVoiceUsers) Name() string { return NameListVoiceUsers }

func (*ListVoiceUsers) Description() string {
	return "Obtiene una lista de todos los usuarios que están actualmente conectados en canales de voz del servidor. " +
		"Usa esto cuando el usuario quiera saber quién está en llamada o en canales de voz."
}

func (*ListVoiceUsers) Parameters() llm.Schema { return llm.Object(nil) }

type voiceUserView struct {
	memberView
	ChannelID   string `json:"channelId"`
	ChannelName string `json:"channelName"`
	SelfMute    bool   `json:"selfMute"`
	SelfDeaf    bool   `json:"selfDeaf"`
	ServerMute  bool   `json:"serverMute"`
	ServerDeaf  bool   `json:"serverDeaf"`
}

type voiceListData struct {
	Success        bool                    `json:"success"`
	Users          []voiceUserView         `json:"users"`
	UsersByChannel map[string][]memberView `json:"usersByChannel"`
	Count          int                     `json:"count"`
	Message        string                  `json:"message"`
}

func (l *ListVoiceUsers) Execute(ctx context.Context, _ json.RawMessage, rc Context) Result {
	if rc.Guild == nil {
		return fail(noGuildAccess, voiceListData{Users: []voiceUserView{}, Message: noGuildAccess})
	}

	voice, err := rc.Guild.VoiceMembers(ctx)
	if err != nil {
		l.logger.Error("failed to get users in voice channels", "error", err)
	}

	data := voiceListData{
		Success:        true,
		Users:          make([]voiceUserView, 0, len(voice)),
		UsersByChannel: make(map[string][]memberView),
	}
	for _, v := range voice {
		data.Users = append(data.Users, voiceUserView{
			memberView:  viewOf(v.Member, true),
			ChannelID:   v.ChannelID,
			ChannelName: v.ChannelName,
			SelfMute:    v.SelfMute,
			SelfDeaf:    v.SelfDeaf,
			ServerMute:  v.ServerMute,
			ServerDeaf:  v.ServerDeaf,
		})
		channel := v.ChannelName
		if channel == "" {
			channel = unknownVoiceChannel
		}
		data.UsersByChannel[channel] = append(data.UsersByChannel[channel], viewOf(v.Member, false))
	}
	data.Count = len(data.Users)
	data.Message = voiceSummary(data.Count)
	return succeed(data.Message, data)
}

func voiceSummary(n int) string {
	switch {
	case n == 0:
		return "No hay usuarios conectados en canales de voz"
	case n == 1:
		return "Hay 1 usuario conectado en canales de voz"
	default:
		return fmt.Sprintf("Hay %d usuarios conectados en canales de voz", n)
	}
}
