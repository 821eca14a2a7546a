package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kalambet/gnomo/internal/llm"
	"github.com/kalambet/gnomo/internal/reminder"
	"github.com/kalambet/gnomo/internal/timeparse"
)

const (
	reminderUnavailable   = "Lo siento, el servicio de recordatorios no está disponible en este momento."
	reminderSaveFailed    = "Hubo un error al guardar el recordatorio. Inténtalo de nuevo."
	reminderRequestFailed = "Hubo un error al procesar tu solicitud de recordatorio."
)

// TimeParser resolves a time expression relative to now.
type TimeParser interface {
	Parse(ctx context.Context, expression string, now time.Time) timeparse.Result
}

// ReminderCreator persists reminders.
type ReminderCreator interface {
	IsAvailable() bool
	Create(ctx context.Context, userID, username, channelID, message string, due time.Time) *reminder.Reminder
}

// CreateReminder schedules a reminder for the speaker in the origin channel.
type CreateReminder struct {
	parser TimeParser
	store  ReminderCreator
	now    func() time.Time
	logger *slog.Logger
}

func NewCreateReminder(parser TimeParser, store ReminderCreator, logger *slog.Logger) *CreateReminder {
	if logger == nil {
		logger = slog.Default()
	}
	return &CreateReminder{
		parser: parser,
		store:  store,
		now:    time.Now,
		logger: logger.With("tool", NameCreateReminder),
	}
}

func (*CreateReminder) Name() string { return NameCreateReminder }

func (*CreateReminder) Description() string {
	return "Crea un recordatorio para el usuario. Usa esto cuando el usuario quiera que le recuerdes algo en el futuro. " +
		`Ejemplos: "recuérdame en 2 horas...", "avísame mañana...", "en 30 minutos recuérdame..."`
}

func (*CreateReminder) Parameters() llm.Schema {
	return llm.Object(map[string]llm.SchemaProperty{
		"timeExpression": {
			Type:        "string",
			Description: `La expresión de tiempo del usuario, ej: "en 2 horas", "mañana a las 9am", "en 30 minutos"`,
		},
		"reminderMessage": {
			Type:        "string",
			Description: "El mensaje o cosa que el usuario quiere que le recuerdes",
		},
	}, "timeExpression", "reminderMessage")
}

func (c *CreateReminder) Execute(ctx context.Context, args json.RawMessage, rc Context) Result {
	if c.store == nil || !c.store.IsAvailable() || rc.Channel == nil {
		c.logger.Warn("reminder service not available")
		return fail(reminderUnavailable, nil)
	}

	var in struct {
		TimeExpression  string `json:"timeExpression"`
		ReminderMessage string `json:"reminderMessage"`
	}
	if err := decodeArgs(args, &in); err != nil {
		c.logger.Error("failed to process reminder request", "error", err)
		return fail(reminderRequestFailed, nil)
	}
	expr := strings.TrimSpace(in.TimeExpression)

	now := c.now()
	parsed := c.parser.Parse(ctx, expr, now)
	if !parsed.Valid {
		return fail(fmt.Sprintf(
			`No pude entender el tiempo "%s". Intenta con algo como "en 2 horas", "en 30 minutos", o "mañana a las 9am".`,
			expr), nil)
	}

	userID, username := "unknown", "Usuario"
	if rc.User != nil {
		if rc.User.UserID != "" {
			userID = rc.User.UserID
		}
		if rc.User.Username != "" {
			username = rc.User.Username
		}
	}

	r := c.store.Create(ctx, userID, username, rc.Channel.ID, in.ReminderMessage, parsed.Due(now))
	if r == nil {
		return fail(reminderSaveFailed, nil)
	}

	c.logger.Info("reminder created successfully",
		"reminder_id", r.ID, "username", r.Username, "due_in", parsed.HumanReadable)
	return succeed(fmt.Sprintf(`¡Listo! Te recordaré %s sobre: "%s"`, whenPhrase(parsed.HumanReadable), in.ReminderMessage), nil)
}

// whenPhrase prefixes "en" unless the model's phrase already starts with it.
func whenPhrase(human string) string {
	if strings.HasPrefix(strings.ToLower(human), "en ") {
		return human
	}
	return "en " + human
}
