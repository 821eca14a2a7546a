package timeparse

import (
	"fmt"
	"time"
)

const promptTemplate = `Parse following Spanish time expression and convert it to minutes from now.

Current date and time: %s (%s)
Current day of week: %s

Time expression: "%s"

Examples:
- "en 2 horas" → { minutes: 120, humanReadable: "en 2 horas", valid: true }
- "en 30 minutos" → { minutes: 30, humanReadable: "en 30 minutos", valid: true }
- "mañana a las 9am" (if now is 3pm) → { minutes: 1080, humanReadable: "mañana a las 9:00", valid: true }
- "en 1 día" → { minutes: 1440, humanReadable: "en 1 día", valid: true }
- "el viernes a las 3pm" → calculate minutes until that time
- "la próxima semana" → { minutes: 10080, humanReadable: "en 1 semana", valid: true }
- "gibberish" → { minutes: 0, humanReadable: "", valid: false }

Rules:
- If time has already passed today, assume next occurrence (tomorrow or next week)
- Always return positive minutes
- If expression is unclear or invalid, set valid to false
- humanReadable should be a natural Spanish phrase`

// BuildPrompt renders the parsing prompt anchored at now, which should
// already be in the user's time zone.
func BuildPrompt(expression string, now time.Time) string {
	return fmt.Sprintf(promptTemplate,
		now.Format("2006-01-02 15:04:05"),
		utcOffset(now),
		now.Weekday().String(),
		expression,
	)
}

// utcOffset renders the zone offset as "UTC-5" or "UTC+5:30".
func utcOffset(t time.Time) string {
	_, secs := t.Zone()
	sign := "+"
	if secs < 0 {
		sign = "-"
		secs = -secs
	}
	h, m := secs/3600, (secs%3600)/60
	if m == 0 {
		return fmt.Sprintf("UTC%s%d", sign, h)
	}
	return fmt.Sprintf("UTC%s%d:%02d", sign, h, m)
}
