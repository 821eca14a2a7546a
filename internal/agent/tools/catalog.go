package tools

import "log/slog"

// Deps are the collaborators of the standard catalog. Nil Search or
// Reminders leave the corresponding tool in place but reporting itself
// unavailable.
type Deps struct {
	Assets    AssetSource
	Search    Searcher
	Parser    TimeParser
	Reminders ReminderCreator
	Logger    *slog.Logger
}

// Standard assembles the assistant's full tool set.
func Standard(d Deps) *Catalog {
	return NewCatalog(d.Logger,
		NewPhrase(d.Assets),
		NewImage(d.Assets),
		NewWebSearch(d.Search, d.Logger),
		NewLookupUser(d.Logger),
		NewListGuildUsers(d.Logger),
		NewListVoiceUsers(d.Logger),
		NewCreateReminder(d.Parser, d.Reminders, d.Logger),
	)
}
