package tools

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/kalambet/gnomo/internal/llm"
	"github.com/kalambet/gnomo/internal/search"
)

// Searcher runs web searches.
type Searcher interface {
	Available() bool
	Search(ctx context.Context, query string) (*search.Response, error)
}

// WebSearch looks up current information on the web.
type WebSearch struct {
	searcher Searcher
	logger   *slog.Logger
}

func NewWebSearch(searcher Searcher, logger *slog.Logger) *WebSearch {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSearch{searcher: searcher, logger: logger.With("tool", NameWebSearch)}
}

func (*WebSearch) Name() string { return NameWebSearch }

func (*WebSearch) Description() string {
	return "Busca información actualizada en internet. Usa esto cuando necesites datos actuales, noticias, " +
		"información que no conoces, o cualquier pregunta que requiera información en tiempo real."
}

func (*WebSearch) Parameters() llm.Schema {
	return llm.Object(map[string]llm.SchemaProperty{
		"query": {Type: "string", Description: "La consulta de búsqueda en español o inglés"},
	}, "query")
}

func (w *WebSearch) Execute(ctx context.Context, args json.RawMessage, _ Context) Result {
	var in struct {
		Query string `json:"query"`
	}
	if err := decodeArgs(args, &in); err != nil || strings.TrimSpace(in.Query) == "" {
		return fail(unavailable(NameWebSearch), nil)
	}

	if w.searcher == nil || !w.searcher.Available() {
		return fail("Error: Tavily API key no configurada", nil)
	}

	resp, err := w.searcher.Search(ctx, in.Query)
	if err != nil {
		w.logger.Error("web search failed", "query", in.Query, "error", err)
		return fail(err.Error(), nil)
	}
	if len(resp.Results) == 0 {
		return fail("No se encontraron resultados para tu búsqueda", nil)
	}
	return succeed(search.Format(resp), nil)
}
