// Package agent answers one chat turn: it assembles the persona prompt and
// recent history, lets the model call tools for a bounded number of rounds
// and returns a single reply that fits in a chat message.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/kalambet/gnomo/internal/agent/tools"
	"github.com/kalambet/gnomo/internal/history"
	"github.com/kalambet/gnomo/internal/llm"
)

const (
	DefaultMaxSteps  = 3
	MaxMessageLength = 2000

	ellipsis = "..."
)

// Chatter is the completion call the router depends on.
type Chatter interface {
	Complete(ctx context.Context, req llm.ChatRequest) (llm.Choice, error)
}

// Response is the outcome of one turn. Text is empty when Success is false;
// the caller decides what to tell the user in that case.
type Response struct {
	Text    string
	Success bool
}

// Router runs the tool loop for a turn.
type Router struct {
	client   Chatter
	catalog  *tools.Catalog
	maxSteps int
	logger   *slog.Logger
}

// NewRouter creates a Router. maxSteps <= 0 means DefaultMaxSteps.
func NewRouter(client Chatter, catalog *tools.Catalog, maxSteps int, logger *slog.Logger) *Router {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		client:   client,
		catalog:  catalog,
		maxSteps: maxSteps,
		logger:   logger.With("component", "assistant"),
	}
}

// Route answers utterance. Each step is one model round-trip in which the
// model may call any number of tools; the last permitted step is sent with
// tool_choice "none" so the model must answer in text.
func (r *Router) Route(ctx context.Context, utterance string, rc tools.Context) (resp Response) {
	logger := r.logger.With("turn_id", uuid.NewString())

	defer func() {
		if p := recover(); p != nil {
			logger.Error("agent processing failed", "panic", p)
			resp = Response{}
		}
	}()

	messages := BuildMessages(utterance, rc)
	defs := r.catalog.Definitions()

	for step := 1; step <= r.maxSteps; step++ {
		req := llm.ChatRequest{
			Messages:   messages,
			Tools:      defs,
			ToolChoice: llm.ToolChoiceAuto,
		}
		if step == r.maxSteps {
			req.ToolChoice = llm.ToolChoiceNone
		}

		choice, err := r.client.Complete(ctx, req)
		if err != nil {
			logger.Error("agent processing failed", "step", step, "error", err)
			return Response{}
		}

		calls := choice.Message.ToolCalls
		if len(calls) == 0 || step == r.maxSteps {
			logger.Debug("turn finished", "steps", step)
			return Response{Text: Truncate(choice.Message.Content, MaxMessageLength), Success: true}
		}

		messages = append(messages, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   choice.Message.Content,
			ToolCalls: calls,
		})
		for _, call := range calls {
			res := r.catalog.Execute(ctx, call.Function.Name, json.RawMessage(call.Function.Arguments), rc)
			logger.Debug("tool executed", "tool", call.Function.Name, "success", res.Success)
			messages = append(messages, llm.Message{
				Role:       llm.RoleTool,
				ToolCallID: call.ID,
				Content:    res.LLMContent(),
			})
		}
	}

	// Unreachable: the last step always returns.
	return Response{}
}

// BuildMessages assembles the prompt: persona, history with speaker tags,
// then the current utterance.
func BuildMessages(utterance string, rc tools.Context) []llm.Message {
	username := ""
	if rc.User != nil {
		username = rc.User.Username
	}

	messages := make([]llm.Message, 0, len(rc.History)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: SystemPrompt(username)})

	for _, turn := range rc.History {
		switch turn.Role {
		case history.RoleUser:
			messages = append(messages, llm.Message{Role: llm.RoleUser, Content: tagged(turn.Username, turn.Content)})
		case history.RoleAssistant:
			messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: turn.Content})
		}
	}

	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: tagged(username, utterance)})
	return messages
}

func tagged(username, content string) string {
	if username == "" {
		return content
	}
	return fmt.Sprintf("[%s]: %s", username, content)
}

// Truncate limits text to max characters (runes), replacing the tail with
// "..." when it is cut.
func Truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	if max <= len(ellipsis) {
		return string(runes[:max])
	}
	return string(runes[:max-len(ellipsis)]) + ellipsis
}
