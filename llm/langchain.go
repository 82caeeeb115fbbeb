package llm

import (
	"context"
	"errors"

	"github.com/smallnest/convmem/memory"
	"github.com/tmc/langchaingo/llms"
)

// ErrEmptyResponse is returned when the model answers with no choices
var ErrEmptyResponse = errors.New("empty response from model")

// Langchain invokes a langchaingo llms.Model
type Langchain struct {
	model llms.Model
	name  string
	opts  options
}

var _ memory.Invoker = (*Langchain)(nil)

// NewLangchain wraps model. name is only used in errors and logs.
func NewLangchain(model llms.Model, name string, opts ...Option) *Langchain {
	return &Langchain{
		model: model,
		name:  name,
		opts:  buildOptions(opts),
	}
}

// Invoke sends messages and returns the first choice as an assistant message
func (l *Langchain) Invoke(ctx context.Context, messages []*memory.Message) (*memory.Message, error) {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		content = append(content, llms.TextParts(messageType(m.Role()), m.Content()))
	}

	l.opts.logger.Debug("invoking %s with %d messages", l.name, len(content))
	resp, err := l.model.GenerateContent(ctx, content, llms.WithTemperature(l.opts.temperature))
	if err != nil {
		return nil, &ProviderError{Op: "generate", Model: l.name, Err: err}
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, &ProviderError{Op: "generate", Model: l.name, Err: ErrEmptyResponse}
	}

	choice := resp.Choices[0]
	if meta, ok := generationUsage(choice.GenerationInfo); ok {
		return memory.NewMessageWithMetadata(memory.RoleAssistant, choice.Content, meta), nil
	}
	return memory.AssistantMessage(choice.Content), nil
}

func messageType(r memory.Role) llms.ChatMessageType {
	switch r {
	case memory.RoleSystem:
		return llms.ChatMessageTypeSystem
	case memory.RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}

// generationUsage reads the token counts langchaingo's openai client puts
// into GenerationInfo
func generationUsage(info map[string]any) (map[string]any, bool) {
	prompt, ok1 := asInt(info["PromptTokens"])
	completion, ok2 := asInt(info["CompletionTokens"])
	if !ok1 || !ok2 {
		return nil, false
	}
	return usageMetadata(prompt, completion), true
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}
