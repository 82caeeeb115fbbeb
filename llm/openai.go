package llm

import (
	"context"

	"github.com/sashabaranov/go-openai"
	"github.com/smallnest/convmem/memory"
)

// OpenAI invokes a chat completions endpoint through go-openai
type OpenAI struct {
	client *openai.Client
	model  string
	opts   options
}

var _ memory.Invoker = (*OpenAI)(nil)

// NewOpenAI creates an invoker for model using client
func NewOpenAI(client *openai.Client, model string, opts ...Option) *OpenAI {
	return &OpenAI{
		client: client,
		model:  model,
		opts:   buildOptions(opts),
	}
}

// Invoke sends messages and returns the first choice as an assistant message
func (o *OpenAI) Invoke(ctx context.Context, messages []*memory.Message) (*memory.Message, error) {
	req := openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: float32(o.opts.temperature),
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    chatRole(m.Role()),
			Content: m.Content(),
		})
	}

	o.opts.logger.Debug("invoking %s with %d messages", o.model, len(req.Messages))
	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, &ProviderError{Op: "chat completion", Model: o.model, Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &ProviderError{Op: "chat completion", Model: o.model, Err: ErrEmptyResponse}
	}

	content := resp.Choices[0].Message.Content
	if resp.Usage.TotalTokens > 0 {
		meta := usageMetadata(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
		return memory.NewMessageWithMetadata(memory.RoleAssistant, content, meta), nil
	}
	return memory.AssistantMessage(content), nil
}

func chatRole(r memory.Role) string {
	switch r {
	case memory.RoleSystem:
		return openai.ChatMessageRoleSystem
	case memory.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}
