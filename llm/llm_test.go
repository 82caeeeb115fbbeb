package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/smallnest/convmem/config"
	"github.com/smallnest/convmem/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// MockLLM records the messages it receives and replays canned responses
type MockLLM struct {
	CapturedMessages [][]llms.MessageContent
	response         *llms.ContentResponse
	err              error
}

func (m *MockLLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.CapturedMessages = append(m.CapturedMessages, messages)
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func (m *MockLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return "", nil
}

func conversation() []*memory.Message {
	return []*memory.Message{
		memory.SystemMessage("be brief"),
		memory.UserMessage("hi"),
		memory.AssistantMessage("hello"),
		memory.UserMessage("what is a VAE?"),
	}
}

func TestLangchain_MapsRoles(t *testing.T) {
	mock := &MockLLM{response: &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: "An autoencoder."}},
	}}
	inv := NewLangchain(mock, "test-model")

	reply, err := inv.Invoke(context.Background(), conversation())
	require.NoError(t, err)
	assert.Equal(t, memory.RoleAssistant, reply.Role())
	assert.Equal(t, "An autoencoder.", reply.Content())
	_, ok := reply.Metadata(MetaPromptTokens)
	assert.False(t, ok)

	require.Len(t, mock.CapturedMessages, 1)
	sent := mock.CapturedMessages[0]
	require.Len(t, sent, 4)
	assert.Equal(t, llms.ChatMessageTypeSystem, sent[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, sent[1].Role)
	assert.Equal(t, llms.ChatMessageTypeAI, sent[2].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, sent[3].Role)
	assert.Equal(t, llms.TextContent{Text: "what is a VAE?"}, sent[3].Parts[0])
}

func TestLangchain_AttachesUsage(t *testing.T) {
	mock := &MockLLM{response: &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{
			Content:        "ok",
			GenerationInfo: map[string]any{"PromptTokens": 42, "CompletionTokens": 3},
		}},
	}}

	reply, err := NewLangchain(mock, "m").Invoke(context.Background(), conversation())
	require.NoError(t, err)

	v, ok := reply.Metadata(MetaPromptTokens)
	require.True(t, ok)
	assert.Equal(t, 42, v)
	v, ok = reply.Metadata(MetaCompletionTokens)
	require.True(t, ok)
	assert.Equal(t, 3, v)
}

func TestLangchain_WrapsErrors(t *testing.T) {
	boom := errors.New("rate limited")
	_, err := NewLangchain(&MockLLM{err: boom}, "m").Invoke(context.Background(), conversation())

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "m", pe.Model)
	assert.ErrorIs(t, err, boom)

	_, err = NewLangchain(&MockLLM{response: &llms.ContentResponse{}}, "m").Invoke(context.Background(), conversation())
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func newOpenAIServer(t *testing.T, handler http.HandlerFunc) *openai.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	return openai.NewClientWithConfig(cfg)
}

func TestOpenAI_Invoke(t *testing.T) {
	var got openai.ChatCompletionRequest
	client := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			ID:    "chatcmpl-1",
			Model: got.Model,
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: "A generative model."},
			}},
			Usage: openai.Usage{PromptTokens: 20, CompletionTokens: 4, TotalTokens: 24},
		})
	})

	reply, err := NewOpenAI(client, "llama-3.1-8b-instant", WithTemperature(0.2)).Invoke(context.Background(), conversation())
	require.NoError(t, err)
	assert.Equal(t, "A generative model.", reply.Content())
	v, ok := reply.Metadata(MetaPromptTokens)
	require.True(t, ok)
	assert.Equal(t, 20, v)

	assert.Equal(t, "llama-3.1-8b-instant", got.Model)
	assert.InDelta(t, 0.2, got.Temperature, 1e-6)
	require.Len(t, got.Messages, 4)
	assert.Equal(t, openai.ChatMessageRoleSystem, got.Messages[0].Role)
	assert.Equal(t, openai.ChatMessageRoleUser, got.Messages[1].Role)
	assert.Equal(t, openai.ChatMessageRoleAssistant, got.Messages[2].Role)
	assert.Equal(t, "what is a VAE?", got.Messages[3].Content)
}

func TestOpenAI_WrapsErrors(t *testing.T) {
	client := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key","type":"invalid_request_error"}}`))
	})

	_, err := NewOpenAI(client, "m").Invoke(context.Background(), conversation())
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "chat completion", pe.Op)

	var apiErr *openai.APIError
	assert.ErrorAs(t, err, &apiErr)
}

func TestNew(t *testing.T) {
	inv, err := New(config.LLMConfig{Model: "m", Backend: config.BackendOpenAI, APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAI{}, inv)

	inv, err = New(config.LLMConfig{Model: "m", Backend: config.BackendLangchain, APIKey: "k", BaseURL: config.DefaultBaseURL})
	require.NoError(t, err)
	assert.IsType(t, &Langchain{}, inv)

	_, err = New(config.LLMConfig{Model: "m", Backend: "bedrock"})
	assert.Error(t, err)
}
