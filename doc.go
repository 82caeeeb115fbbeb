// convmem - Conversation Memory Strategies for LLM Assistants
//
// convmem runs a multi-turn conversation against a chat model and rewrites the
// message history before every call according to a memory strategy. It
// measures the token cost of each turn so the strategies can be compared on
// the same list of questions.
//
// # Quick Start
//
// Install the CLI:
//
//	go install github.com/smallnest/convmem/cmd/convmem@latest
//
// Run ten questions with the trimming strategy:
//
//	export GROQ_API_KEY=...
//	convmem --questions questions.yaml --strategy trimming --num-questions 10
//
// The run writes outputs/strategy_trimming_results.md with the token usage of
// every question, the complete prompt for the last question and all Q&A pairs.
//
// Using the library directly:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//
//		"github.com/smallnest/convmem/config"
//		"github.com/smallnest/convmem/conversation"
//		"github.com/smallnest/convmem/llm"
//		"github.com/smallnest/convmem/memory"
//	)
//
//	func main() {
//		cfg := config.Default()
//		model, _ := llm.New(cfg.LLMConfig())
//
//		builder := memory.NewBuilder(
//			memory.SystemMessage("You are a helpful assistant."),
//			memory.WithSummarizer(model),
//		)
//		mgr := conversation.NewManager(model, builder, memory.Summarization{MaxTokens: 1000})
//
//		r, _ := mgr.Run(context.Background(), []string{"What is a VAE?", "How is it trained?"})
//		fmt.Println(r.Render())
//	}
//
// # Strategies
//
//   - Stuffing: every previous message is sent on every call
//   - Trimming: only the most recent N messages are sent
//   - Summarization: once the history exceeds a token budget, everything but
//     the last six messages is replaced by a model-written summary
//
// A failed summarization never fails the run; the window falls back to
// trimming the last eight messages.
//
// # Packages
//
//   - memory: messages, history, strategies and context window construction
//   - tokens: tiktoken based token counting with a word-count fallback
//   - conversation: the question loop and run report assembly
//   - llm: langchaingo and go-openai model clients
//   - report: run reports and their markdown and HTML rendering
//   - store: report persistence on disk, in memory, SQLite, Redis and PostgreSQL
//   - config: YAML configuration, prompts and questions
//   - log: the logging facade used by every package
package convmem // import "github.com/smallnest/convmem"
