// Package memory implements the conversation memory strategies used to keep
// an LLM prompt within budget.
//
// A conversation is recorded in a History, the append-only log of everything
// said. Before every model call a Builder projects that history into a
// Window, the exact list of messages that will be sent. The projection is
// governed by a Strategy:
//
//   - Stuffing keeps every message.
//   - Trimming keeps only the most recent WindowSize messages.
//   - Summarization keeps everything while the serialized history fits in
//     MaxTokens. Beyond that, all but the last six messages are replaced by a
//     summary written by the model. If the summary call fails the window is
//     trimmed to the last eight messages instead.
//
// Every window starts with the builder's system message. The question being
// asked is not part of the history passed to Build; append it with
// Window.WithQuestion:
//
//	builder := memory.NewBuilder(memory.SystemMessage(prompt),
//		memory.WithSummarizer(model),
//		memory.WithCounter(tokens.New("gpt-4o-mini")),
//	)
//	strategy, err := memory.ParseStrategy("trimming", 8, 1000)
//	if err != nil {
//		return err
//	}
//	window := builder.Build(ctx, strategy, history.Messages()).
//		WithQuestion(memory.UserMessage(question))
//
// # Serialization
//
// Serialize renders a list of messages as the plain-text transcript used
// for token counting and reports (SYSTEM:, Qn: and AI: blocks), optionally
// hiding the publication section embedded in the system prompt.
package memory
