package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/smallnest/convmem/log"
	"github.com/smallnest/convmem/tokens"
)

// Invoker sends an ordered list of messages to a model and returns its reply
type Invoker interface {
	Invoke(ctx context.Context, messages []*Message) (*Message, error)
}

// InvokerFunc adapts a function to the Invoker interface
type InvokerFunc func(ctx context.Context, messages []*Message) (*Message, error)

// Invoke calls f(ctx, messages)
func (f InvokerFunc) Invoke(ctx context.Context, messages []*Message) (*Message, error) {
	return f(ctx, messages)
}

// ErrNoSummarizer is reported when summarization is needed but the builder
// has no model to summarize with
var ErrNoSummarizer = errors.New("no summarizer configured")

// Window is the exact ordered set of messages sent to the model for one call.
// It is a projection of a history and never shares mutation with it.
type Window struct {
	msgs []*Message

	// Applied is the strategy that actually produced the window. It differs
	// from the requested one when summarization fell back to trimming.
	Applied Strategy
	// Summarized is true when older messages were replaced by a summary
	Summarized bool
}

// Messages returns a copy of the window's messages
func (w *Window) Messages() []*Message {
	out := make([]*Message, len(w.msgs))
	copy(out, w.msgs)
	return out
}

// Len returns the number of messages in the window
func (w *Window) Len() int {
	return len(w.msgs)
}

// WithQuestion returns a new window with q appended
func (w *Window) WithQuestion(q *Message) *Window {
	msgs := make([]*Message, 0, len(w.msgs)+1)
	msgs = append(msgs, w.msgs...)
	msgs = append(msgs, q)
	return &Window{msgs: msgs, Applied: w.Applied, Summarized: w.Summarized}
}

// SummaryResult is the outcome of a summarization call: either Message is set
// or Err explains why no summary was produced
type SummaryResult struct {
	Message *Message
	Err     error
}

// OK reports whether a summary was produced
func (r SummaryResult) OK() bool {
	return r.Err == nil && r.Message != nil
}

// Builder constructs context windows for one conversation. All of its
// collaborators are fixed at construction.
type Builder struct {
	system     *Message
	summarizer Invoker
	counter    tokens.Counter
	logger     log.Logger
}

// BuilderOption configures a Builder
type BuilderOption func(*Builder)

// WithSummarizer sets the model used by the summarization strategy
func WithSummarizer(inv Invoker) BuilderOption {
	return func(b *Builder) {
		b.summarizer = inv
	}
}

// WithCounter sets the token counter used for the summarization budget
func WithCounter(c tokens.Counter) BuilderOption {
	return func(b *Builder) {
		b.counter = c
	}
}

// WithLogger sets the logger
func WithLogger(l log.Logger) BuilderOption {
	return func(b *Builder) {
		b.logger = l
	}
}

// NewBuilder creates a Builder that prepends system to every window.
// A nil system message is omitted.
func NewBuilder(system *Message, opts ...BuilderOption) *Builder {
	b := &Builder{
		system:  system,
		counter: tokens.CounterFunc(tokens.EstimateWords),
		logger:  &log.NoOpLogger{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// System returns the leading system message
func (b *Builder) System() *Message {
	return b.system
}

// Build applies strategy to history. history must not include the question
// currently being asked; append it afterwards with Window.WithQuestion.
// Build never fails: summarization problems fall back to trimming.
func (b *Builder) Build(ctx context.Context, strategy Strategy, history []*Message) *Window {
	switch s := strategy.(type) {
	case Stuffing:
		return b.stuff(history)
	case Trimming:
		return b.trim(history, s)
	case Summarization:
		return b.summarize(ctx, history, s)
	default:
		panic(fmt.Sprintf("memory: unhandled strategy %T", strategy))
	}
}

func (b *Builder) withSystem(extra int) []*Message {
	msgs := make([]*Message, 0, extra+2)
	if b.system != nil {
		msgs = append(msgs, b.system)
	}
	return msgs
}

func (b *Builder) stuff(history []*Message) *Window {
	msgs := append(b.withSystem(len(history)), history...)
	return &Window{msgs: msgs, Applied: Stuffing{}}
}

func (b *Builder) trim(history []*Message, s Trimming) *Window {
	if s.WindowSize <= 0 {
		s.WindowSize = DefaultTrimmingWindowSize
	}
	if len(history) <= s.WindowSize {
		w := b.stuff(history)
		w.Applied = s
		return w
	}
	kept := history[len(history)-s.WindowSize:]
	msgs := append(b.withSystem(len(kept)), kept...)
	return &Window{msgs: msgs, Applied: s}
}

func (b *Builder) summarize(ctx context.Context, history []*Message, s Summarization) *Window {
	full := append(b.withSystem(len(history)), history...)
	current := b.counter.Count(Serialize(full, false))
	if current <= s.MaxTokens {
		w := b.stuff(history)
		w.Applied = s
		return w
	}

	if len(history) <= RecentMessagesKept {
		b.logger.Debug("history of %d messages is within the recent window, not summarizing", len(history))
		w := b.stuff(history)
		w.Applied = s
		return w
	}
	older := history[:len(history)-RecentMessagesKept]
	recent := history[len(history)-RecentMessagesKept:]

	result := b.Summarize(ctx, older)
	if !result.OK() {
		b.logger.Warn("summarization failed, using trimming: %v", result.Err)
		return b.trim(history, Trimming{WindowSize: SummaryFallbackWindowSize})
	}

	b.logger.Debug("summarized %d older messages (%d tokens over budget %d)", len(older), current, s.MaxTokens)
	msgs := append(b.withSystem(len(recent)+1), result.Message)
	msgs = append(msgs, recent...)
	return &Window{msgs: msgs, Applied: s, Summarized: true}
}

// Summarize asks the summarizer for a digest of older and wraps it as a
// system message.
func (b *Builder) Summarize(ctx context.Context, older []*Message) SummaryResult {
	if b.summarizer == nil {
		return SummaryResult{Err: ErrNoSummarizer}
	}

	prompt := SummaryPrompt(SerializeTranscript(older))
	reply, err := b.summarizer.Invoke(ctx, []*Message{UserMessage(prompt)})
	if err != nil {
		return SummaryResult{Err: err}
	}
	if reply == nil {
		return SummaryResult{Err: errors.New("summarizer returned no message")}
	}
	return SummaryResult{Message: SystemMessage(SummaryPrefix + reply.Content())}
}
