// Package conversation runs a list of questions against a model while a
// memory strategy decides which part of the history each call sees.
package conversation

import (
	"context"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/smallnest/convmem/log"
	"github.com/smallnest/convmem/memory"
	"github.com/smallnest/convmem/report"
	"github.com/smallnest/convmem/store"
	"github.com/smallnest/convmem/tokens"
)

// NoResponse is the final response recorded when the model never answered
const NoResponse = "No response"

// Manager drives one conversation at a time. The full history and the
// usage log belong to a single Run; a Manager must not be used for
// concurrent Run calls. Independent Managers may run in parallel.
type Manager struct {
	model     memory.Invoker
	builder   *memory.Builder
	strategy  memory.Strategy
	counter   tokens.Counter
	logger    log.Logger
	persister store.Saver
	onChange  TransitionFunc

	state State
}

// Option configures a Manager
type Option func(*Manager)

// WithLogger sets the logger
func WithLogger(l log.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithCounter sets the counter used for the usage log
func WithCounter(c tokens.Counter) Option {
	return func(m *Manager) {
		m.counter = c
	}
}

// WithPersister sets where the finished report is saved
func WithPersister(s store.Saver) Option {
	return func(m *Manager) {
		m.persister = s
	}
}

// WithOnTransition registers a hook called on every state change
func WithOnTransition(fn TransitionFunc) Option {
	return func(m *Manager) {
		m.onChange = fn
	}
}

// NewManager creates a Manager that answers questions with model, building
// each window with builder according to strategy.
func NewManager(model memory.Invoker, builder *memory.Builder, strategy memory.Strategy, opts ...Option) *Manager {
	m := &Manager{
		model:    model,
		builder:  builder,
		strategy: strategy,
		counter:  tokens.CounterFunc(tokens.EstimateWords),
		logger:   &log.NoOpLogger{},
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Strategy returns the strategy the Manager was created with
func (m *Manager) Strategy() memory.Strategy {
	return m.strategy
}

// State returns the current loop state
func (m *Manager) State() State {
	return m.state
}

func (m *Manager) transition(to State) {
	from := m.state
	m.state = to
	if m.onChange != nil {
		m.onChange(from, to)
	}
}

// Run asks each question in order and returns the run report.
//
// A failed model call ends the loop early; the report then holds the turns
// that completed and its AbortReason describes the failure. The report is
// always assembled. An error is returned only when the report could not be
// persisted, and the report is returned alongside it.
func (m *Manager) Run(ctx context.Context, questions []string) (*report.RunReport, error) {
	m.state = StateIdle
	history := memory.NewHistory()

	var (
		pairs    []report.QAPair
		usage    []report.TokenUsage
		lastAsk  *memory.Message
		abortErr error
	)

	m.logger.Info("running %s strategy on %d questions", m.strategy.Name(), len(questions))
	for i, q := range questions {
		num := i + 1
		m.transition(StateAskingQuestion)
		question := memory.UserMessage(q)
		history.Append(question)
		lastAsk = question

		prior := history.Messages()
		window := m.builder.Build(ctx, m.strategy, prior[:len(prior)-1]).WithQuestion(question)
		promptTokens := m.counter.Count(memory.Serialize(window.Messages(), false))

		m.transition(StateAwaitingModelResponse)
		m.logger.Debug("question %d/%d: %d messages, %d prompt tokens", num, len(questions), window.Len(), promptTokens)
		reply, err := m.model.Invoke(ctx, window.Messages())
		if err == nil && reply == nil {
			err = errors.New("model returned no message")
		}
		if err != nil {
			m.logger.Error("error at question %d: %v", num, err)
			abortErr = fmt.Errorf("question %d: %w", num, err)
			break
		}

		m.transition(StateRecordingTurn)
		answer := reply
		if answer.Role() != memory.RoleAssistant {
			answer = memory.AssistantMessage(reply.Content())
		}
		history.Append(answer)

		responseTokens := m.counter.Count(answer.Content())
		turn := report.NewTokenUsage(num, promptTokens, responseTokens)
		usage = append(usage, turn)
		pairs = append(pairs, report.QAPair{Question: q, Answer: answer.Content()})
		m.logger.Info("question %d: %s tokens", num, humanize.Comma(int64(turn.TotalTokens)))
		if p, c, ok := answer.ProviderUsage(); ok {
			m.logger.Info("question %d: provider reported %s prompt + %s completion tokens (counted %s + %s)",
				num, humanize.Comma(int64(p)), humanize.Comma(int64(c)),
				humanize.Comma(int64(promptTokens)), humanize.Comma(int64(responseTokens)))
		}
	}
	m.transition(StateFinished)

	r := report.New(m.strategy, pairs, usage, m.final(ctx, history, lastAsk))
	if abortErr != nil {
		r = r.Aborted(abortErr)
	}

	if m.persister != nil {
		// the report is written even when ctx was cancelled mid-run
		if err := m.persister.Save(context.WithoutCancel(ctx), r); err != nil {
			var rwe *store.ReportWriteError
			if !errors.As(err, &rwe) {
				err = &store.ReportWriteError{Target: "report store", Err: err}
			}
			m.logger.Error("%v", err)
			return r, err
		}
	}
	return r, nil
}

// final builds the prompt that would be sent for the last question asked
func (m *Manager) final(ctx context.Context, history *memory.History, last *memory.Message) *report.Final {
	if last == nil {
		return nil
	}

	all := history.Messages()
	window := m.builder.Build(ctx, m.strategy, all).WithQuestion(last)

	response := NoResponse
	if a := history.LastOfRole(memory.RoleAssistant); a != nil {
		response = a.Content()
	}

	stats := memory.Compare(all, window, m.counter)
	m.logger.Info("final window keeps %d of %d messages (%.0f%% of %s tokens)",
		stats.ActiveMessages, stats.TotalMessages, stats.CompressionRate*100,
		humanize.Comma(int64(stats.TotalTokens)))

	return &report.Final{
		Question: last.Content(),
		Prompt:   memory.Serialize(window.Messages(), false),
		Response: response,
	}
}
