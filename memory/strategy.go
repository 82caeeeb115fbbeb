package memory

import (
	"fmt"
	"strings"
)

const (
	// DefaultTrimmingWindowSize is used when no window size is configured
	DefaultTrimmingWindowSize = 8
	// DefaultSummarizationMaxTokens is used when no token budget is configured
	DefaultSummarizationMaxTokens = 1000
	// RecentMessagesKept is how many trailing messages summarization keeps verbatim
	RecentMessagesKept = 6
	// SummaryFallbackWindowSize is the trimming window used when summarizing fails
	SummaryFallbackWindowSize = 8
)

// Strategy is the policy that turns a history into a context window.
// The set of strategies is closed: Stuffing, Trimming and Summarization.
type Strategy interface {
	// Name returns the configuration name of the strategy
	Name() string
	// Description returns the fixed text used in run reports
	Description() string

	isStrategy()
}

// Stuffing keeps every message
type Stuffing struct{}

// Trimming keeps the most recent WindowSize messages. A non-positive
// WindowSize means DefaultTrimmingWindowSize.
type Trimming struct {
	WindowSize int
}

// Summarization replaces older messages with a model-written summary once
// the serialized history exceeds MaxTokens
type Summarization struct {
	MaxTokens int
}

func (Stuffing) Name() string      { return "stuffing" }
func (Trimming) Name() string      { return "trimming" }
func (Summarization) Name() string { return "summarization" }

func (Stuffing) Description() string {
	return "Keeps ALL previous messages in conversation history."
}

func (Trimming) Description() string {
	return "Keeps only the most recent N messages in conversation history."
}

func (Summarization) Description() string {
	return "Summarizes older messages and keeps recent messages for context."
}

func (Stuffing) isStrategy()      {}
func (Trimming) isStrategy()      {}
func (Summarization) isStrategy() {}

// StrategyNames lists the accepted configuration names in menu order
func StrategyNames() []string {
	return []string{"stuffing", "trimming", "summarization"}
}

// UnknownStrategyError is returned by ParseStrategy for unsupported names
type UnknownStrategyError struct {
	Name string
}

func (e *UnknownStrategyError) Error() string {
	return fmt.Sprintf("unknown strategy: %q (expected one of %s)", e.Name, strings.Join(StrategyNames(), ", "))
}

// ParseStrategy maps a configuration name onto a Strategy.
// Non-positive sizes are replaced by the defaults.
func ParseStrategy(name string, windowSize, maxTokens int) (Strategy, error) {
	if windowSize <= 0 {
		windowSize = DefaultTrimmingWindowSize
	}
	if maxTokens <= 0 {
		maxTokens = DefaultSummarizationMaxTokens
	}

	switch strings.ToLower(strings.TrimSpace(name)) {
	case "stuffing":
		return Stuffing{}, nil
	case "trimming":
		return Trimming{WindowSize: windowSize}, nil
	case "summarization":
		return Summarization{MaxTokens: maxTokens}, nil
	default:
		return nil, &UnknownStrategyError{Name: name}
	}
}
