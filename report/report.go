// Package report assembles and renders the result of one conversation run.
package report

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/smallnest/convmem/memory"
)

// QAPair is one question and the answer the model gave to it
type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// TokenUsage records the token cost of one turn.
// TotalTokens is always PromptTokens + ResponseTokens.
type TokenUsage struct {
	QuestionNum    int `json:"question_num"`
	PromptTokens   int `json:"prompt_tokens"`
	ResponseTokens int `json:"response_tokens"`
	TotalTokens    int `json:"total_tokens"`
}

// NewTokenUsage creates a usage record for the questionNum-th turn
func NewTokenUsage(questionNum, promptTokens, responseTokens int) TokenUsage {
	return TokenUsage{
		QuestionNum:    questionNum,
		PromptTokens:   promptTokens,
		ResponseTokens: responseTokens,
		TotalTokens:    promptTokens + responseTokens,
	}
}

// Final describes the prompt that would be sent for the last question
type Final struct {
	Question string `json:"question"`
	Prompt   string `json:"prompt"`
	Response string `json:"response"`
}

// RunReport is the read-only record of a conversation run
type RunReport struct {
	ID          string       `json:"id"`
	Strategy    string       `json:"strategy"`
	Description string       `json:"description"`
	CreatedAt   time.Time    `json:"created_at"`
	QAPairs     []QAPair     `json:"qa_pairs"`
	Usage       []TokenUsage `json:"usage"`
	Final       *Final       `json:"final,omitempty"`
	// AbortReason is set when a model call ended the run early
	AbortReason string `json:"abort_reason,omitempty"`
}

// New assembles a report for a run with strategy s. final is nil when no
// question was asked. The slices are copied.
func New(s memory.Strategy, pairs []QAPair, usage []TokenUsage, final *Final) *RunReport {
	r := &RunReport{
		ID:          uuid.New().String(),
		Strategy:    s.Name(),
		Description: s.Description(),
		CreatedAt:   time.Now().UTC(),
		QAPairs:     append([]QAPair(nil), pairs...),
		Usage:       append([]TokenUsage(nil), usage...),
	}
	if final != nil {
		f := *final
		r.Final = &f
	}
	return r
}

// Aborted returns a copy of r marked as ended early because of err
func (r *RunReport) Aborted(err error) *RunReport {
	cp := *r
	if err != nil {
		cp.AbortReason = err.Error()
	}
	return &cp
}

// TotalTokens sums TotalTokens over all turns
func (r *RunReport) TotalTokens() int {
	total := 0
	for _, u := range r.Usage {
		total += u.TotalTokens
	}
	return total
}

// FileName is the artifact name for the report, e.g. strategy_trimming_results.md
func (r *RunReport) FileName() string {
	return "strategy_" + r.Strategy + "_results.md"
}

// Header is the title line written above the artifact, e.g. "Trimming Strategy Results"
func (r *RunReport) Header() string {
	name := r.Strategy
	if name != "" {
		name = strings.ToUpper(name[:1]) + name[1:]
	}
	return name + " Strategy Results"
}
