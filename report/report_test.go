package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/smallnest/convmem/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *RunReport {
	return New(memory.Trimming{WindowSize: 2},
		[]QAPair{
			{Question: "what are VAEs used for", Answer: "Generation."},
			{Question: "how about anomaly detection", Answer: "Reconstruction error."},
		},
		[]TokenUsage{
			NewTokenUsage(1, 1234, 56),
			NewTokenUsage(2, 2048, 7),
		},
		&Final{
			Question: "how about anomaly detection",
			Prompt:   "SYSTEM: sys\n\n",
			Response: "Reconstruction error.",
		},
	)
}

func TestNewTokenUsage(t *testing.T) {
	for p := 0; p < 300; p += 37 {
		for r := 0; r < 300; r += 41 {
			u := NewTokenUsage(1, p, r)
			assert.Equal(t, p+r, u.TotalTokens)
		}
	}
}

func TestNew(t *testing.T) {
	pairs := []QAPair{{Question: "q", Answer: "a"}}
	r := New(memory.Stuffing{}, pairs, nil, nil)
	pairs[0].Answer = "mutated"

	assert.NotEmpty(t, r.ID)
	assert.Equal(t, "stuffing", r.Strategy)
	assert.Equal(t, memory.Stuffing{}.Description(), r.Description)
	assert.Equal(t, "a", r.QAPairs[0].Answer)
	assert.Nil(t, r.Final)
	assert.False(t, r.CreatedAt.IsZero())
}

func TestAborted(t *testing.T) {
	r := sampleReport()
	a := r.Aborted(errors.New("provider down"))

	assert.Equal(t, "provider down", a.AbortReason)
	assert.Empty(t, r.AbortReason)
	assert.Equal(t, r.ID, a.ID)
}

func TestNamesAndTotals(t *testing.T) {
	r := sampleReport()
	assert.Equal(t, "strategy_trimming_results.md", r.FileName())
	assert.Equal(t, "Trimming Strategy Results", r.Header())
	assert.Equal(t, 1290+2055, r.TotalTokens())
}

func TestRender(t *testing.T) {
	out := sampleReport().Render()

	want := strings.Join([]string{
		"# TRIMMING STRATEGY RESULTS",
		strings.Repeat("=", 60),
		"",
		"## Strategy Description",
		"Keeps only the most recent N messages in conversation history.",
		"",
		"## Token Usage Progression",
		"| Question | Prompt Tokens | Response Tokens | Total |",
		"|----------|---------------|-----------------|-------|",
		"| 1 | 1,234 | 56 | 1,290 |",
		"| 2 | 2,048 | 7 | 2,055 |",
		"",
		"## Complete Final Prompt for Last Question",
		"**Last Question:** 'how about anomaly detection'",
		"",
		"```",
		"SYSTEM: sys\n\n",
		"```",
		"",
		"**Final Response:**",
		"```",
		"Reconstruction error.",
		"```",
		"",
		"## All Q&A Pairs",
		"",
		"### Question 1",
		"**User:** what are VAEs used for",
		"",
		"**Assistant:** Generation.",
		"",
		strings.Repeat("-", 40),
		"",
		"### Question 2",
		"**User:** how about anomaly detection",
		"",
		"**Assistant:** Reconstruction error.",
		"",
		strings.Repeat("-", 40),
		"",
	}, "\n")

	assert.Equal(t, want, out)
}

func TestRender_WithoutFinal(t *testing.T) {
	r := New(memory.Stuffing{}, nil, nil, nil)
	out := r.Render()

	assert.NotContains(t, out, "Complete Final Prompt")
	assert.Contains(t, out, "## All Q&A Pairs")
	assert.Contains(t, out, "|----------|---------------|-----------------|-------|")
}

func TestRenderHTML(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(sampleReport().RenderHTML()))
	require.NoError(t, err)

	assert.Equal(t, 1, doc.Find("table").Length())
	assert.Equal(t, 3, doc.Find("table tr").Length(), "header plus one row per turn")
	assert.Equal(t, "1,290", strings.TrimSpace(doc.Find("table tr").Eq(1).Find("td").Last().Text()))
	assert.Equal(t, 2, doc.Find("h3").Length())
}

func TestRenderHTML_Sanitizes(t *testing.T) {
	r := New(memory.Stuffing{}, []QAPair{{Question: "<script>alert(1)</script>", Answer: "ok"}}, nil, nil)
	out := string(r.RenderHTML())
	assert.NotContains(t, out, "<script>")
}
