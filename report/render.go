package report

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
)

// Render returns the markdown artifact for the report
func (r *RunReport) Render() string {
	lines := []string{
		fmt.Sprintf("# %s STRATEGY RESULTS", strings.ToUpper(r.Strategy)),
		strings.Repeat("=", 60),
		"",
		"## Strategy Description",
		r.Description,
		"",
		"## Token Usage Progression",
		"| Question | Prompt Tokens | Response Tokens | Total |",
		"|----------|---------------|-----------------|-------|",
	}
	for _, u := range r.Usage {
		lines = append(lines, fmt.Sprintf("| %d | %s | %s | %s |",
			u.QuestionNum,
			humanize.Comma(int64(u.PromptTokens)),
			humanize.Comma(int64(u.ResponseTokens)),
			humanize.Comma(int64(u.TotalTokens)),
		))
	}
	lines = append(lines, "")

	if r.Final != nil {
		lines = append(lines,
			"## Complete Final Prompt for Last Question",
			fmt.Sprintf("**Last Question:** '%s'", r.Final.Question),
			"",
			"```",
			r.Final.Prompt,
			"```",
			"",
			"**Final Response:**",
			"```",
			r.Final.Response,
			"```",
			"",
		)
	}

	lines = append(lines, "## All Q&A Pairs", "")
	for i, qa := range r.QAPairs {
		lines = append(lines,
			fmt.Sprintf("### Question %d", i+1),
			"**User:** "+qa.Question,
			"",
			"**Assistant:** "+qa.Answer,
			"",
			strings.Repeat("-", 40),
			"",
		)
	}

	return strings.Join(lines, "\n")
}

// RenderHTML converts the markdown artifact to sanitized HTML
func (r *RunReport) RenderHTML() []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse([]byte(r.Render()))

	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	out := markdown.Render(doc, renderer)

	return bluemonday.UGCPolicy().SanitizeBytes(out)
}
