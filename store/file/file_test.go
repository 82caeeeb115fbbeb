package file

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smallnest/convmem/memory"
	"github.com/smallnest/convmem/report"
	"github.com/smallnest/convmem/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReport(s memory.Strategy) *report.RunReport {
	return report.New(s,
		[]report.QAPair{{Question: "q1", Answer: "a1"}},
		[]report.TokenUsage{report.NewTokenUsage(1, 10, 2)},
		&report.Final{Question: "q1", Prompt: "Q1: q1\n", Response: "a1"},
	)
}

func TestWriteReport(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "out.md")
	require.NoError(t, WriteReport(path, "body", "Title"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# Title\n\nbody", string(data))
}

func TestWriteReport_NoHeader(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.md")
	require.NoError(t, WriteReport(path, "body", ""))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "body", string(data))
}

func TestWriteReport_Failure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	err := WriteReport(filepath.Join(blocker, "out.md"), "body", "Title")
	var rwe *store.ReportWriteError
	require.ErrorAs(t, err, &rwe)
	assert.Contains(t, rwe.Target, "blocker")
}

func TestStore_SaveWritesArtifact(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := New(dir, WithHTML())
	require.NoError(t, err)

	r := newReport(memory.Trimming{WindowSize: 8})
	require.NoError(t, s.Save(context.Background(), r))

	data, err := os.ReadFile(filepath.Join(dir, "strategy_trimming_results.md"))
	require.NoError(t, err)
	content := string(data)
	assert.True(t, strings.HasPrefix(content, "# Trimming Strategy Results\n\n# TRIMMING STRATEGY RESULTS\n"))
	assert.Contains(t, content, "| 1 | 10 | 2 | 12 |")

	html, err := os.ReadFile(filepath.Join(dir, "strategy_trimming_results.html"))
	require.NoError(t, err)
	assert.Contains(t, string(html), "<table>")
}

func TestStore_SaveLoadListDelete(t *testing.T) {
	t.Parallel()

	s, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	r1 := newReport(memory.Stuffing{})
	r2 := newReport(memory.Summarization{MaxTokens: 1000})
	require.NoError(t, s.Save(ctx, r1))
	require.NoError(t, s.Save(ctx, r2))

	loaded, err := s.Load(ctx, r1.ID)
	require.NoError(t, err)
	assert.Equal(t, r1.Strategy, loaded.Strategy)
	assert.Equal(t, r1.Usage, loaded.Usage)
	assert.Equal(t, r1.Final, loaded.Final)

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	summ, err := s.List(ctx, "summarization")
	require.NoError(t, err)
	require.Len(t, summ, 1)
	assert.Equal(t, r2.ID, summ[0].ID)

	require.NoError(t, s.Delete(ctx, r1.ID))
	_, err = s.Load(ctx, r1.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, r1.ID), store.ErrNotFound)
}

func TestStore_SaveAfterCancel(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := newReport(memory.Stuffing{})
	require.NoError(t, s.Save(ctx, r))
	_, err = os.Stat(filepath.Join(dir, "strategy_stuffing_results.md"))
	assert.NoError(t, err)
}
