package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smallnest/convmem/memory"
	"github.com/smallnest/convmem/report"
	"github.com/stretchr/testify/assert"
)

type recordingSaver struct {
	saved []string
	err   error
}

func (r *recordingSaver) Save(ctx context.Context, rep *report.RunReport) error {
	if r.err != nil {
		return r.err
	}
	r.saved = append(r.saved, rep.ID)
	return nil
}

func TestMultiStopsAtFirstFailure(t *testing.T) {
	first := &recordingSaver{}
	failing := &recordingSaver{err: errors.New("disk full")}
	last := &recordingSaver{}

	rep := report.New(memory.Stuffing{}, nil, nil, nil)
	err := Multi{first, failing, last}.Save(context.Background(), rep)

	assert.EqualError(t, err, "disk full")
	assert.Equal(t, []string{rep.ID}, first.saved)
	assert.Empty(t, last.saved)
}

func TestReportWriteError(t *testing.T) {
	inner := errors.New("permission denied")
	err := error(&ReportWriteError{Target: "outputs/x.md", Err: inner})

	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "outputs/x.md")

	var rwe *ReportWriteError
	assert.ErrorAs(t, err, &rwe)
}

func TestSortByCreated(t *testing.T) {
	now := time.Now()
	a := &report.RunReport{ID: "a", CreatedAt: now.Add(time.Second)}
	b := &report.RunReport{ID: "b", CreatedAt: now}
	c := &report.RunReport{ID: "c", CreatedAt: now}

	reports := []*report.RunReport{a, c, b}
	SortByCreated(reports)

	assert.Equal(t, "b", reports[0].ID)
	assert.Equal(t, "c", reports[1].ID)
	assert.Equal(t, "a", reports[2].ID)
}
