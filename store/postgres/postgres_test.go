package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/smallnest/convmem/memory"
	"github.com/smallnest/convmem/report"
	"github.com/smallnest/convmem/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *report.RunReport {
	return report.New(memory.Trimming{WindowSize: 8},
		[]report.QAPair{{Question: "q", Answer: "a"}},
		[]report.TokenUsage{report.NewTokenUsage(1, 30, 3)},
		nil,
	)
}

func TestPostgresStore_Save(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewWithPool(mock, "run_reports")
	r := sampleReport()
	data, _ := json.Marshal(r)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO run_reports")).
		WithArgs(r.ID, "trimming", data, 33, r.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.Save(context.Background(), r))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Save_DatabaseError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewWithPool(mock, "")
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO run_reports")).
		WillReturnError(errors.New("connection reset"))

	err = s.Save(context.Background(), sampleReport())
	var rwe *store.ReportWriteError
	require.ErrorAs(t, err, &rwe)
	assert.Equal(t, "postgres:run_reports", rwe.Target)
}

func TestPostgresStore_Load(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewWithPool(mock, "run_reports")
	r := sampleReport()
	data, _ := json.Marshal(r)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT report FROM run_reports WHERE id = $1")).
		WithArgs(r.ID).
		WillReturnRows(pgxmock.NewRows([]string{"report"}).AddRow(data))

	loaded, err := s.Load(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, loaded.ID)
	assert.Equal(t, r.Usage, loaded.Usage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Load_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewWithPool(mock, "run_reports")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT report FROM run_reports WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err = s.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPostgresStore_Load_InvalidJSON(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewWithPool(mock, "run_reports")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT report FROM run_reports WHERE id = $1")).
		WithArgs("bad").
		WillReturnRows(pgxmock.NewRows([]string{"report"}).AddRow([]byte("{not json")))

	_, err = s.Load(context.Background(), "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal report")
}

func TestPostgresStore_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewWithPool(mock, "run_reports")
	r1, r2 := sampleReport(), sampleReport()
	d1, _ := json.Marshal(r1)
	d2, _ := json.Marshal(r2)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT report FROM run_reports WHERE ($1 = '' OR strategy = $1) ORDER BY created_at ASC, id ASC")).
		WithArgs("trimming").
		WillReturnRows(pgxmock.NewRows([]string{"report"}).AddRow(d1).AddRow(d2))

	list, err := s.List(context.Background(), "trimming")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, r1.ID, list[0].ID)
	assert.Equal(t, r2.ID, list[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Delete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewWithPool(mock, "run_reports")
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM run_reports WHERE id = $1")).
		WithArgs("r-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM run_reports WHERE id = $1")).
		WithArgs("r-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, s.Delete(context.Background(), "r-1"))
	assert.ErrorIs(t, s.Delete(context.Background(), "r-1"), store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InitSchema(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewWithPool(mock, "archive")
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS archive")).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.InitSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewWithPool_DefaultTableName(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	assert.Equal(t, "run_reports", NewWithPool(mock, "").tableName)
}
