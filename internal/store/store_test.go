package store

import (
	"context"
	"errors"
	"testing"

	"github.com/TFMV/VecTrainer/pkg/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRow struct {
	id  int
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*int)) = r.id
	return nil
}

type fakeTx struct {
	pgx.Tx
	db         *fakeDB
	committed  bool
	rolledBack bool
}

func (tx *fakeTx) CopyFrom(_ context.Context, table pgx.Identifier, cols []string, src pgx.CopyFromSource) (int64, error) {
	if tx.db.copyErr != nil {
		return 0, tx.db.copyErr
	}
	tx.db.tables = append(tx.db.tables, table.Sanitize())
	tx.db.columns = cols
	var n int64
	for src.Next() {
		vals, err := src.Values()
		if err != nil {
			return n, err
		}
		tx.db.rows = append(tx.db.rows, vals)
		n++
	}
	return n, src.Err()
}

func (tx *fakeTx) Commit(context.Context) error {
	tx.committed = true
	return nil
}

func (tx *fakeTx) Rollback(context.Context) error {
	if !tx.committed {
		tx.rolledBack = true
	}
	return nil
}

type fakeDB struct {
	execs   []string
	args    []any
	tables  []string
	columns []string
	rows    [][]any
	txs     []*fakeTx
	copyErr error
}

func (db *fakeDB) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	db.execs = append(db.execs, sql)
	return pgconn.NewCommandTag("CREATE TABLE"), nil
}

func (db *fakeDB) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	db.args = args
	return fakeRow{id: 42}
}

func (db *fakeDB) Begin(context.Context) (pgx.Tx, error) {
	tx := &fakeTx{db: db}
	db.txs = append(db.txs, tx)
	return tx, nil
}

func TestSeriesSource(t *testing.T) {
	src := newSeriesSource(7, "loss", []float64{0.5, 0.25})

	var got [][]any
	for src.Next() {
		vals, err := src.Values()
		require.NoError(t, err)
		got = append(got, vals)
	}
	require.NoError(t, src.Err())
	assert.Equal(t, [][]any{{7, "loss", 0, 0.5}, {7, "loss", 1, 0.25}}, got)
	assert.False(t, src.Next())
}

func TestCreateRun(t *testing.T) {
	db := &fakeDB{}
	s := New(db)

	require.NoError(t, s.EnsureSchema(context.Background()))
	assert.Len(t, db.execs, 1)

	id, err := s.CreateRun(context.Background(), "lstm", "lr_0.01_ipe_100")
	require.NoError(t, err)
	assert.Equal(t, 42, id)
	assert.Equal(t, []any{"lstm", "lr_0.01_ipe_100"}, db.args)
}

func TestSaveCurves(t *testing.T) {
	db := &fakeDB{}
	s := New(db)

	err := s.SaveCurves(context.Background(), 3, utils.Curves{
		Losses:           []float64{0.9, 0.8},
		PositiveAccuracy: []float64{0.5},
	})
	require.NoError(t, err)

	assert.Len(t, db.txs, 2, "empty series are not copied")
	for _, tx := range db.txs {
		assert.True(t, tx.committed)
		assert.False(t, tx.rolledBack)
	}
	assert.Equal(t, seriesColumns, db.columns)
	assert.Equal(t, []string{`"run_series"`, `"run_series"`}, db.tables)
	assert.Equal(t, [][]any{
		{3, "loss", 0, 0.9},
		{3, "loss", 1, 0.8},
		{3, "accuracy_positive", 0, 0.5},
	}, db.rows)
}

func TestSaveSeriesRollsBackOnCopyError(t *testing.T) {
	db := &fakeDB{copyErr: errors.New("connection reset")}
	_, err := New(db).SaveSeries(context.Background(), 1, "loss", []float64{1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	require.Len(t, db.txs, 1)
	assert.True(t, db.txs[0].rolledBack)
}
