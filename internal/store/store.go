// --------------------------------------------------------------------------------
// Author: Thomas F McGeehan V
//
// This file is part of a software project developed by Thomas F McGeehan V.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.
//
// For more information about the MIT License, please visit:
// https://opensource.org/licenses/MIT
//
// Acknowledgment appreciated but not required.
// --------------------------------------------------------------------------------

// Package store records training runs and their loss and accuracy series
// in Postgres.
package store

import (
	"context"
	"fmt"

	"github.com/TFMV/VecTrainer/pkg/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool the store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id      SERIAL PRIMARY KEY,
	pipeline    TEXT NOT NULL,
	description TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS run_series (
	run_id INTEGER NOT NULL REFERENCES runs (run_id) ON DELETE CASCADE,
	series TEXT NOT NULL,
	idx    INTEGER NOT NULL,
	value  DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (run_id, series, idx)
);`

var seriesColumns = []string{"run_id", "series", "idx", "value"}

// Store writes runs through db.
type Store struct {
	db DB
}

func New(db DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// CreateRun creates a new run entry and returns its run_id.
func (s *Store) CreateRun(ctx context.Context, pipeline, description string) (int, error) {
	var runID int
	err := s.db.QueryRow(ctx,
		"INSERT INTO runs (pipeline, description) VALUES ($1, $2) RETURNING run_id",
		pipeline, description,
	).Scan(&runID)
	if err != nil {
		return 0, fmt.Errorf("create run: %w", err)
	}
	return runID, nil
}

// SaveSeries copies values into run_series in one transaction.
func (s *Store) SaveSeries(ctx context.Context, runID int, series string, values []float64) (int64, error) {
	if len(values) == 0 {
		return 0, nil
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	n, err := tx.CopyFrom(ctx, pgx.Identifier{"run_series"}, seriesColumns, newSeriesSource(runID, series, values))
	if err != nil {
		return 0, fmt.Errorf("copy %s series: %w", series, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit %s series: %w", series, err)
	}
	return n, nil
}

// SaveCurves stores every non-empty curve of a run.
func (s *Store) SaveCurves(ctx context.Context, runID int, curves utils.Curves) error {
	for _, c := range []struct {
		name   string
		values []float64
	}{
		{"loss", curves.Losses},
		{"accuracy_negative", curves.NegativeAccuracy},
		{"accuracy_positive", curves.PositiveAccuracy},
	} {
		if _, err := s.SaveSeries(ctx, runID, c.name, c.values); err != nil {
			return err
		}
	}
	return nil
}

// seriesSource implements pgx.CopyFromSource over a float series.
type seriesSource struct {
	runID  int
	series string
	values []float64
	next   int
}

func newSeriesSource(runID int, series string, values []float64) *seriesSource {
	return &seriesSource{runID: runID, series: series, values: values}
}

func (s *seriesSource) Next() bool {
	s.next++
	return s.next <= len(s.values)
}

func (s *seriesSource) Values() ([]any, error) {
	i := s.next - 1
	return []any{s.runID, s.series, i, s.values[i]}, nil
}

func (s *seriesSource) Err() error {
	return nil
}
