// Package store persists sweep results to PostgreSQL.
package store

import (
	"context"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"

	"github.com/five82/rdsweep/internal/grid"
	"github.com/five82/rdsweep/internal/results"
)

// Store manages the PostgreSQL connection.
type Store struct {
	conn    *pgx.Conn
	sweepID string
}

// Open connects to the database and ensures the schema exists. The returned
// store has no sweep registered and is only good for reads.
func Open(ctx context.Context, connString string) (*Store, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, err
	}

	// Initialize schema (Auto-Migration)
	if err := initSchema(ctx, conn); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}
	return &Store{conn: conn}, nil
}

// New connects to the database, ensures the schema exists, and registers the sweep.
func New(ctx context.Context, connString, sweepID, source string) (*Store, error) {
	s, err := Open(ctx, connString)
	if err != nil {
		return nil, err
	}

	_, err = s.conn.Exec(ctx, `
		INSERT INTO sweeps (id, source, started_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO UPDATE SET source = EXCLUDED.source, started_at = NOW()
	`, sweepID, source)
	if err != nil {
		s.Close(ctx)
		return nil, fmt.Errorf("failed to register sweep: %w", err)
	}

	s.sweepID = sweepID
	return s, nil
}

// initSchema creates the sweep tables if they don't exist.
func initSchema(ctx context.Context, conn *pgx.Conn) error {
	query := `
		CREATE TABLE IF NOT EXISTS sweeps (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			started_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS cell_scores (
			sweep_id TEXT NOT NULL REFERENCES sweeps(id) ON DELETE CASCADE,
			seq INT NOT NULL,
			width INT NOT NULL,
			height INT NOT NULL,
			bitrate_kbps INT NOT NULL,
			scorer TEXT NOT NULL,
			mean DOUBLE PRECISION,
			pair_count INT NOT NULL,
			failed_stage TEXT NOT NULL DEFAULT '',
			failure TEXT NOT NULL DEFAULT '',
			recorded_at TIMESTAMPTZ DEFAULT NOW(),
			PRIMARY KEY (sweep_id, width, height, bitrate_kbps, scorer)
		);
		CREATE INDEX IF NOT EXISTS cell_scores_sweep_seq_idx ON cell_scores (sweep_id, seq);
	`
	_, err := conn.Exec(ctx, query)
	return err
}

// Close terminates the database connection.
func (s *Store) Close(ctx context.Context) {
	s.conn.Close(ctx)
}

// SweepID returns the id rows are saved under.
func (s *Store) SweepID() string {
	return s.sweepID
}

// nullableMean maps a null score to SQL NULL. PostgreSQL double precision
// carries Infinity, so +Inf is stored as is.
func nullableMean(sc results.Score) *float64 {
	if sc.Null() || math.IsNaN(sc.Mean) {
		return nil
	}
	m := sc.Mean
	return &m
}

// SaveCell upserts one row per scorer of the cell. seq is the cell's
// position in the sweep and orders LoadTable.
func (s *Store) SaveCell(ctx context.Context, seq int, c results.CellResult) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, sc := range c.Scores {
		_, err := tx.Exec(ctx, `
			INSERT INTO cell_scores (sweep_id, seq, width, height, bitrate_kbps, scorer, mean, pair_count, failed_stage, failure)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (sweep_id, width, height, bitrate_kbps, scorer) DO UPDATE SET
				seq = EXCLUDED.seq,
				mean = EXCLUDED.mean,
				pair_count = EXCLUDED.pair_count,
				failed_stage = EXCLUDED.failed_stage,
				failure = EXCLUDED.failure,
				recorded_at = NOW()
		`, s.sweepID, seq, c.Cell.Resolution.Width, c.Cell.Resolution.Height, int(c.Cell.Bitrate),
			sc.Scorer, nullableMean(sc), sc.Count, string(c.FailedStage), c.Failure)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// LoadTable rebuilds a sweep's result table over the given axes, in the order
// the cells were recorded. Cells outside the axes are skipped.
func (s *Store) LoadTable(ctx context.Context, sweepID string, resolutions []grid.Resolution, bitrates []grid.Bitrate, scorers []string) (*results.Table, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT width, height, bitrate_kbps, scorer, mean, pair_count, failed_stage, failure
		FROM cell_scores
		WHERE sweep_id = $1
		ORDER BY seq, scorer
	`, sweepID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		order []grid.Cell
		cells = make(map[grid.Cell]*results.CellResult)
	)
	for rows.Next() {
		var (
			w, h, kbps, count int
			scorer, stage, msg string
			mean               *float64
		)
		if err := rows.Scan(&w, &h, &kbps, &scorer, &mean, &count, &stage, &msg); err != nil {
			return nil, err
		}
		cell := grid.Cell{Resolution: grid.Resolution{Width: w, Height: h}, Bitrate: grid.Bitrate(kbps)}
		cr, ok := cells[cell]
		if !ok {
			cr = &results.CellResult{Cell: cell, FailedStage: results.Stage(stage), Failure: msg}
			cells[cell] = cr
			order = append(order, cell)
		}
		sc := results.Score{Scorer: scorer, Count: count}
		if mean != nil {
			sc.Mean = *mean
		}
		cr.Scores = append(cr.Scores, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	table := results.NewTable(resolutions, bitrates, scorers)
	for _, cell := range order {
		cr := cells[cell]
		if !inAxes(cell, resolutions, bitrates) {
			continue
		}
		cr.Scores = orderScores(cr.Scores, scorers)
		if err := table.Record(*cr); err != nil {
			return nil, err
		}
	}
	return table, nil
}

func inAxes(c grid.Cell, resolutions []grid.Resolution, bitrates []grid.Bitrate) bool {
	var resOK, brOK bool
	for _, r := range resolutions {
		resOK = resOK || r == c.Resolution
	}
	for _, b := range bitrates {
		brOK = brOK || b == c.Bitrate
	}
	return resOK && brOK
}

// orderScores returns scores in scorer order; stored rows sort by name.
func orderScores(scores []results.Score, scorers []string) []results.Score {
	out := make([]results.Score, 0, len(scorers))
	for _, name := range scorers {
		for _, sc := range scores {
			if sc.Scorer == name {
				out = append(out, sc)
			}
		}
	}
	return out
}
