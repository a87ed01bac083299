package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// WriteRun archives a run with its solutions, edges and feedback in one
// transaction and returns the seq it was stored under.
//
// Writes are idempotent: rewriting a run id returns the existing seq, and a
// solution digest appearing twice in one run is stored once.
func (s *Store) WriteRun(ctx context.Context, run RunRecord) (int64, error) {
	if run.ID == "" {
		return 0, fmt.Errorf("write run: empty run id")
	}
	warnings, err := marshalStrings(run.Warnings)
	if err != nil {
		return 0, fmt.Errorf("write run: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var existing int64
	err = tx.QueryRowContext(ctx, `SELECT seq FROM runs WHERE id = ?`, run.ID).Scan(&existing)
	switch {
	case err == nil:
		return existing, nil
	case !errors.Is(err, sql.ErrNoRows):
		return 0, fmt.Errorf("write run: lookup: %w", err)
	}

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("write run: next seq: %w", err)
	}

	var loss any
	if run.Loss != nil {
		loss = *run.Loss
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, input_digest, planning, loss, num_unchecked, num_solutions, num_selected, warnings, solver_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		seq,
		run.InputDigest,
		boolToInt(run.Planning),
		loss,
		run.NumUnchecked,
		run.NumSolutions,
		run.NumSelected,
		warnings,
		run.SolverVersion,
	)
	if err != nil {
		return 0, fmt.Errorf("write run: insert run: %w", err)
	}

	for i, sol := range run.Solutions {
		if sol.Digest == "" {
			return 0, fmt.Errorf("write run: solution %d has no digest", i)
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO solutions (run_id, digest, seq, num_edges, valid)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(run_id, digest) DO NOTHING
		`, run.ID, sol.Digest, i, len(sol.Edges), boolToInt(sol.Valid()))
		if err != nil {
			return 0, fmt.Errorf("write run: insert solution: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("write run: rows affected: %w", err)
		}
		if n == 0 {
			// Duplicate digest within this run.
			continue
		}

		for j, e := range sol.Edges {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO edges (run_id, solution_digest, seq, from_node, to_node)
				VALUES (?, ?, ?, ?, ?)
				ON CONFLICT DO NOTHING
			`, run.ID, sol.Digest, j, e.A, e.B)
			if err != nil {
				return 0, fmt.Errorf("write run: insert edge: %w", err)
			}
		}

		rows, err := feedbackRows(sol.Feedback)
		if err != nil {
			return 0, fmt.Errorf("write run: %w", err)
		}
		for j, fr := range rows {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO feedback (run_id, solution_digest, seq, kind, row)
				VALUES (?, ?, ?, ?, ?)
				ON CONFLICT DO NOTHING
			`, run.ID, sol.Digest, j, fr.kind, fr.row)
			if err != nil {
				return 0, fmt.Errorf("write run: insert feedback: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("write run: commit: %w", err)
	}
	return seq, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
