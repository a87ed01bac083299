package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/ibis/internal/recipe"
)

const runColumns = `id, seq, input_digest, planning, loss, num_unchecked, num_solutions, num_selected, warnings, solver_version`

// ListRuns returns every archived run in seq order, without solutions.
//
// Returns an empty slice (not nil) if the archive is empty.
func (s *Store) ListRuns(ctx context.Context) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunRecord{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun retrieves a run with its solutions. Solutions come back in their
// original order with edges and feedback; ancestors are not archived.
// Returns an error wrapping sql.ErrNoRows if the run is not found.
func (s *Store) ReadRun(ctx context.Context, id string) (RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err != nil {
		return RunRecord{}, fmt.Errorf("read run %s: %w", id, err)
	}

	sols, err := s.readSolutions(ctx, id)
	if err != nil {
		return RunRecord{}, err
	}
	run.Solutions = sols
	return run, nil
}

func (s *Store) readSolutions(ctx context.Context, runID string) ([]recipe.Recipe, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT digest
		FROM solutions
		WHERE run_id = ?
		ORDER BY seq ASC, digest COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query solutions: %w", err)
	}

	var sols []recipe.Recipe
	index := make(map[string]int)
	for rows.Next() {
		var digest string
		if err := rows.Scan(&digest); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan solution: %w", err)
		}
		index[digest] = len(sols)
		sols = append(sols, recipe.Recipe{Digest: digest})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate solutions: %w", err)
	}
	rows.Close()

	if err := s.readEdges(ctx, runID, sols, index); err != nil {
		return nil, err
	}
	if err := s.readFeedback(ctx, runID, sols, index); err != nil {
		return nil, err
	}
	return sols, nil
}

func (s *Store) readEdges(ctx context.Context, runID string, sols []recipe.Recipe, index map[string]int) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT solution_digest, from_node, to_node
		FROM edges
		WHERE run_id = ?
		ORDER BY solution_digest COLLATE BINARY ASC, seq ASC
	`, runID)
	if err != nil {
		return fmt.Errorf("query edges: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var digest string
		var e recipe.Pair
		if err := rows.Scan(&digest, &e.A, &e.B); err != nil {
			return fmt.Errorf("scan edge: %w", err)
		}
		i, ok := index[digest]
		if !ok {
			return fmt.Errorf("edge references unknown solution %s", digest)
		}
		sols[i].Edges = append(sols[i].Edges, e)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate edges: %w", err)
	}
	return nil
}

func (s *Store) readFeedback(ctx context.Context, runID string, sols []recipe.Recipe, index map[string]int) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT solution_digest, kind, row
		FROM feedback
		WHERE run_id = ?
		ORDER BY solution_digest COLLATE BINARY ASC, seq ASC
	`, runID)
	if err != nil {
		return fmt.Errorf("query feedback: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var digest, kind, text string
		if err := rows.Scan(&digest, &kind, &text); err != nil {
			return fmt.Errorf("scan feedback: %w", err)
		}
		i, ok := index[digest]
		if !ok {
			return fmt.Errorf("feedback references unknown solution %s", digest)
		}
		if err := addFeedbackRow(&sols[i].Feedback, kind, text); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate feedback: %w", err)
	}
	return nil
}

// rowScanner is implemented by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunRecord, error) {
	var (
		run      RunRecord
		planning int
		loss     sql.NullInt64
		warnings string
	)
	err := row.Scan(
		&run.ID,
		&run.Seq,
		&run.InputDigest,
		&planning,
		&loss,
		&run.NumUnchecked,
		&run.NumSolutions,
		&run.NumSelected,
		&warnings,
		&run.SolverVersion,
	)
	if err != nil {
		return RunRecord{}, err
	}
	run.Planning = planning == 1
	if loss.Valid {
		l := int(loss.Int64)
		run.Loss = &l
	}
	if run.Warnings, err = unmarshalStrings(warnings); err != nil {
		return RunRecord{}, err
	}
	return run, nil
}
