package repository

import (
	"context"
	"database/sql"
)

// RunRepo handles batch run records.
type RunRepo struct{ db *sql.DB }

func NewRunRepo(db *sql.DB) *RunRepo { return &RunRepo{db: db} }

func (r *RunRepo) Add(ctx context.Context, run Run) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO runs(id, started_at, accounts_total, batch_size, start_from, status)
	VALUES(?, CURRENT_TIMESTAMP, ?, ?, ?, ?)
	`, run.ID, run.AccountsTotal, run.BatchSize, run.StartFrom, run.Status)
	return err
}

func (r *RunRepo) Finish(ctx context.Context, id, status string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE runs SET status = ?, finished_at = CURRENT_TIMESTAMP WHERE id = ?`, status, id)
	return err
}

func (r *RunRepo) List(ctx context.Context) ([]Run, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, started_at, finished_at, accounts_total, batch_size, start_from, status FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &run.AccountsTotal, &run.BatchSize, &run.StartFrom, &run.Status); err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// LastPosition returns the highest account position recorded for any run,
// or -1 when nothing has been recorded. Used to suggest a resume offset
// after an interrupted batch.
func (r *RunRepo) LastPosition(ctx context.Context) (int, error) {
	row := r.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(position), -1) FROM account_reports`)
	var pos int
	if err := row.Scan(&pos); err != nil {
		return -1, err
	}
	return pos, nil
}
