package repository

import (
	"context"
	"database/sql"
)

// ReportRepo handles persisted account reports and their file outcomes.
type ReportRepo struct{ db *sql.DB }

func NewReportRepo(db *sql.DB) *ReportRepo { return &ReportRepo{db: db} }

func (r *ReportRepo) Add(ctx context.Context, rep AccountReport, outcomes []FileOutcome) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
	INSERT INTO account_reports(id, run_id, position, folder, status, confidence, matched_name, ambiguous, note, created_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, rep.ID, rep.RunID, rep.Position, rep.Folder, rep.Status, rep.Confidence, rep.MatchedName, rep.Ambiguous, rep.Note)
	if err != nil {
		return err
	}
	for _, o := range outcomes {
		_, err = tx.ExecContext(ctx, `
		INSERT INTO file_outcomes(id, report_id, position, original_name, status, expected_name, matched_name)
		VALUES(?, ?, ?, ?, ?, ?, ?)
		`, o.ID, rep.ID, o.Position, o.OriginalName, o.Status, o.ExpectedName, o.MatchedName)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *ReportRepo) ListByRun(ctx context.Context, runID string) ([]AccountReport, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, run_id, position, folder, status, confidence, matched_name, ambiguous, note, created_at
	FROM account_reports WHERE run_id = ? ORDER BY position ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AccountReport
	for rows.Next() {
		var rep AccountReport
		if err := rows.Scan(&rep.ID, &rep.RunID, &rep.Position, &rep.Folder, &rep.Status, &rep.Confidence, &rep.MatchedName, &rep.Ambiguous, &rep.Note, &rep.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

func (r *ReportRepo) Outcomes(ctx context.Context, reportID string) ([]FileOutcome, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, report_id, position, original_name, status, expected_name, matched_name
	FROM file_outcomes WHERE report_id = ? ORDER BY position ASC`, reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []FileOutcome
	for rows.Next() {
		var o FileOutcome
		if err := rows.Scan(&o.ID, &o.ReportID, &o.Position, &o.OriginalName, &o.Status, &o.ExpectedName, &o.MatchedName); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
