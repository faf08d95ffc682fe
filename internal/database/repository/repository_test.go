package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jask/crmsync/internal/dateprefix"
	"github.com/jask/crmsync/internal/database"
	"github.com/jask/crmsync/internal/match"
	"github.com/jask/crmsync/internal/service"
)

func setupDB(t *testing.T) *RunRepo {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	migrations, err := filepath.Abs("../migrations")
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(dbPath, migrations))

	db, err := database.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRunRepo(db)
}

func TestRunLifecycle(t *testing.T) {
	runs := setupDB(t)
	ctx := context.Background()

	id := uuid.NewString()
	require.NoError(t, runs.Add(ctx, Run{ID: id, AccountsTotal: 40, BatchSize: 10, StartFrom: 0, Status: "running"}))

	listed, err := runs.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, id, listed[0].ID)
	require.Equal(t, "running", listed[0].Status)
	require.Nil(t, listed[0].FinishedAt)

	require.NoError(t, runs.Finish(ctx, id, "done"))
	listed, err = runs.List(ctx)
	require.NoError(t, err)
	require.Equal(t, "done", listed[0].Status)
	require.NotNil(t, listed[0].FinishedAt)
}

func TestReportRoundTrip(t *testing.T) {
	runs := setupDB(t)
	reports := NewReportRepo(runs.db)
	ctx := context.Background()

	runID := uuid.NewString()
	require.NoError(t, runs.Add(ctx, Run{ID: runID, AccountsTotal: 2, Status: "running"}))

	matched := "Smith, John"
	repID := uuid.NewString()
	rep := AccountReport{
		ID:          repID,
		RunID:       runID,
		Position:    7,
		Folder:      "Smith, John",
		Status:      "reconciled",
		Confidence:  1.0,
		MatchedName: &matched,
	}
	outcomes := []FileOutcome{
		{ID: uuid.NewString(), Position: 0, OriginalName: "info.pdf", Status: "needs_upload", ExpectedName: "240501info.pdf"},
		{ID: uuid.NewString(), Position: 1, OriginalName: "old.pdf", Status: "already_present", MatchedName: &matched},
	}
	require.NoError(t, reports.Add(ctx, rep, outcomes))

	got, err := reports.ListByRun(ctx, runID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, 7, got[0].Position)
	require.Equal(t, "reconciled", got[0].Status)
	require.NotNil(t, got[0].MatchedName)
	require.Equal(t, matched, *got[0].MatchedName)
	require.Nil(t, got[0].Note)

	fos, err := reports.Outcomes(ctx, repID)
	require.NoError(t, err)
	require.Len(t, fos, 2)
	require.Equal(t, "info.pdf", fos[0].OriginalName)
	require.Equal(t, "240501info.pdf", fos[0].ExpectedName)
	require.Equal(t, "already_present", fos[1].Status)
}

func TestLastPositionSuggestsResume(t *testing.T) {
	runs := setupDB(t)
	reports := NewReportRepo(runs.db)
	ctx := context.Background()

	pos, err := runs.LastPosition(ctx)
	require.NoError(t, err)
	require.Equal(t, -1, pos, "empty ledger has no resume point")

	runID := uuid.NewString()
	require.NoError(t, runs.Add(ctx, Run{ID: runID, AccountsTotal: 20, Status: "running"}))
	for _, p := range []int{3, 4, 5} {
		require.NoError(t, reports.Add(ctx, AccountReport{
			ID: uuid.NewString(), RunID: runID, Position: p, Folder: "x", Status: "no_match",
		}, nil))
	}

	pos, err = runs.LastPosition(ctx)
	require.NoError(t, err)
	require.Equal(t, 5, pos)
}

func TestRunRecorderPersistsServiceReport(t *testing.T) {
	runs := setupDB(t)
	reports := NewReportRepo(runs.db)
	ctx := context.Background()

	runID := uuid.NewString()
	require.NoError(t, runs.Add(ctx, Run{ID: runID, AccountsTotal: 1, Status: "running"}))

	row := match.ResultRow{DisplayName: "Smith, John"}
	rec := &RunRecorder{Reports: reports, RunID: runID}
	err := rec.RecordReport(ctx, 12, service.Report{
		Folder: "Smith, John",
		Status: service.StatusReconciled,
		Match:  match.Result{Status: match.Exact, MatchedRow: &row, Confidence: 1.0},
		FileOutcomes: []dateprefix.Outcome{
			{OriginalName: "a.pdf", Status: dateprefix.NeedsUpload, ExpectedPrefixedName: "240501a.pdf"},
			{OriginalName: "b.pdf", Status: dateprefix.AlreadyPresent, MatchedTargetName: "240501 b.pdf"},
		},
	})
	require.NoError(t, err)

	got, err := reports.ListByRun(ctx, runID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, 12, got[0].Position)
	require.Equal(t, string(service.StatusReconciled), got[0].Status)
	require.Equal(t, "Smith, John", *got[0].MatchedName)

	fos, err := reports.Outcomes(ctx, got[0].ID)
	require.NoError(t, err)
	require.Len(t, fos, 2)
	require.Equal(t, "240501a.pdf", fos[0].ExpectedName)
	require.NotNil(t, fos[1].MatchedName)
	require.Equal(t, "240501 b.pdf", *fos[1].MatchedName)
}
