package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeRecorder struct {
	positions []int
	folders   []string
	err       error
}

func (r *fakeRecorder) RecordReport(ctx context.Context, position int, rep Report) error {
	if r.err != nil {
		return r.err
	}
	r.positions = append(r.positions, position)
	r.folders = append(r.folders, rep.Folder)
	return nil
}

func folderNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("Account %03d", i)
	}
	return names
}

func reportedFolders(reps []Report) []string {
	out := make([]string, len(reps))
	for i, rep := range reps {
		out[i] = rep.Folder
	}
	return out
}

func newBatch(rec BatchRecorder) *BatchService {
	return &BatchService{
		Reconciler: newReconciler(&fakeSource{}, &fakeTarget{}),
		Recorder:   rec,
	}
}

func TestRunBatchWindow(t *testing.T) {
	folders := folderNames(30)
	reps, err := newBatch(nil).RunBatch(context.Background(), folders, 5, 10)
	require.NoError(t, err)
	require.Equal(t, folders[10:15], reportedFolders(reps))
}

func TestRunBatchWholeRemainder(t *testing.T) {
	folders := folderNames(7)
	reps, err := newBatch(nil).RunBatch(context.Background(), folders, 0, 3)
	require.NoError(t, err)
	require.Equal(t, folders[3:], reportedFolders(reps))
}

func TestRunBatchOffsetClamped(t *testing.T) {
	folders := folderNames(4)

	reps, err := newBatch(nil).RunBatch(context.Background(), folders, 10, 99)
	require.NoError(t, err)
	require.Empty(t, reps)

	reps, err = newBatch(nil).RunBatch(context.Background(), folders, 10, -2)
	require.NoError(t, err)
	require.Equal(t, folders, reportedFolders(reps))
}

func TestRunBatchMatchesIndividualRuns(t *testing.T) {
	folders := []string{"Smith, John", "Jones, Barbara", "Rolle, Alexander"}
	svc := newBatch(nil)

	batch, err := svc.RunBatch(context.Background(), folders, 0, 0)
	require.NoError(t, err)
	require.Len(t, batch, len(folders))
	for i, folder := range folders {
		one, err := svc.Reconciler.Reconcile(context.Background(), folder)
		require.NoError(t, err)
		require.Equal(t, one, batch[i])
	}
}

func TestRunBatchRecordsAbsolutePositions(t *testing.T) {
	folders := folderNames(6)
	rec := &fakeRecorder{}
	reps, err := newBatch(rec).RunBatch(context.Background(), folders, 2, 3)
	require.NoError(t, err)
	require.Len(t, reps, 2)
	require.Equal(t, []int{3, 4}, rec.positions)
	require.Equal(t, folders[3:5], rec.folders)
}

func TestRunBatchRecorderFailureDoesNotAbort(t *testing.T) {
	folders := folderNames(3)
	rec := &fakeRecorder{err: errors.New("db locked")}
	reps, err := newBatch(rec).RunBatch(context.Background(), folders, 0, 0)
	require.NoError(t, err)
	require.Len(t, reps, 3)
}

func TestRunBatchCancelledBetweenAccounts(t *testing.T) {
	folders := folderNames(5)
	ctx, cancel := context.WithCancel(context.Background())
	svc := newBatch(nil)
	svc.Progress = func(position, total int, folder string) {
		require.Equal(t, len(folders), total)
		if position == 1 {
			cancel()
		}
	}

	reps, err := svc.RunBatch(ctx, folders, 0, 0)
	require.ErrorIs(t, err, context.Canceled)
	// the account whose reconcile was already underway still completes
	require.Equal(t, folders[:2], reportedFolders(reps))
}

func TestRunBatchAlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	reps, err := newBatch(nil).RunBatch(ctx, folderNames(3), 0, 0)
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, reps)
}
