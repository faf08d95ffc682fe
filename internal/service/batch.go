package service

import (
	"context"
	"log"
)

// BatchRecorder persists batch progress. Nil recorder means no persistence.
type BatchRecorder interface {
	RecordReport(ctx context.Context, position int, rep Report) error
}

// BatchService iterates the reconciliation engine over an ordered account
// list. Accounts run strictly sequentially: the target store is a single
// shared browser session, so no two account operations may overlap.
type BatchService struct {
	Reconciler *ReconcileService
	Recorder   BatchRecorder
	// Progress, when set, is called before each account with its absolute
	// position in the original list.
	Progress func(position, total int, folder string)
}

// RunBatch processes folders[startFrom : startFrom+batchSize] in order.
// batchSize <= 0 means the whole remainder. A failure on one account is
// recorded in that account's report and never aborts the batch; cancellation
// is honoured between accounts, never by interrupting an in-flight store
// call.
func (s *BatchService) RunBatch(ctx context.Context, folders []string, batchSize, startFrom int) ([]Report, error) {
	if startFrom < 0 {
		startFrom = 0
	}
	if startFrom > len(folders) {
		startFrom = len(folders)
	}
	slice := folders[startFrom:]
	if batchSize > 0 && batchSize < len(slice) {
		slice = slice[:batchSize]
	}

	reports := make([]Report, 0, len(slice))
	for i, folder := range slice {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		position := startFrom + i
		if s.Progress != nil {
			s.Progress(position, len(folders), folder)
		}
		rep, err := s.Reconciler.Reconcile(ctx, folder)
		if err != nil {
			// precondition violation: nothing later can succeed either
			return reports, err
		}
		reports = append(reports, rep)
		if s.Recorder != nil {
			if rerr := s.Recorder.RecordReport(ctx, position, rep); rerr != nil {
				log.Printf("warn: record report for %q: %v", folder, rerr)
			}
		}
	}
	return reports, nil
}
