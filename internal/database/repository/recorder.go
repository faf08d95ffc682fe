package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/jask/crmsync/internal/service"
)

// RunRecorder persists each report of a batch run as it completes, so an
// interrupted run can be resumed from the last recorded position. It
// implements service.BatchRecorder.
type RunRecorder struct {
	Reports *ReportRepo
	RunID   string
}

func (r *RunRecorder) RecordReport(ctx context.Context, position int, rep service.Report) error {
	row := AccountReport{
		ID:         uuid.NewString(),
		RunID:      r.RunID,
		Position:   position,
		Folder:     rep.Folder,
		Status:     string(rep.Status),
		Confidence: rep.Match.Confidence,
		Ambiguous:  rep.Match.Ambiguous,
	}
	if rep.Match.MatchedRow != nil {
		name := rep.Match.MatchedRow.DisplayName
		row.MatchedName = &name
	}
	if rep.Note != "" {
		note := rep.Note
		row.Note = &note
	}
	outcomes := make([]FileOutcome, 0, len(rep.FileOutcomes))
	for i, o := range rep.FileOutcomes {
		fo := FileOutcome{
			ID:           uuid.NewString(),
			Position:     i,
			OriginalName: o.OriginalName,
			Status:       string(o.Status),
			ExpectedName: o.ExpectedPrefixedName,
		}
		if o.MatchedTargetName != "" {
			name := o.MatchedTargetName
			fo.MatchedName = &name
		}
		outcomes = append(outcomes, fo)
	}
	return r.Reports.Add(ctx, row, outcomes)
}
