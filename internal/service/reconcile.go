package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jask/crmsync/internal/dateprefix"
	"github.com/jask/crmsync/internal/identity"
	"github.com/jask/crmsync/internal/match"
)

// ReportStatus is the per-account outcome an operator acts on. "No match
// found", "matched but unreachable" and "matched and reconciled" are kept
// distinct deliberately.
type ReportStatus string

const (
	StatusReconciled  ReportStatus = "reconciled"
	StatusPartial     ReportStatus = "partial_match"
	StatusNoMatch     ReportStatus = "no_match"
	StatusUnreachable ReportStatus = "account_unreachable"
	StatusSourceError ReportStatus = "source_error"
)

// Report is the per-account reconciliation artifact. The engine constructs
// one per invocation; it is immutable once returned.
type Report struct {
	Folder   string
	Identity identity.Identity
	Match    match.Result
	Status   ReportStatus
	// Note carries the diagnostic for degraded statuses.
	Note string
	// FileOutcomes are populated only on an exact match, in source listing
	// order (not re-sorted, so an operator can cross-reference against the
	// source store's own listing).
	FileOutcomes []dateprefix.Outcome
	// FilesToAdd is the NeedsUpload subset, in source listing order.
	FilesToAdd []dateprefix.FileRecord
}

// ReconcileService runs the per-account state machine: normalize the folder
// label, search the target store, classify the match, and on an exact match
// diff the file listings on both sides. Analysis never mutates either store.
type ReconcileService struct {
	Source  SourceStore
	Target  TargetStore
	Matcher *match.Matcher
	// CallTimeout bounds each store call; zero disables the bound.
	CallTimeout time.Duration
}

// Reconcile analyses one account folder. Recoverable per-account failures
// are folded into the report status; the returned error is reserved for
// precondition violations.
func (s *ReconcileService) Reconcile(ctx context.Context, folder string) (Report, error) {
	if s.Target == nil {
		return Report{}, fmt.Errorf("reconcile: no target store supplied")
	}
	if s.Source == nil {
		return Report{}, fmt.Errorf("reconcile: no source store supplied")
	}
	matcher := s.Matcher
	if matcher == nil {
		matcher = &match.Matcher{Policy: match.DefaultPolicy()}
	}

	rep := Report{Folder: folder, Identity: identity.Normalize(folder)}

	rows, err := s.search(ctx, rep.Identity)
	if err != nil {
		// a failed search is "no match" with a diagnostic, not a crash
		rep.Status = StatusNoMatch
		rep.Match = match.Result{Status: match.None, Note: err.Error()}
		rep.Note = fmt.Sprintf("target search failed: %v", err)
		return rep, nil
	}

	rep.Match = matcher.Match(rep.Identity, rows)
	switch rep.Match.Status {
	case match.None:
		rep.Status = StatusNoMatch
		return rep, nil
	case match.Partial:
		// a partial match never triggers file work or corrective writes;
		// follow-up is an operator decision
		rep.Status = StatusPartial
		return rep, nil
	}

	targetFiles, err := s.openAndList(ctx, *rep.Match.MatchedRow)
	if err != nil {
		rep.Status = StatusUnreachable
		rep.Note = fmt.Sprintf("account found but unreachable: %v", err)
		return rep, nil
	}

	sourceFiles, err := s.listSource(ctx, folder)
	if err != nil {
		rep.Status = StatusSourceError
		rep.Note = fmt.Sprintf("source listing failed: %v", err)
		return rep, nil
	}

	for _, rec := range sourceFiles {
		outcome := dateprefix.MatchAgainstTarget(rec, targetFiles)
		rep.FileOutcomes = append(rep.FileOutcomes, outcome)
		if outcome.Status == dateprefix.NeedsUpload {
			rep.FilesToAdd = append(rep.FilesToAdd, rec)
		}
	}
	rep.Status = StatusReconciled
	return rep, nil
}

// search queries the target store by last name; the matcher narrows the
// returned rows. Falls back to the raw label when parsing produced no last
// name.
func (s *ReconcileService) search(ctx context.Context, id identity.Identity) ([]match.ResultRow, error) {
	query := id.LastName
	if query == "" {
		query = id.RawLabel
	}
	cctx, cancel := callCtx(ctx, s.CallTimeout)
	defer cancel()
	return s.Target.Search(cctx, query)
}

func (s *ReconcileService) openAndList(ctx context.Context, row match.ResultRow) ([]string, error) {
	cctx, cancel := callCtx(ctx, s.CallTimeout)
	defer cancel()
	if err := s.Target.OpenAccount(cctx, row); err != nil {
		return nil, fmt.Errorf("open account %q: %w", row.DisplayName, err)
	}
	lctx, lcancel := callCtx(ctx, s.CallTimeout)
	defer lcancel()
	files, err := s.Target.ListAccountFiles(lctx)
	if err != nil {
		return nil, fmt.Errorf("list account files: %w", err)
	}
	return files, nil
}

func (s *ReconcileService) listSource(ctx context.Context, folder string) ([]dateprefix.FileRecord, error) {
	cctx, cancel := callCtx(ctx, s.CallTimeout)
	defer cancel()
	return s.Source.ListFiles(cctx, folder)
}
