package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/jask/crmsync/internal/dateprefix"
	"github.com/jask/crmsync/internal/match"
)

// ErrNotExact guards the apply phase: only a report with an exact account
// match may drive writes against the target store.
var ErrNotExact = errors.New("apply requires an exact account match")

// ApplyResult summarises one apply invocation.
type ApplyResult struct {
	Uploaded []string
	Failed   []UploadFailure
}

// UploadFailure records a file that could not be uploaded after retries.
type UploadFailure struct {
	Name string
	Err  error
}

// ApplyService consumes a reconciliation report and converges the target
// store: it downloads each NeedsUpload file from the source, stages it under
// its date-prefixed name and uploads it through the borrowed browser session.
// Analysis and apply are separate on purpose; ReconcileService never calls
// this.
type ApplyService struct {
	Source SourceStore
	Target TargetStore
	// UploadTimeout bounds a single upload attempt. Uploads are the slowest
	// store calls and an in-flight one is allowed to finish or time out on
	// its own terms, never killed.
	UploadTimeout time.Duration
	// UploadRetries is the bounded retry count per file.
	UploadRetries int
	// StageDir receives downloaded files; empty means the OS temp dir.
	StageDir string
}

// Apply uploads rep.FilesToAdd to the account already matched in rep. The
// target account is opened again so the browser session is on the right page
// even when other accounts were visited since the analysis.
func (s *ApplyService) Apply(ctx context.Context, rep Report) (ApplyResult, error) {
	var res ApplyResult
	if rep.Match.Status != match.Exact || rep.Match.MatchedRow == nil {
		return res, ErrNotExact
	}
	if len(rep.FilesToAdd) == 0 {
		return res, nil
	}

	if err := s.Target.OpenAccount(ctx, *rep.Match.MatchedRow); err != nil {
		return res, fmt.Errorf("open account %q: %w", rep.Match.MatchedRow.DisplayName, err)
	}

	stage, err := s.stageDir()
	if err != nil {
		return res, err
	}
	defer os.RemoveAll(stage)

	for _, rec := range rep.FilesToAdd {
		path, err := s.stageFile(ctx, stage, rep.Folder, rec)
		if err != nil {
			res.Failed = append(res.Failed, UploadFailure{Name: rec.OriginalName, Err: err})
			continue
		}
		if err := s.uploadWithRetry(ctx, path); err != nil {
			res.Failed = append(res.Failed, UploadFailure{Name: rec.OriginalName, Err: err})
			continue
		}
		res.Uploaded = append(res.Uploaded, filepath.Base(path))
	}
	return res, nil
}

// CreateAccount creates a fresh target account for an unmatched folder,
// optionally enriched with fields extracted from a document. The caller
// re-runs Reconcile afterwards to obtain a fresh exact match before any
// uploads.
func (s *ApplyService) CreateAccount(ctx context.Context, fields AccountFields) error {
	if fields.LastName == "" {
		return fmt.Errorf("create account: last name required")
	}
	return s.Target.CreateAccount(ctx, fields)
}

// stageFile downloads one source file and writes it under the with-space
// prefixed name, which is the form uploads produce. Files the source already
// had prefixed keep their names.
func (s *ApplyService) stageFile(ctx context.Context, stage, folder string, rec dateprefix.FileRecord) (string, error) {
	data, err := s.Source.Download(ctx, folder, rec.OriginalName)
	if err != nil {
		return "", fmt.Errorf("download %q: %w", rec.OriginalName, err)
	}
	name := rec.OriginalName
	if !dateprefix.HasDatePrefix(name) {
		_, name = dateprefix.ExpectedNames(name, rec.ModifiedAt)
	}
	path := filepath.Join(stage, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("stage %q: %w", name, err)
	}
	return path, nil
}

func (s *ApplyService) uploadWithRetry(ctx context.Context, path string) error {
	attempts := s.UploadRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	var last error
	for i := 0; i < attempts; i++ {
		uctx, cancel := callCtx(ctx, s.UploadTimeout)
		err := s.Target.UploadFiles(uctx, []string{path})
		cancel()
		if err == nil {
			return nil
		}
		last = err
		log.Printf("upload attempt %d/%d failed for %s: %v", i+1, attempts, filepath.Base(path), err)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return fmt.Errorf("upload failed after %d attempts: %w", attempts, last)
}

func (s *ApplyService) stageDir() (string, error) {
	base := s.StageDir
	if base == "" {
		base = os.TempDir()
	}
	dir, err := os.MkdirTemp(base, "crmsync-stage-")
	if err != nil {
		return "", fmt.Errorf("stage dir: %w", err)
	}
	return dir, nil
}
