package service

import (
	"context"
	"time"

	"github.com/jask/crmsync/internal/dateprefix"
	"github.com/jask/crmsync/internal/match"
)

// SourceStore lists account folders and their files in the cloud file store.
// Implementations are safe for sequential reuse; every call honours the
// caller's context deadline.
type SourceStore interface {
	ListFolders(ctx context.Context, root string) ([]string, error)
	ListFiles(ctx context.Context, folder string) ([]dateprefix.FileRecord, error)
	Download(ctx context.Context, folder, name string) ([]byte, error)
}

// AccountFields are the values used when creating a fresh target account.
type AccountFields struct {
	FirstName   string
	LastName    string
	DateOfBirth string
	Gender      string
	Phone       string
	Email       string
}

// TargetStore drives the already-authenticated CRM browser session. The
// session is a single shared resource owned entirely by whoever supplied the
// implementation: the reconciliation core borrows it, issues strictly
// sequential calls against it, and never opens or closes it.
type TargetStore interface {
	Search(ctx context.Context, query string) ([]match.ResultRow, error)
	OpenAccount(ctx context.Context, row match.ResultRow) error
	ListAccountFiles(ctx context.Context) ([]string, error)
	UploadFiles(ctx context.Context, localPaths []string) error
	CreateAccount(ctx context.Context, fields AccountFields) error
	DeleteAccount(ctx context.Context) error
}

// callCtx bounds one store call; zero timeout means the caller's context
// governs.
func callCtx(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
