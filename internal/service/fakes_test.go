package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/jask/crmsync/internal/dateprefix"
	"github.com/jask/crmsync/internal/match"
)

type fakeSource struct {
	files       map[string][]dateprefix.FileRecord
	content     map[string][]byte
	listErr     error
	downloadErr error

	downloads []string
}

func (f *fakeSource) ListFolders(ctx context.Context, root string) ([]string, error) {
	names := make([]string, 0, len(f.files))
	for name := range f.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (f *fakeSource) ListFiles(ctx context.Context, folder string) ([]dateprefix.FileRecord, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.files[folder], nil
}

func (f *fakeSource) Download(ctx context.Context, folder, name string) ([]byte, error) {
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	data, ok := f.content[name]
	if !ok {
		return nil, fmt.Errorf("no such file %q", name)
	}
	f.downloads = append(f.downloads, name)
	return data, nil
}

type fakeTarget struct {
	rows     []match.ResultRow
	files    []string
	searches []string
	opened   []string

	searchErr error
	openErr   error
	filesErr  error

	// uploadErrs is consumed one per UploadFiles call; nil entries succeed.
	uploadErrs []error
	uploaded   []string
	created    []AccountFields
	deleted    int
}

func (f *fakeTarget) Search(ctx context.Context, query string) ([]match.ResultRow, error) {
	f.searches = append(f.searches, query)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.rows, nil
}

func (f *fakeTarget) OpenAccount(ctx context.Context, row match.ResultRow) error {
	if f.openErr != nil {
		return f.openErr
	}
	f.opened = append(f.opened, row.DisplayName)
	return nil
}

func (f *fakeTarget) ListAccountFiles(ctx context.Context) ([]string, error) {
	if f.filesErr != nil {
		return nil, f.filesErr
	}
	return f.files, nil
}

func (f *fakeTarget) UploadFiles(ctx context.Context, localPaths []string) error {
	var err error
	if len(f.uploadErrs) > 0 {
		err, f.uploadErrs = f.uploadErrs[0], f.uploadErrs[1:]
	}
	if err != nil {
		return err
	}
	for _, p := range localPaths {
		f.uploaded = append(f.uploaded, filepath.Base(p))
	}
	return nil
}

func (f *fakeTarget) CreateAccount(ctx context.Context, fields AccountFields) error {
	f.created = append(f.created, fields)
	return nil
}

func (f *fakeTarget) DeleteAccount(ctx context.Context) error {
	f.deleted++
	return nil
}

// writeCount aggregates every mutating call so read-only paths can assert
// nothing slipped through.
func (f *fakeTarget) writeCount() int {
	return len(f.uploaded) + len(f.created) + f.deleted
}
