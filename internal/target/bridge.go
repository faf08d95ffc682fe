// Package target drives the browser-only CRM through a local bridge: a
// helper process that owns the single authenticated browser session and
// exposes its page operations as JSON over localhost. The bridge (and with
// it the session) is started and stopped outside this program; the client
// here only borrows it. If the bridge is gone, calls fail; this code never
// attempts to spawn a second session or tear the existing one down.
package target

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jask/crmsync/internal/match"
	"github.com/jask/crmsync/internal/service"
)

// Bridge is a TargetStore over the local browser bridge.
type Bridge struct {
	// BaseURL is the bridge endpoint, e.g. "http://127.0.0.1:8765".
	BaseURL string
	HTTP    *http.Client
}

// NewBridge returns a client for the bridge at baseURL.
func NewBridge(baseURL string) *Bridge {
	return &Bridge{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 5 * time.Minute},
	}
}

type searchRequest struct {
	Query string `json:"query"`
}

type searchResponse struct {
	Rows []string `json:"rows"`
}

// Search runs the account list search and returns the result rows in the
// order the CRM presented them (typically relevance-ranked; that order is
// the matcher's tie-break authority).
func (b *Bridge) Search(ctx context.Context, query string) ([]match.ResultRow, error) {
	var out searchResponse
	if err := b.post(ctx, "/accounts/search", searchRequest{Query: query}, &out); err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	rows := make([]match.ResultRow, 0, len(out.Rows))
	for _, name := range out.Rows {
		rows = append(rows, match.ResultRow{DisplayName: name})
	}
	return rows, nil
}

type openRequest struct {
	DisplayName string `json:"display_name"`
}

// OpenAccount navigates the session to the account's record page.
func (b *Bridge) OpenAccount(ctx context.Context, row match.ResultRow) error {
	return b.post(ctx, "/accounts/open", openRequest{DisplayName: row.DisplayName}, nil)
}

type listFilesResponse struct {
	Files []string `json:"files"`
}

// ListAccountFiles lists the file names attached to the currently open
// account.
func (b *Bridge) ListAccountFiles(ctx context.Context) ([]string, error) {
	var out listFilesResponse
	if err := b.post(ctx, "/accounts/files", struct{}{}, &out); err != nil {
		return nil, fmt.Errorf("list account files: %w", err)
	}
	return out.Files, nil
}

type uploadRequest struct {
	Paths []string `json:"paths"`
}

// UploadFiles attaches the given local files to the currently open account.
// The bridge reads the paths itself; it runs on the same host.
func (b *Bridge) UploadFiles(ctx context.Context, localPaths []string) error {
	return b.post(ctx, "/accounts/upload", uploadRequest{Paths: localPaths}, nil)
}

type createRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	DateOfBirth string `json:"date_of_birth,omitempty"`
	Gender      string `json:"gender,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
}

// CreateAccount creates a new account record.
func (b *Bridge) CreateAccount(ctx context.Context, f service.AccountFields) error {
	return b.post(ctx, "/accounts/create", createRequest{
		FirstName:   f.FirstName,
		LastName:    f.LastName,
		DateOfBirth: f.DateOfBirth,
		Gender:      f.Gender,
		Phone:       f.Phone,
		Email:       f.Email,
	}, nil)
}

// DeleteAccount deletes the currently open account.
func (b *Bridge) DeleteAccount(ctx context.Context) error {
	return b.post(ctx, "/accounts/delete", struct{}{}, nil)
}

type bridgeError struct {
	Error string `json:"error"`
}

func (b *Bridge) post(ctx context.Context, endpoint string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.BaseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	client := b.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var be bridgeError
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(data, &be) == nil && be.Error != "" {
			return fmt.Errorf("bridge %s: %s", endpoint, be.Error)
		}
		return fmt.Errorf("bridge %s: status %d", endpoint, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
