// Package source implements the cloud file-store side of the sync: listing
// account folders, listing files with their modification dates, and
// downloading content. The client speaks the Dropbox v2 HTTP API directly.
package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/jask/crmsync/internal/dateprefix"
)

const (
	apiBase     = "https://api.dropboxapi.com/2"
	contentBase = "https://content.dropboxapi.com/2"
)

// Client is a source-store client over the Dropbox HTTP API. It is safe for
// sequential reuse; calls honour the supplied context.
type Client struct {
	Token string
	// Root is the folder containing one subfolder per account.
	Root string
	// HTTP lets tests substitute a transport; nil means a default client.
	HTTP *http.Client
	// APIBase and ContentBase override the endpoints in tests.
	APIBase     string
	ContentBase string
}

// NewClient returns a client rooted at root.
func NewClient(token, root string) *Client {
	return &Client{Token: token, Root: cleanPath(root), HTTP: &http.Client{Timeout: 60 * time.Second}}
}

type listFolderRequest struct {
	Path      string `json:"path"`
	Recursive bool   `json:"recursive"`
}

type listFolderContinueRequest struct {
	Cursor string `json:"cursor"`
}

type listFolderResponse struct {
	Entries []struct {
		Tag            string    `json:".tag"`
		Name           string    `json:"name"`
		PathLower      string    `json:"path_lower"`
		ServerModified time.Time `json:"server_modified"`
	} `json:"entries"`
	Cursor  string `json:"cursor"`
	HasMore bool   `json:"has_more"`
}

// ListFolders returns the names of account folders directly under root.
// An empty root argument falls back to the client's configured root.
func (c *Client) ListFolders(ctx context.Context, root string) ([]string, error) {
	if root == "" {
		root = c.Root
	}
	var folders []string
	err := c.listAll(ctx, cleanPath(root), func(tag, name string, _ time.Time) {
		if tag == "folder" {
			folders = append(folders, name)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("list folders %s: %w", root, err)
	}
	return folders, nil
}

// ListFiles returns the files in one account folder, in listing order, with
// date-only modification granularity (time of day is irrelevant to the
// prefix convention).
func (c *Client) ListFiles(ctx context.Context, folder string) ([]dateprefix.FileRecord, error) {
	var files []dateprefix.FileRecord
	err := c.listAll(ctx, c.folderPath(folder), func(tag, name string, modified time.Time) {
		if tag == "file" {
			files = append(files, dateprefix.FileRecord{
				OriginalName: name,
				ModifiedAt:   modified.Truncate(24 * time.Hour),
			})
		}
	})
	if err != nil {
		return nil, fmt.Errorf("list files %s: %w", folder, err)
	}
	return files, nil
}

// Download fetches one file's content.
func (c *Client) Download(ctx context.Context, folder, name string) ([]byte, error) {
	arg, err := json.Marshal(map[string]string{"path": path.Join(c.folderPath(folder), name)})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.contentBase()+"/files/download", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Dropbox-API-Arg", string(arg))
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s/%s: %w", folder, name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("download %s/%s: status %d: %s", folder, name, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) listAll(ctx context.Context, p string, visit func(tag, name string, modified time.Time)) error {
	var out listFolderResponse
	if err := c.rpc(ctx, "/files/list_folder", listFolderRequest{Path: p}, &out); err != nil {
		return err
	}
	for {
		for _, e := range out.Entries {
			visit(e.Tag, e.Name, e.ServerModified)
		}
		if !out.HasMore {
			return nil
		}
		next := listFolderResponse{}
		if err := c.rpc(ctx, "/files/list_folder/continue", listFolderContinueRequest{Cursor: out.Cursor}, &next); err != nil {
			return err
		}
		out = next
	}
}

func (c *Client) rpc(ctx context.Context, endpoint string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase()+endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s: status %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) apiBase() string {
	if c.APIBase != "" {
		return c.APIBase
	}
	return apiBase
}

func (c *Client) contentBase() string {
	if c.ContentBase != "" {
		return c.ContentBase
	}
	return contentBase
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

func (c *Client) folderPath(folder string) string {
	return path.Join(c.Root, folder)
}

// cleanPath accepts either a plain path or a full Dropbox web URL and
// returns the API path form ("/Customers").
func cleanPath(p string) string {
	p = strings.TrimSpace(p)
	if i := strings.Index(p, "dropbox.com/home"); i >= 0 {
		p = p[i+len("dropbox.com/home"):]
	}
	p = strings.TrimRight(p, "/")
	if p == "" {
		return ""
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}
