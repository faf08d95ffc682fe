package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func entry(tag, name, modified string) map[string]any {
	e := map[string]any{".tag": tag, "name": name}
	if modified != "" {
		e["server_modified"] = modified
	}
	return e
}

func newTestClient(srv *httptest.Server) *Client {
	c := NewClient("test-token", "/Customers")
	c.APIBase = srv.URL
	c.ContentBase = srv.URL
	return c
}

func TestListFoldersPaginates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("authorization = %q", got)
		}
		switch r.URL.Path {
		case "/files/list_folder":
			var req struct {
				Path string `json:"path"`
			}
			json.NewDecoder(r.Body).Decode(&req)
			if req.Path != "/Customers" {
				t.Errorf("path = %q", req.Path)
			}
			json.NewEncoder(w).Encode(map[string]any{
				"entries":  []any{entry("folder", "Smith, John", ""), entry("file", "stray.pdf", "2024-05-01T10:00:00Z")},
				"cursor":   "c1",
				"has_more": true,
			})
		case "/files/list_folder/continue":
			json.NewEncoder(w).Encode(map[string]any{
				"entries":  []any{entry("folder", "Jones, Barbara", "")},
				"has_more": false,
			})
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	}))
	defer srv.Close()

	folders, err := newTestClient(srv).ListFolders(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if len(folders) != 2 || folders[0] != "Smith, John" || folders[1] != "Jones, Barbara" {
		t.Fatalf("folders = %v", folders)
	}
}

func TestListFilesDateGranularity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Path string `json:"path"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Path != "/Customers/Smith, John" {
			t.Errorf("path = %q", req.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"entries":  []any{entry("file", "info.pdf", "2024-05-01T16:45:12Z"), entry("folder", "nested", "")},
			"has_more": false,
		})
	}))
	defer srv.Close()

	files, err := newTestClient(srv).ListFiles(context.Background(), "Smith, John")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 {
		t.Fatalf("files = %v", files)
	}
	if files[0].OriginalName != "info.pdf" {
		t.Fatalf("name = %q", files[0].OriginalName)
	}
	want := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	if !files[0].ModifiedAt.Equal(want) {
		t.Fatalf("modified = %v, want %v", files[0].ModifiedAt, want)
	}
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/files/download" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var arg struct {
			Path string `json:"path"`
		}
		json.Unmarshal([]byte(r.Header.Get("Dropbox-API-Arg")), &arg)
		if arg.Path != "/Customers/Smith, John/info.pdf" {
			t.Errorf("arg path = %q", arg.Path)
		}
		w.Write([]byte("pdf bytes"))
	}))
	defer srv.Close()

	data, err := newTestClient(srv).Download(context.Background(), "Smith, John", "info.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "pdf bytes" {
		t.Fatalf("data = %q", data)
	}
}

func TestAPIErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error_summary": "invalid_access_token/"}`))
	}))
	defer srv.Close()

	if _, err := newTestClient(srv).ListFolders(context.Background(), ""); err == nil {
		t.Fatal("expected error")
	}
}

func TestCleanPath(t *testing.T) {
	cases := map[string]string{
		"https://www.dropbox.com/home/Customers": "/Customers",
		"/Customers":                             "/Customers",
		"Customers":                              "/Customers",
		"/Customers/":                            "/Customers",
		"":                                       "",
	}
	for in, want := range cases {
		if got := cleanPath(in); got != want {
			t.Errorf("cleanPath(%q) = %q, want %q", in, got, want)
		}
	}
}
