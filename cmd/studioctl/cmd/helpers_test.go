package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/fatih/color"
)

// fakeAPI records requests and serves canned responses per path.
type fakeAPI struct {
	t        *testing.T
	mu       sync.Mutex
	requests []recordedRequest
	handle   func(w http.ResponseWriter, r *http.Request, body map[string]any)
}

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Body   map[string]any
}

func newFakeAPI(t *testing.T, handle func(w http.ResponseWriter, r *http.Request, body map[string]any)) (*fakeAPI, *httptest.Server) {
	t.Helper()
	f := &fakeAPI{t: t, handle: handle}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&body)
		}
		f.mu.Lock()
		f.requests = append(f.requests, recordedRequest{
			Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery,
			Auth: r.Header.Get("Authorization"), Body: body,
		})
		f.mu.Unlock()
		f.handle(w, r, body)
	}))
	t.Cleanup(server.Close)
	return f, server
}

func (f *fakeAPI) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// run executes the CLI against url with a token and returns its output.
func run(t *testing.T, url string, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true
	t.Setenv("HOME", t.TempDir())
	t.Setenv("STUDIO_TOKEN", "")
	t.Setenv("STUDIO_URL", "")

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--url", url, "--token", "test-token"}, args...))
	err := root.Execute()
	return out.String(), err
}
