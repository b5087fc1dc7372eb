package downloader

import (
	"archive/zip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KidsLabDe/ScratchBackendCLI/pkg/auth"
	"github.com/KidsLabDe/ScratchBackendCLI/pkg/config"
	"github.com/KidsLabDe/ScratchBackendCLI/pkg/logger"
	"github.com/KidsLabDe/ScratchBackendCLI/pkg/scratch"
	"github.com/KidsLabDe/ScratchBackendCLI/pkg/storage"
)

const testAsset = "0123456789abcdef0123456789abcdef.svg"

const testManifest = `{
	"targets": [
		{"isStage": true, "name": "Stage", "costumes": [{"md5ext": "` + testAsset + `"}], "sounds": []}
	]
}`

// newProjectServer serves metadata, manifest and assets for one fake
// project.
func newProjectServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/projects/104", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": 104, "title": "Weekend Chess", "project_token": "104_tok"}`))
	})
	mux.HandleFunc("/104", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "104_tok", r.URL.Query().Get("token"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(testManifest))
	})
	mux.HandleFunc("/internalapi/asset/", func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, testAsset) {
			w.Write([]byte("<svg/>"))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestDownloader(t *testing.T, serverURL string, overwrite bool) (*Downloader, string) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Retry.Enabled = false
	cfg.RateLimit.RequestsPerMinute = 10000
	cfg.Output.OverwriteExisting = overwrite

	client, err := scratch.NewClient(cfg, logger.NewTestLogger())
	require.NoError(t, err)
	client.SetEndpoints(scratch.Endpoints{
		Base:     serverURL,
		API:      serverURL,
		Projects: serverURL,
		Assets:   serverURL,
	})
	require.NoError(t, client.SetSession(&auth.Session{Username: "kidslab", Token: "tok"}))

	dir := t.TempDir()
	store, err := storage.NewManager(dir, overwrite)
	require.NoError(t, err)

	return New(client, store, cfg, logger.NewTestLogger()), dir
}

func TestDownloadJSON(t *testing.T) {
	server := newProjectServer(t)
	dl, dir := newTestDownloader(t, server.URL, false)

	path, err := dl.DownloadJSON(context.Background(), 104)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Weekend Chess_104.json"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, testManifest, string(content))
}

func TestDownloadSB3(t *testing.T) {
	server := newProjectServer(t)
	dl, dir := newTestDownloader(t, server.URL, false)

	path, err := dl.DownloadSB3(context.Background(), 104)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Weekend Chess_104.sb3"), path)

	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"project.json", testAsset}, names)
}

func TestDownloadJSONWithoutMetadata(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/projects/104", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/104", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("token"))
		assert.Equal(t, "tok", r.Header.Get("X-Token"))
		w.Write([]byte(testManifest))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	dl, dir := newTestDownloader(t, server.URL, false)

	path, err := dl.DownloadJSON(context.Background(), 104)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "project_104.json"), path)
}

func TestDownloadSB3SkipsMissingAsset(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/projects/104", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": 104, "title": "Broken"}`))
	})
	mux.HandleFunc("/104", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testManifest))
	})
	mux.HandleFunc("/internalapi/asset/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	dl, _ := newTestDownloader(t, server.URL, false)

	path, err := dl.DownloadSB3(context.Background(), 104)
	require.NoError(t, err)

	// The bundle still ships, just without the unavailable asset.
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	require.Len(t, zr.File, 1)
	assert.Equal(t, "project.json", zr.File[0].Name)
}

func TestDownloadSB3SkipsExisting(t *testing.T) {
	server := newProjectServer(t)
	dl, dir := newTestDownloader(t, server.URL, false)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "Weekend Chess_104.sb3"), []byte("old"), 0o644))

	_, err := dl.DownloadSB3(context.Background(), 104)
	require.ErrorIs(t, err, storage.ErrAlreadyExists)
}

func TestDownloadAll(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/site-api/projects/all/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page") == "1" {
			w.Write([]byte(`[
				{"pk": 104, "fields": {"title": "Weekend Chess"}},
				{"pk": 205, "fields": {"title": "Maze Runner"}}
			]`))
		} else {
			w.Write([]byte(`[]`))
		}
	})
	mux.HandleFunc("/projects/104", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": 104, "title": "Weekend Chess"}`))
	})
	mux.HandleFunc("/projects/205", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": 205, "title": "Maze Runner"}`))
	})
	mux.HandleFunc("/104", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"targets": []}`))
	})
	mux.HandleFunc("/205", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"targets": []}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	dl, dir := newTestDownloader(t, server.URL, false)

	summary, err := dl.DownloadAll(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 0, summary.Failed)

	assert.FileExists(t, filepath.Join(dir, "Weekend Chess_104.json"))
	assert.FileExists(t, filepath.Join(dir, "Maze Runner_205.json"))

	// A second run skips everything.
	summary, err = dl.DownloadAll(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Succeeded)
	assert.Equal(t, 2, summary.Skipped)
}
