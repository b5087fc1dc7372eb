// Package integration exercises the full flow against a mock of the
// Scratch web services: login, listing, metadata and bundle download.
package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// MockProject is one project the mock server knows about.
type MockProject struct {
	ID       int64
	Title    string
	Shared   bool
	Token    string
	Manifest string
	Assets   map[string][]byte
}

// MockScratchServer fakes the Scratch site, API, projects and assets
// services on a single httptest server.
type MockScratchServer struct {
	Server *httptest.Server

	Username string
	Password string

	mu       sync.Mutex
	projects []MockProject
	requests []string
}

// NewMockScratchServer starts the mock with one known account.
func NewMockScratchServer(username, password string) *MockScratchServer {
	m := &MockScratchServer{
		Username: username,
		Password: password,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/csrf_token/", m.handleCSRF)
	mux.HandleFunc("/accounts/login/", m.handleLogin)
	mux.HandleFunc("/site-api/projects/all/", m.handleMyStuff)
	mux.HandleFunc("/internalapi/asset/", m.handleAsset)
	mux.HandleFunc("/users/", m.handleUser)
	mux.HandleFunc("/projects/", m.handleProjectMeta)
	mux.HandleFunc("/", m.handleManifest)

	m.Server = httptest.NewServer(m.record(mux))
	return m
}

// Close shuts the mock down.
func (m *MockScratchServer) Close() {
	m.Server.Close()
}

// URL returns the base URL of the mock.
func (m *MockScratchServer) URL() string {
	return m.Server.URL
}

// AddProject registers a project.
func (m *MockScratchServer) AddProject(p MockProject) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects = append(m.projects, p)
}

// Requests returns the request lines seen so far.
func (m *MockScratchServer) Requests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.requests...)
}

func (m *MockScratchServer) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.requests = append(m.requests, r.Method+" "+r.URL.Path)
		m.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (m *MockScratchServer) handleCSRF(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: "scratchcsrftoken", Value: "mock-csrf", Path: "/"})
	w.WriteHeader(http.StatusOK)
}

func (m *MockScratchServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("X-CSRFToken") != "mock-csrf" {
		w.WriteHeader(http.StatusForbidden)
		return
	}

	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if body.Username != m.Username || body.Password != m.Password {
		fmt.Fprint(w, `[{"username": "", "token": "", "msg": "Incorrect username or password."}]`)
		return
	}

	http.SetCookie(w, &http.Cookie{Name: "scratchsessionsid", Value: "mock-session", Path: "/"})
	fmt.Fprintf(w, `[{"username": %q, "token": "mock-token", "msg": ""}]`, m.Username)
}

func (m *MockScratchServer) handleUser(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/users/")

	if strings.HasSuffix(name, "/projects") {
		m.handleSharedProjects(w, r)
		return
	}
	if name != m.Username {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"id": 1, "username": %q}`, m.Username)
}

func (m *MockScratchServer) handleMyStuff(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie("scratchsessionsid"); err != nil || cookie.Value != "mock-session" {
		w.WriteHeader(http.StatusForbidden)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if r.URL.Query().Get("page") != "1" {
		fmt.Fprint(w, "[]")
		return
	}

	entries := make([]map[string]interface{}, 0, len(m.projects))
	for _, p := range m.projects {
		entries = append(entries, map[string]interface{}{
			"pk": p.ID,
			"fields": map[string]interface{}{
				"title":       p.Title,
				"isPublished": p.Shared,
			},
		})
	}
	json.NewEncoder(w).Encode(entries)
}

func (m *MockScratchServer) handleSharedProjects(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if r.URL.Query().Get("offset") != "0" {
		fmt.Fprint(w, "[]")
		return
	}

	entries := make([]map[string]interface{}, 0)
	for _, p := range m.projects {
		if p.Shared {
			entries = append(entries, map[string]interface{}{"id": p.ID, "title": p.Title})
		}
	}
	json.NewEncoder(w).Encode(entries)
}

func (m *MockScratchServer) handleProjectMeta(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/projects/")

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.projects {
		if fmt.Sprintf("%d", p.ID) == id {
			if !p.Shared && r.Header.Get("X-Token") != "mock-token" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"id": %d, "title": %q, "public": %t, "project_token": %q}`,
				p.ID, p.Title, p.Shared, p.Token)
			return
		}
	}
	w.WriteHeader(http.StatusNotFound)
}

func (m *MockScratchServer) handleManifest(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/")

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.projects {
		if fmt.Sprintf("%d", p.ID) == id {
			if p.Token != "" && r.URL.Query().Get("token") != p.Token {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, p.Manifest)
			return
		}
	}
	w.WriteHeader(http.StatusNotFound)
}

func (m *MockScratchServer) handleAsset(w http.ResponseWriter, r *http.Request) {
	// Path shape: /internalapi/asset/<name>/get/
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 4 {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	name := parts[2]

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.projects {
		if data, ok := p.Assets[name]; ok {
			w.Write(data)
			return
		}
	}
	w.WriteHeader(http.StatusNotFound)
}
