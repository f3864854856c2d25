package visualization

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nvandessel/boxes/internal/store"
)

// Server serves run charts and batch data from a journal.
type Server struct {
	journal    store.Journal
	httpServer *http.Server
	listener   net.Listener
	mu         sync.Mutex
	addr       string
}

// NewServer creates a chart server over j.
func NewServer(j store.Journal) *Server {
	return &Server{journal: j}
}

// Addr returns the address the server is listening on (e.g., "localhost:PORT").
// Returns empty string if the server hasn't started yet.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// ListenAndServe starts the HTTP server on an OS-assigned port and blocks
// until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /runs/{id}", s.handleRun)
	mux.HandleFunc("GET /api/runs/{id}/batches", s.handleBatches)

	ln, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	s.mu.Lock()
	s.listener = ln
	s.addr = ln.Addr().String()
	s.httpServer = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	err = s.httpServer.Serve(ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>boxes runs</title></head>
<body><h1>Runs</h1><table>
<tr><th>ID</th><th>Kind</th><th>Status</th><th>Started</th></tr>
{{range .}}<tr><td><a href="/runs/{{.ID}}">{{.ID}}</a></td><td>{{.Kind}}</td><td>{{.Status}}</td><td>{{.StartedAt.Format "2006-01-02 15:04:05"}}</td></tr>
{{end}}</table></body></html>
`))

// handleIndex lists recent runs.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	runs, err := s.journal.ListRuns(r.Context(), 50)
	if err != nil {
		http.Error(w, "journal error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	indexTemplate.Execute(w, runs)
}

// handleRun renders one run's chart page.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	run, batches, ok := s.load(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := Render(w, *run, batches, FormatHTML); err != nil {
		http.Error(w, "render error: "+err.Error(), http.StatusInternalServerError)
	}
}

// handleBatches returns one run's batches as JSON.
func (s *Server) handleBatches(w http.ResponseWriter, r *http.Request) {
	_, batches, ok := s.load(w, r)
	if !ok {
		return
	}
	if batches == nil {
		batches = []store.Batch{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(batches)
}

func (s *Server) load(w http.ResponseWriter, r *http.Request) (*store.Run, []store.Batch, bool) {
	id := r.PathValue("id")
	run, err := s.journal.GetRun(r.Context(), id)
	if errors.Is(err, store.ErrRunNotFound) {
		http.Error(w, "run not found: "+id, http.StatusNotFound)
		return nil, nil, false
	}
	if err != nil {
		http.Error(w, "journal error: "+err.Error(), http.StatusInternalServerError)
		return nil, nil, false
	}
	batches, err := s.journal.Batches(r.Context(), id)
	if err != nil {
		http.Error(w, "journal error: "+err.Error(), http.StatusInternalServerError)
		return nil, nil, false
	}
	return run, batches, true
}
