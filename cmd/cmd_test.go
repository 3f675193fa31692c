package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/facial-recognition/internal/database"
	"github.com/kozaktomas/facial-recognition/internal/database/mock"
	"github.com/kozaktomas/facial-recognition/internal/facial"
	"github.com/kozaktomas/facial-recognition/internal/strategy"
	"github.com/rs/zerolog"
)

func TestCollectEnrollJobs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"bob.PNG", "alice.jpg", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "nested.png"), 0o700); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}

	jobs, err := collectEnrollJobs(dir)
	if err != nil {
		t.Fatalf("collectEnrollJobs() error = %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %+v", jobs)
	}
	if jobs[0].username != "alice" || jobs[1].username != "bob" {
		t.Errorf("unexpected usernames %q, %q", jobs[0].username, jobs[1].username)
	}
}

func TestEnrollFiles(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "alice.png")
	if err := os.WriteFile(good, []byte("any bytes work with the mock strategy"), 0o600); err != nil {
		t.Fatalf("failed to write image: %v", err)
	}

	store := mock.NewMockStore()
	svc := facial.NewService(strategy.NewMock(), store, nil)
	jobs := []enrollJob{
		{username: "alice", path: good},
		{username: "alice", path: good},
		{username: "ghost", path: filepath.Join(dir, "missing.png")},
	}

	summary := enrollFiles(context.Background(), svc, jobs, nil)

	if summary.created != 1 || summary.updated != 1 || len(summary.failed) != 1 {
		t.Errorf("unexpected summary %+v", summary)
	}

	var out bytes.Buffer
	printEnrollSummary(&out, summary)
	if !strings.Contains(out.String(), "Created: 1, updated: 1, failed: 1") {
		t.Errorf("unexpected summary output %q", out.String())
	}
	if tpl, _ := store.FindTemplateByUser(context.Background(), 1); tpl == nil || tpl.SourceImageName != "alice.png" {
		t.Errorf("expected stored source name alice.png, got %+v", tpl)
	}
}

func TestPrintTemplates(t *testing.T) {
	templates := []database.Template{
		{ID: 1, Username: "alice", Embedding: make([]byte, 16), SourceImageName: "a.png", EnrolledAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
	}

	var table bytes.Buffer
	if err := printTemplates(&table, templates, false); err != nil {
		t.Fatalf("printTemplates() error = %v", err)
	}
	for _, want := range []string{"USERNAME", "alice", "a.png", "2024-01-02T03:04:05Z", "Total: 1 templates"} {
		if !strings.Contains(table.String(), want) {
			t.Errorf("expected %q in output:\n%s", want, table.String())
		}
	}

	var js bytes.Buffer
	if err := printTemplates(&js, templates, true); err != nil {
		t.Fatalf("printTemplates(json) error = %v", err)
	}
	var rows []map[string]any
	if err := json.Unmarshal(js.Bytes(), &rows); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(rows) != 1 || rows[0]["embedding_bytes"] != float64(16) {
		t.Errorf("unexpected JSON rows %v", rows)
	}
	if _, ok := rows[0]["embedding"]; ok {
		t.Error("embedding bytes must not be printed")
	}

	var empty bytes.Buffer
	if err := printTemplates(&empty, nil, false); err != nil {
		t.Fatalf("printTemplates(empty) error = %v", err)
	}
	if !strings.Contains(empty.String(), "No templates found.") {
		t.Errorf("unexpected empty output %q", empty.String())
	}
}

// drainingServer mimics http.Server: Start returns as soon as Shutdown begins,
// while Shutdown keeps blocking until the in-flight work is released.
type drainingServer struct {
	shutdownStarted chan struct{}
	release         chan struct{}
	drained         bool
	startErr        error
}

func (s *drainingServer) Start() error {
	if s.startErr != nil {
		return s.startErr
	}
	<-s.shutdownStarted
	return nil
}

func (s *drainingServer) Shutdown(ctx context.Context) error {
	close(s.shutdownStarted)
	<-s.release
	s.drained = true
	return nil
}

func TestServeUntilDone_WaitsForShutdown(t *testing.T) {
	srv := &drainingServer{shutdownStarted: make(chan struct{}), release: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())

	result := make(chan error, 1)
	go func() { result <- serveUntilDone(ctx, srv, zerolog.Nop()) }()

	cancel()
	<-srv.shutdownStarted

	select {
	case err := <-result:
		t.Fatalf("serveUntilDone returned before shutdown finished: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(srv.release)
	select {
	case err := <-result:
		if err != nil {
			t.Fatalf("serveUntilDone() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serveUntilDone did not return after shutdown")
	}
	if !srv.drained {
		t.Error("expected shutdown to complete before returning")
	}
}

func TestServeUntilDone_StartError(t *testing.T) {
	srv := &drainingServer{startErr: errors.New("address already in use")}

	err := serveUntilDone(context.Background(), srv, zerolog.Nop())

	if err == nil || !strings.Contains(err.Error(), "address already in use") {
		t.Errorf("expected start error, got %v", err)
	}
}
