package llamaparse_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/fyrsmithlabs/webingest/internal/llamaparse"
)

// fakeParser is an httptest stand-in for the LlamaParse API.
type fakeParser struct {
	mu            *testing.T
	jobID         string
	statuses      []string // returned in sequence; last repeats
	statusCalls   int
	markdown      string
	uploadStatus  int
	gotAuthHeader string
}

func (f *fakeParser) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/parsing/upload", func(w http.ResponseWriter, r *http.Request) {
		f.gotAuthHeader = r.Header.Get("Authorization")
		if f.uploadStatus != 0 {
			w.WriteHeader(f.uploadStatus)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if _, _, err := r.FormFile("file"); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": f.jobID})
	})
	mux.HandleFunc("GET /api/parsing/job/{id}/result/markdown", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"markdown": f.markdown})
	})
	mux.HandleFunc("GET /api/parsing/job/{id}", func(w http.ResponseWriter, r *http.Request) {
		idx := f.statusCalls
		if idx >= len(f.statuses) {
			idx = len(f.statuses) - 1
		}
		f.statusCalls++
		_ = json.NewEncoder(w).Encode(map[string]string{"status": f.statuses[idx]})
	})
	return mux
}

func newClient(t *testing.T, baseURL string, maxPolls int) *llamaparse.Client {
	t.Helper()
	client, err := llamaparse.NewClient(llamaparse.Config{
		APIKey:       "llx-test",
		BaseURL:      baseURL,
		PollInterval: 5 * time.Millisecond,
		MaxPolls:     maxPolls,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return client
}

func writeDummyPDF(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "combined_output.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 fake"), 0o644))
	return path
}

func TestProcess_Success(t *testing.T) {
	fake := &fakeParser{
		jobID:    "job-123",
		statuses: []string{llamaparse.StatusPending, llamaparse.StatusPending, llamaparse.StatusSuccess},
		markdown: "# Structured\n\nRefunds are processed within 14 days.",
	}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := newClient(t, srv.URL, 10)
	pdfPath := writeDummyPDF(t)

	mdPath, err := client.Process(context.Background(), pdfPath)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(filepath.Dir(pdfPath), "structured_data.md"), mdPath)
	content, err := os.ReadFile(mdPath)
	require.NoError(t, err)
	assert.Equal(t, fake.markdown, string(content))
	assert.Equal(t, "Bearer llx-test", fake.gotAuthHeader)
	assert.Equal(t, 3, fake.statusCalls)
}

func TestProcess_JobFailed(t *testing.T) {
	fake := &fakeParser{
		jobID:    "job-456",
		statuses: []string{llamaparse.StatusFailed},
	}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := newClient(t, srv.URL, 10)
	pdfPath := writeDummyPDF(t)

	_, err := client.Process(context.Background(), pdfPath)
	assert.ErrorIs(t, err, llamaparse.ErrJobFailed)

	// No result file is written on failure.
	_, statErr := os.Stat(filepath.Join(filepath.Dir(pdfPath), "structured_data.md"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestProcess_MissingJobID(t *testing.T) {
	fake := &fakeParser{jobID: ""}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := newClient(t, srv.URL, 10)

	_, err := client.Process(context.Background(), writeDummyPDF(t))
	assert.ErrorIs(t, err, llamaparse.ErrMissingJobID)
}

func TestProcess_UploadHTTPError(t *testing.T) {
	fake := &fakeParser{uploadStatus: http.StatusInternalServerError}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := newClient(t, srv.URL, 10)

	_, err := client.Process(context.Background(), writeDummyPDF(t))
	assert.ErrorIs(t, err, llamaparse.ErrUnexpectedStatus)
}

func TestProcess_PollTimeout(t *testing.T) {
	fake := &fakeParser{
		jobID:    "job-789",
		statuses: []string{llamaparse.StatusPending},
	}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := newClient(t, srv.URL, 3)

	_, err := client.Process(context.Background(), writeDummyPDF(t))
	assert.ErrorIs(t, err, llamaparse.ErrPollTimeout)
	assert.Equal(t, 3, fake.statusCalls)
}

func TestProcess_ContextCancelled(t *testing.T) {
	fake := &fakeParser{
		jobID:    "job-ctx",
		statuses: []string{llamaparse.StatusPending},
	}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := newClient(t, srv.URL, 1000)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Process(ctx, writeDummyPDF(t))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := llamaparse.NewClient(llamaparse.Config{}, zaptest.NewLogger(t))
	assert.Error(t, err)
}
