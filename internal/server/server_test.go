package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrhapile/metadeploy/internal/pipeline"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	m.Run()
}

type stubRunner struct {
	out *pipeline.Outcome
	err error
	got pipeline.Request
}

func (s *stubRunner) Run(_ context.Context, req pipeline.Request) (*pipeline.Outcome, error) {
	s.got = req
	return s.out, s.err
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHome(t *testing.T) {
	w := do(t, New(&stubRunner{}, nil).Handler(), http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "running")
}

func TestHealth(t *testing.T) {
	w := do(t, New(&stubRunner{}, nil).Handler(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestDeploy_Success(t *testing.T) {
	runner := &stubRunner{out: &pipeline.Outcome{RunID: "run-1", Location: "https://status.example.com"}}
	w := do(t, New(runner, nil).Handler(), http.MethodPost, "/deploy",
		`{"jira_summary":"Employee","jira_description":"Create Employee object"}`)

	require.Equal(t, http.StatusOK, w.Code)
	var resp DeployResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, DeployResponse{Status: "success", DeploymentURL: "https://status.example.com", RunID: "run-1"}, resp)
	assert.Equal(t, pipeline.Request{Summary: "Employee", Description: "Create Employee object"}, runner.got)
}

func TestDeploy_Failure(t *testing.T) {
	runner := &stubRunner{err: &pipeline.RunError{Stage: pipeline.StageAssistant, Err: errors.New("failed to get access token: 401")}}
	w := do(t, New(runner, nil).Handler(), http.MethodPost, "/deploy", `{"jira_summary":"x"}`)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "assistant failed: failed to get access token: 401", resp.Message)
}

func TestDeploy_BadBody(t *testing.T) {
	runner := &stubRunner{}
	w := do(t, New(runner, nil).Handler(), http.MethodPost, "/deploy", `{not json`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"error"`)
	assert.Equal(t, pipeline.Request{}, runner.got, "runner not called")
}

// overlapRunner records the highest number of runs in flight at once.
type overlapRunner struct {
	active, peak atomic.Int32
}

func (r *overlapRunner) Run(_ context.Context, _ pipeline.Request) (*pipeline.Outcome, error) {
	n := r.active.Add(1)
	defer r.active.Add(-1)
	for {
		p := r.peak.Load()
		if n <= p || r.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return &pipeline.Outcome{RunID: "r"}, nil
}

func TestDeploy_SerializesRuns(t *testing.T) {
	runner := &overlapRunner{}
	h := New(runner, nil).Handler()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := do(t, h, http.MethodPost, "/deploy", `{"jira_summary":"x"}`)
			assert.Equal(t, http.StatusOK, w.Code)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), runner.peak.Load(), "runs share one work dir and must not overlap")
}

func TestListenAndServe_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(&stubRunner{}, nil).ListenAndServe(ctx, "127.0.0.1:0") }()
	cancel()
	assert.NoError(t, <-done)
}
