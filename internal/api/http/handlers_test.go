package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/GriffinCanCode/AgentOS/sshd/internal/api/middleware"
	"github.com/GriffinCanCode/AgentOS/sshd/internal/bridge"
	"github.com/GriffinCanCode/AgentOS/sshd/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/sshd/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/sshd/internal/providers/process"
	"github.com/GriffinCanCode/AgentOS/sshd/internal/providers/terminal"
	"github.com/GriffinCanCode/AgentOS/sshd/internal/shared/id"
)

type MockSessions struct {
	mock.Mock
}

func (m *MockSessions) List() []bridge.Info {
	args := m.Called()
	return args.Get(0).([]bridge.Info)
}

func (m *MockSessions) Count() int {
	return m.Called().Int(0)
}

func (m *MockSessions) Destroy(ctx context.Context, sid id.SessionID) bool {
	return m.Called(ctx, sid).Bool(0)
}

type staticTerminals []terminal.Info

func (s staticTerminals) List() []terminal.Info { return s }

type staticProcesses []process.Info

func (s staticProcesses) List() []process.Info { return s }

func setupRouter(sessions Sessions, terminals TerminalLister, processes ProcessLister) (*gin.Engine, *monitoring.Metrics) {
	return setupRouterWithLevels(sessions, terminals, processes, nil)
}

func setupRouterWithLevels(sessions Sessions, terminals TerminalLister, processes ProcessLister, levels LogLevel) (*gin.Engine, *monitoring.Metrics) {
	gin.SetMode(gin.TestMode)
	metrics := monitoring.NewMetrics()
	h := NewHandlers(sessions, terminals, processes, metrics, levels, nil, "test")
	router := NewRouter(RouterConfig{
		Development: true,
		CORS:        middleware.DefaultCORSConfig(),
	}, h, metrics)
	return router, metrics
}

func do(router http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestHealth(t *testing.T) {
	sessions := new(MockSessions)
	sessions.On("Count").Return(2)
	router, _ := setupRouter(sessions, staticTerminals{}, staticProcesses{})

	w := do(router, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, float64(2), body["sessions"])
	assert.Equal(t, "test", body["version"])
}

func TestListSessions(t *testing.T) {
	sid := id.NewSessionID()
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	sessions := new(MockSessions)
	sessions.On("List").Return([]bridge.Info{{
		ID: sid, User: "alice", Phase: "running", PID: 42, Terminal: 3, Cols: 80, Rows: 24, CreatedAt: created,
	}})
	router, _ := setupRouter(sessions, staticTerminals{}, staticProcesses{})

	w := do(router, http.MethodGet, "/sessions")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Sessions []bridge.Info `json:"sessions"`
		Count    int           `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, sid, body.Sessions[0].ID)
	assert.Equal(t, "running", body.Sessions[0].Phase)

	w = do(router, http.MethodGet, "/sessions/"+sid.String())
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user":"alice"`)

	w = do(router, http.MethodGet, "/sessions/"+id.NewSessionID().String())
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListSessionsEmpty(t *testing.T) {
	sessions := new(MockSessions)
	sessions.On("List").Return([]bridge.Info(nil))
	router, _ := setupRouter(sessions, staticTerminals{}, staticProcesses{})

	w := do(router, http.MethodGet, "/sessions")
	assert.JSONEq(t, `{"sessions":[],"count":0}`, w.Body.String())
}

func TestDestroySession(t *testing.T) {
	live := id.NewSessionID()
	gone := id.NewSessionID()
	sessions := new(MockSessions)
	sessions.On("Destroy", mock.Anything, live).Return(true)
	sessions.On("Destroy", mock.Anything, gone).Return(false)
	router, _ := setupRouter(sessions, staticTerminals{}, staticProcesses{})

	tests := []struct {
		name string
		path string
		want int
	}{
		{"live", "/sessions/" + live.String(), http.StatusAccepted},
		{"unknown", "/sessions/" + gone.String(), http.StatusNotFound},
		{"malformed", "/sessions/not-an-id", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, do(router, http.MethodDelete, tt.path).Code)
		})
	}
	sessions.AssertNumberOfCalls(t, "Destroy", 2)
}

func TestTerminalsAndProcesses(t *testing.T) {
	router, _ := setupRouter(new(MockSessions),
		staticTerminals{{ID: 1, Name: "/dev/pts/4", PID: 99, Cols: 80, Rows: 24}},
		staticProcesses{{PID: 99, Path: "/bin/sh", Terminal: 1}},
	)

	w := do(router, http.MethodGet, "/terminals")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"/dev/pts/4"`)

	w = do(router, http.MethodGet, "/processes")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"path":"/bin/sh"`)
}

func TestMetricsEndpoints(t *testing.T) {
	sessions := new(MockSessions)
	sessions.On("Count").Return(0)
	router, metrics := setupRouter(sessions, staticTerminals{}, staticProcesses{})
	metrics.SessionStarted()

	do(router, http.MethodGet, "/health")

	w := do(router, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "agentos_sshd_sessions_started_total 1"))
	assert.Contains(t, w.Body.String(), `agentos_sshd_http_requests_total{method="GET",path="/health",status="200"} 1`)

	w = do(router, http.MethodGet, "/metrics/json")
	require.Equal(t, http.StatusOK, w.Code)
	var snap monitoring.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, int64(1), snap.ActiveSessions)
}

func TestLogLevel(t *testing.T) {
	levels := logging.NewNop()
	router, _ := setupRouterWithLevels(new(MockSessions), staticTerminals{}, staticProcesses{}, levels)

	w := do(router, http.MethodGet, "/log-level")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"level":"info"}`, w.Body.String())

	tests := []struct {
		name string
		body string
		want int
	}{
		{"debug", `{"level":"debug"}`, http.StatusOK},
		{"unknown level", `{"level":"loud"}`, http.StatusBadRequest},
		{"missing level", `{}`, http.StatusBadRequest},
		{"not json", `level=warn`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/log-level", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
	assert.Equal(t, zapcore.DebugLevel, levels.Level(), "rejected updates leave the level alone")
}

func TestLogLevelNotConfigured(t *testing.T) {
	router, _ := setupRouter(new(MockSessions), staticTerminals{}, staticProcesses{})
	assert.Equal(t, http.StatusNotFound, do(router, http.MethodGet, "/log-level").Code)
}
