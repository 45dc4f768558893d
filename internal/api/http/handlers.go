// Package http serves the daemon's admin endpoint: health, Prometheus
// metrics, and the live session, terminal and process tables.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/GriffinCanCode/AgentOS/sshd/internal/bridge"
	"github.com/GriffinCanCode/AgentOS/sshd/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/sshd/internal/providers/process"
	"github.com/GriffinCanCode/AgentOS/sshd/internal/providers/terminal"
	"github.com/GriffinCanCode/AgentOS/sshd/internal/shared/id"
)

// Sessions is the session registry view the handlers need
type Sessions interface {
	List() []bridge.Info
	Count() int
	Destroy(ctx context.Context, sid id.SessionID) bool
}

// TerminalLister lists allocated terminals
type TerminalLister interface {
	List() []terminal.Info
}

// ProcessLister lists running shells
type ProcessLister interface {
	List() []process.Info
}

// LogLevel reads and changes the daemon's log level at runtime
type LogLevel interface {
	Level() zapcore.Level
	SetLevel(level string) error
}

// Handlers contains all HTTP handlers
type Handlers struct {
	sessions  Sessions
	terminals TerminalLister
	processes ProcessLister
	metrics   *monitoring.Metrics
	levels    LogLevel
	logger    *zap.Logger
	version   string
	startedAt time.Time
}

// NewHandlers creates a new handler set
func NewHandlers(sessions Sessions, terminals TerminalLister, processes ProcessLister, metrics *monitoring.Metrics, levels LogLevel, logger *zap.Logger, version string) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		sessions:  sessions,
		terminals: terminals,
		processes: processes,
		metrics:   metrics,
		levels:    levels,
		logger:    logger,
		version:   version,
		startedAt: time.Now(),
	}
}

// Health reports liveness and the number of live sessions
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"service":        "sshd",
		"version":        h.version,
		"sessions":       h.sessions.Count(),
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
	})
}

// MetricsJSON returns the metric snapshot
func (h *Handlers) MetricsJSON(c *gin.Context) {
	c.JSON(http.StatusOK, h.metrics.Snapshot())
}

// ListSessions lists live sessions, oldest first
func (h *Handlers) ListSessions(c *gin.Context) {
	sessions := h.sessions.List()
	if sessions == nil {
		sessions = []bridge.Info{}
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions, "count": len(sessions)})
}

// GetSession returns one live session
func (h *Handlers) GetSession(c *gin.Context) {
	sid := id.SessionID(c.Param("id"))
	for _, info := range h.sessions.List() {
		if info.ID == sid {
			c.JSON(http.StatusOK, info)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
}

// DestroySession hangs up a live session
func (h *Handlers) DestroySession(c *gin.Context) {
	sid := id.SessionID(c.Param("id"))
	if !id.IsValid(sid.String()) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}
	if !h.sessions.Destroy(c.Request.Context(), sid) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	h.logger.Info("Session hung up by admin", zap.String("session_id", sid.String()), zap.String("client_ip", c.ClientIP()))
	c.JSON(http.StatusAccepted, gin.H{"id": sid, "status": "hangup_sent"})
}

// ListTerminals lists allocated terminals
func (h *Handlers) ListTerminals(c *gin.Context) {
	terminals := h.terminals.List()
	if terminals == nil {
		terminals = []terminal.Info{}
	}
	c.JSON(http.StatusOK, gin.H{"terminals": terminals, "count": len(terminals)})
}

// ListProcesses lists running shells
func (h *Handlers) ListProcesses(c *gin.Context) {
	processes := h.processes.List()
	if processes == nil {
		processes = []process.Info{}
	}
	c.JSON(http.StatusOK, gin.H{"processes": processes, "count": len(processes)})
}

type logLevelRequest struct {
	Level string `json:"level" binding:"required"`
}

// GetLogLevel reports the current log level
func (h *Handlers) GetLogLevel(c *gin.Context) {
	if h.levels == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "log level is not adjustable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"level": h.levels.Level().String()})
}

// SetLogLevel changes the log level without a restart
func (h *Handlers) SetLogLevel(c *gin.Context) {
	if h.levels == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "log level is not adjustable"})
		return
	}

	var req logLevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	previous := h.levels.Level()
	if err := h.levels.SetLevel(req.Level); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.logger.Info("Log level changed by admin",
		zap.Stringer("from", previous),
		zap.Stringer("to", h.levels.Level()),
		zap.String("client_ip", c.ClientIP()),
	)
	c.JSON(http.StatusOK, gin.H{"level": h.levels.Level().String()})
}
