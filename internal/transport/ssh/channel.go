package ssh

import (
	"context"

	"go.uber.org/zap"
	gossh "golang.org/x/crypto/ssh"

	"github.com/GriffinCanCode/AgentOS/sshd/internal/bridge"
)

// channel serves the requests of one session channel
type channel struct {
	server  *Server
	conn    *gossh.ServerConn
	ch      gossh.Channel
	env     *Environment
	logger  *zap.Logger
	session *bridge.Session
}

func newChannel(s *Server, conn *gossh.ServerConn, ch gossh.Channel, logger *zap.Logger) *channel {
	return &channel{
		server: s,
		conn:   conn,
		ch:     ch,
		env:    NewEnvironment(conn.User()),
		logger: logger,
	}
}

// serve handles requests until the client closes the channel, then hangs up
// the shell
func (c *channel) serve(ctx context.Context, reqs <-chan *gossh.Request) {
	for req := range reqs {
		ok := c.handle(ctx, req)
		if req.WantReply {
			req.Reply(ok, nil)
		}
		if req.Type == "shell" && !ok {
			c.ch.Close()
		}
	}

	if c.session != nil {
		c.session.Destroy(context.WithoutCancel(ctx))
	} else {
		c.ch.Close()
	}
}

func (c *channel) handle(ctx context.Context, req *gossh.Request) bool {
	switch req.Type {
	case "pty-req":
		var p ptyRequest
		if err := gossh.Unmarshal(req.Payload, &p); err != nil {
			c.logger.Debug("Malformed pty-req", zap.Error(err))
			return false
		}
		c.env.Set(bridge.EnvTerm, p.Term)
		c.env.SetSize(p.Columns, p.Rows)
		c.env.SetModes(ResolveModes(string(c.conn.ClientVersion()), DecodeModes([]byte(p.Modes))))
		return true

	case "env":
		var e envRequest
		if err := gossh.Unmarshal(req.Payload, &e); err != nil {
			return false
		}
		return c.env.SetFromClient(e.Name, e.Value)

	case "window-change":
		var w windowChangeRequest
		if err := gossh.Unmarshal(req.Payload, &w); err != nil {
			return false
		}
		c.env.SetSize(w.Columns, w.Rows)
		c.env.Signal(bridge.SignalWinch)
		return true

	case "signal":
		var sr signalRequest
		if err := gossh.Unmarshal(req.Payload, &sr); err != nil {
			return false
		}
		sig, ok := ParseSignal(sr.Name)
		if !ok {
			c.logger.Debug("Ignoring unknown signal", zap.String("signal", sr.Name))
			return false
		}
		c.env.Signal(sig)
		return true

	case "shell":
		return c.startShell(ctx)

	default:
		c.logger.Debug("Refused channel request", zap.String("type", req.Type))
		return false
	}
}

func (c *channel) startShell(ctx context.Context) bool {
	if c.session != nil {
		return false
	}

	deps := c.server.deps
	deps.Logger = c.logger
	s := bridge.NewSession(c.server.cfg.Shell, deps)
	s.SetInputStream(c.ch)
	s.SetOutputStream(c.ch)
	s.SetErrorStream(c.ch.Stderr())
	s.SetExitCallback(c.exit)
	c.session = s
	c.server.sessions.Track(s)

	if err := s.Start(ctx, c.env); err != nil {
		c.logger.Warn("Shell request failed", zap.String("session_id", s.ID().String()), zap.Error(err))
		return false
	}
	return true
}

// exit reports the status and closes the channel
func (c *channel) exit(status int) {
	payload := gossh.Marshal(&exitStatusRequest{Status: uint32(status)})
	if _, err := c.ch.SendRequest("exit-status", false, payload); err != nil {
		c.logger.Debug("Failed to send exit status", zap.Error(err))
	}
	c.ch.Close()
}
