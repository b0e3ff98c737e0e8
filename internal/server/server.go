// Package server implements the Listener and Connection Handler of
// spec.md §4.1-4.2, generalized from the teacher's main.go acceptLoop
// and peer.go read loop: accept TCP connections indefinitely, hand each
// to an independent goroutine that reads newline-terminated messages
// and dispatches them through a protocol.Handler.
package server

import (
	"bufio"
	"context"
	"net"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/herdwatch/proxyherd/internal/protocol"
)

// Server binds one daemon's gossip/client-facing TCP port.
type Server struct {
	Name    string
	Addr    string
	Handler *protocol.Handler
	Log     *logrus.Logger
}

// New builds a Server for name, listening on addr and dispatching
// through handler.
func New(name, addr string, handler *protocol.Handler, log *logrus.Logger) *Server {
	return &Server{Name: name, Addr: addr, Handler: handler, Log: log}
}

// ListenAndServe binds Addr and accepts connections until ctx is
// cancelled. Every Accept failure is logged and the loop carries on
// accepting; it does not stop the listener, matching
// spec.md §4.1: "Accept failures are logged and do not terminate the
// listener."
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	defer ln.Close()

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	s.Log.WithFields(logrus.Fields{"server": s.Name, "addr": s.Addr}).Info("listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			s.Log.WithError(err).Warn("accept failed")
			continue
		}

		go s.handleConn(ctx, conn)
	}
}

// handleConn implements the Connection Handler of spec.md §4.2: read
// newline-terminated records until EOF or a socket error, dispatch
// each through Handler, and write back any reply before reading the
// next line — preserving per-connection response ordering per spec.md
// §5.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)
	for {
		raw, err := reader.ReadString('\n')
		if raw == "" && err != nil {
			return
		}

		line := strings.TrimRight(raw, "\r\n")
		reply, ok := s.Handler.HandleLine(ctx, line)
		if ok {
			if _, werr := conn.Write([]byte(reply)); werr != nil {
				return
			}
		}

		if err != nil {
			// TransportFailure or clean EOF: the partial final line (if
			// any) was already handled above; nothing further to read.
			return
		}
	}
}
