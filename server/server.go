// Package server is the thin external collaborator the core engine
// deliberately knows nothing about: accept-loop plumbing that turns a
// net.Listener into a stream of hannahttp.ServerConn.Serve() calls, one
// goroutine per connection. Selecting plain TCP, Unix domain sockets, or
// TLS is entirely the caller's job: construct whatever net.Listener fits
// (net.Listen("tcp", ...), tls.NewListener(...), or
// contrib/tls.Manager.TLSConfig() wrapped in one) and hand it to New.
package server

import (
	"net"
	"sync/atomic"

	"github.com/skywa04885/hannahttp"
)

// Server accepts connections on one listener and serves each with its own
// hannahttp.ServerConn, bound to a shared router and logger.
type Server struct {
	listener net.Listener
	router   *hannahttp.Router
	logger   hannahttp.Logger

	// MaxConcurrentConns caps how many connections this server will serve
	// at once; 0 means unbounded. Connections accepted past the limit are
	// closed immediately rather than queued.
	MaxConcurrentConns int32
	// MaxBodyBytes is copied onto every ServerConn this server creates.
	MaxBodyBytes int64

	concurrentConns atomic.Int32
	shutdown        atomic.Bool
}

// New returns a Server that will accept on listener and dispatch requests
// through router. logger may be nil (DefaultLogger, a no-op, is used).
func New(listener net.Listener, router *hannahttp.Router, logger hannahttp.Logger) *Server {
	return &Server{listener: listener, router: router, logger: logger}
}

// Serve runs the accept loop until the listener is closed (typically via
// Close from another goroutine). It always returns nil once
// the listener closes cleanly during shutdown; any other Accept error is
// returned to the caller.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.shutdown.Load() {
				return nil
			}
			return err
		}

		if s.MaxConcurrentConns > 0 {
			if n := s.concurrentConns.Add(1); n > s.MaxConcurrentConns {
				s.concurrentConns.Add(-1)
				conn.Close()
				continue
			}
		}

		sc := hannahttp.NewServerConn(conn, s.router, s.logger)
		sc.MaxBodyBytes = s.MaxBodyBytes
		go func() {
			defer func() {
				if s.MaxConcurrentConns > 0 {
					s.concurrentConns.Add(-1)
				}
			}()
			sc.Serve()
		}()
	}
}

// Close stops the accept loop by closing the underlying listener. In-flight
// connections are left to finish on their own; there is no built-in
// timeout to wait for them.
func (s *Server) Close() error {
	s.shutdown.Store(true)
	return s.listener.Close()
}
