// Connection handler. Owns one transport-level byte stream (plain or TLS;
// selecting between them happens entirely outside this package, see
// contrib/tls), pipes inbound bytes into the request parser, and drives
// the router once headers are ready. Errors surfacing from parsing or
// dispatch are classified and translated into the matching HTTP response
// or connection teardown.

package hannahttp

import (
	"errors"
	"io"
	"net"
	"strconv"
	"sync/atomic"
)

// Transport is what ServerConn needs from the underlying socket: net.Conn
// satisfies it directly, so plain TCP, Unix domain sockets, and *tls.Conn
// are all accepted without adaptation.
type Transport interface {
	io.Reader
	io.Writer
	io.Closer
	RemoteAddr() net.Addr
}

var connCounter atomic.Int64

// ServerConn owns one connection's worth of state: the byte stream, the
// reusable request parser, and the router it dispatches to. A ServerConn
// serves at most one request at a time and never touches another
// connection's state.
type ServerConn struct {
	id        int64
	transport Transport
	router    *Router
	logger    Logger
	req       *Request

	// MaxBodyBytes bounds BufferedBody allocations for requests whose
	// Content-Length the connection handler installs automatically.
	// Zero means unlimited.
	MaxBodyBytes int64

	// bodyRejected is set by installBody when the current request's
	// Content-Length exceeds MaxBodyBytes. The body is still drained (via
	// a DiscardBody) so the wire stays in sync; handleRequest turns this
	// into a 413 instead of dispatching to the router.
	bodyRejected bool
}

// NewServerConn wires transport to router. logger may be nil, in which
// case DefaultLogger (a no-op) is used.
func NewServerConn(transport Transport, router *Router, logger Logger) *ServerConn {
	if logger == nil {
		logger = DefaultLogger
	}
	c := &ServerConn{
		id:        connCounter.Add(1),
		transport: transport,
		router:    router,
		logger:    logger,
		req:       NewRequest(),
	}
	c.req.On(EventHeadersLoaded, c.installBody)
	return c
}

// installBody is the connection handler's default body-installation
// policy: inspect Content-Length and, if present and nonzero, buffer
// exactly that many bytes. Requests with no Content-Length are treated as
// bodyless, mirroring how most HTTP/1.1 servers behave absent chunked
// request bodies (not supported by this engine). A Content-Length past
// MaxBodyBytes still gets a body installed, a DiscardBody that drains
// the bytes without keeping them, so the parser stays in sync with the
// wire instead of mistaking the tail of a rejected body for the next
// pipelined request-line; handleRequest answers 413 once it's drained.
func (c *ServerConn) installBody() {
	c.bodyRejected = false
	raw := c.req.Header.Get("Content-Length")
	if raw == "" {
		return
	}
	size, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || size < 0 {
		return
	}
	if size == 0 {
		return
	}
	if c.MaxBodyBytes > 0 && size > c.MaxBodyBytes {
		c.bodyRejected = true
		c.req.ExpectBody(NewDiscardBody(size))
		return
	}
	c.req.ExpectBody(NewBufferedBody(size))
}

// remoteLabel renders the peer's network family, address, and port for
// inclusion in error logs.
func (c *ServerConn) remoteLabel() string {
	addr := c.transport.RemoteAddr()
	if addr == nil {
		return "unknown"
	}
	host, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.Network() + "://" + addr.String()
	}
	return addr.Network() + "://" + host + ":" + port
}

// Serve reads from the transport, feeds the parser, and dispatches
// completed requests through the router until the connection closes or an
// unrecoverable error occurs. It always closes the transport before
// returning.
func (c *ServerConn) Serve() {
	defer c.transport.Close()

	buf := make([]byte, 64*1024)
	for {
		n, readErr := c.transport.Read(buf)
		if n > 0 {
			if !c.absorb(buf[:n]) {
				return
			}
		}
		if readErr != nil {
			if !errors.Is(readErr, io.EOF) {
				c.logger.Errorf("networking error from %s: %v", c.remoteLabel(), &NetworkingError{Op: "read", Err: readErr})
			}
			return
		}
	}
}

// absorb feeds data into the parser and processes every request that
// becomes complete as a result, including ones pipelined back-to-back in
// the same read. It returns false if the connection should be torn down.
func (c *ServerConn) absorb(data []byte) bool {
	if err := c.req.Feed(data); err != nil {
		c.handleParseError(err)
		return false
	}
	if c.req.Fatal != nil {
		c.logger.Errorf("invariant violation on %s: %v", c.remoteLabel(), c.req.Fatal)
		return false
	}
	for c.req.State() == RequestFinished {
		if !c.handleRequest() {
			return false
		}
		if err := c.req.Next(); err != nil {
			c.handleParseError(err)
			return false
		}
		if c.req.Fatal != nil {
			c.logger.Errorf("invariant violation on %s: %v", c.remoteLabel(), c.req.Fatal)
			return false
		}
	}
	return true
}

// handleRequest builds a Response for the just-completed request, runs it
// through the router, and finishes it if the router didn't. It returns
// true if the connection should stay open for another pipelined request.
func (c *ServerConn) handleRequest() (keepAlive bool) {
	req := c.req
	req.Bag.Set(RemoteAddrBagKey, c.remoteLabel())
	resp := NewResponse(req, c.transport)
	if req.Method == MethodHEAD {
		resp.SetExcludeBody(true)
	}

	if c.bodyRejected {
		c.bodyRejected = false
		c.respondSafely(resp, StatusContentTooLarge, "request body exceeds the configured limit")
		return resp.ConnectionPreference() == ConnectionKeepAlive
	}

	violated := c.runRouter(resp)
	if violated != nil {
		c.logger.Errorf("invariant violation on %s: %v", c.remoteLabel(), violated)
		if resp.State() == WritingStatus {
			resp.SetConnectionPreference(ConnectionClose)
			c.respondSafely(resp, StatusInternalServerError, "internal error")
		}
		return false
	}

	if resp.State() != Finished {
		if resp.State() == WritingStatus {
			// No rule matched and none produced a response: default 404.
			c.respondSafely(resp, StatusNotFound, "not found")
		} else {
			_ = resp.EndBody()
		}
	}
	return resp.ConnectionPreference() == ConnectionKeepAlive
}

// runRouter invokes the router, converting an InvariantViolation panic
// (WriteStatus called twice, WriteBody in the wrong state, ...) into a
// returned error instead of crashing the whole server process.
func (c *ServerConn) runRouter(resp *Response) (violation error) {
	defer func() {
		if rec := recover(); rec != nil {
			if iv, ok := rec.(*InvariantViolation); ok {
				violation = iv
				return
			}
			panic(rec)
		}
	}()
	c.router.Handle(c.req, resp)
	return nil
}

func (c *ServerConn) respondSafely(resp *Response, status int, message string) {
	defer func() { recover() }() // response may already be too far along to touch
	_ = resp.Text(message, status)
}

// handleParseError classifies a parser error and, when the response can
// still be started, sends the matching diagnostic before the connection is
// torn down.
func (c *ServerConn) handleParseError(err error) {
	resp := NewResponse(c.req, c.transport)
	resp.SetConnectionPreference(ConnectionClose)

	var syntaxErr *SyntaxError
	var versionErr *VersionNotSupportedError
	var invariant *InvariantViolation
	switch {
	case errors.As(err, &invariant):
		c.logger.Errorf("invariant violation on %s: %v", c.remoteLabel(), invariant)
	case errors.As(err, &syntaxErr):
		c.logger.Errorf("syntax error from %s: %v", c.remoteLabel(), syntaxErr)
		c.respondSafely(resp, StatusBadRequest, "bad request: "+syntaxErr.Error())
	case errors.As(err, &versionErr):
		c.logger.Errorf("unsupported version from %s: %v", c.remoteLabel(), versionErr)
		c.respondSafely(resp, StatusHTTPVersionNotSupported, "version not supported: "+versionErr.Error())
	default:
		c.logger.Errorf("networking error from %s: %v", c.remoteLabel(), err)
	}
}
