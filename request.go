// Incremental request parser. Bytes arrive in arbitrary chunks from the
// transport; ParserState tracks how far a single request has progressed
// and Request.Feed drives it forward, firing lifecycle events as each
// stage completes. See RFC 9112 §2-3 for the wire grammar.

package hannahttp

import (
	"bytes"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// ParserState is the state of the per-connection request parser.
type ParserState uint8

const (
	AwaitingRequestLine ParserState = iota
	AwaitingHeaders
	AwaitingBody
	RequestFinished
)

// Event names a point in a request's parse lifecycle that listeners can
// subscribe to.
type Event uint8

const (
	EventLineLoaded Event = iota
	EventHeadersLoaded
	EventBodyLoaded
	EventFinished
	eventCount
)

// Request is created once per connection and reset between pipelined
// requests via Next. Its exported fields become valid incrementally as the
// underlying bytes arrive: Method/Target/Version/URI after EventLineLoaded,
// Header after EventHeadersLoaded, Body content after EventBodyLoaded.
type Request struct {
	Method  Method
	Version string // always "HTTP/1.1" once parsed
	Target  string // raw request-target, as it appeared on the wire
	URI     URI
	Header  *Header
	Body    Body
	Bag     Bag

	state ParserState

	acc []byte // byte accumulator; unconsumed input starts at acc[0:]

	listeners [eventCount][]func()

	// Fatal is set when the parser cannot make progress because the
	// connection state machine reached AwaitingBody with no body
	// installed by any listener; C7 treats this as an InvariantViolation.
	Fatal error

	// LastErr holds the SyntaxError/VersionNotSupportedError that ended
	// this request's parse, if any.
	LastErr error
}

// NewRequest returns a fresh parser ready to receive the first request on
// a connection.
func NewRequest() *Request {
	r := &Request{Header: NewHeader()}
	r.reset()
	return r
}

func (r *Request) reset() {
	r.Method = 0
	r.Version = ""
	r.Target = ""
	r.URI = URI{}
	r.Header.Reset()
	r.Body = nil
	r.Bag.Reset()
	r.state = AwaitingRequestLine
	r.LastErr = nil
}

// On registers fn to be called, in registration order, when event fires
// for the request currently being parsed. Listeners persist across Next.
func (r *Request) On(event Event, fn func()) {
	r.listeners[event] = append(r.listeners[event], fn)
}

func (r *Request) fire(event Event) {
	for _, fn := range r.listeners[event] {
		fn()
	}
}

// State reports the parser's current stage.
func (r *Request) State() ParserState { return r.state }

// ExpectBody installs body as the receiver for the upcoming body bytes.
// Must be called synchronously from within an EventHeadersLoaded listener;
// calling it later has no effect on this request's parse.
func (r *Request) ExpectBody(body Body) {
	if r.state != AwaitingHeaders {
		return
	}
	r.Body = body
	r.state = AwaitingBody
}

// Feed appends newly-arrived transport bytes and advances the parser as
// far as it can go, firing events synchronously as stages complete. It
// returns a SyntaxError or VersionNotSupportedError if the bytes just fed
// broke the wire grammar.
func (r *Request) Feed(data []byte) error {
	r.acc = append(r.acc, data...)
	return r.pump()
}

func (r *Request) pump() error {
	for {
		switch r.state {
		case AwaitingRequestLine:
			line, ok := r.takeLine()
			if !ok {
				return nil
			}
			if err := r.parseRequestLine(line); err != nil {
				r.LastErr = err
				return err
			}
			r.fire(EventLineLoaded)
			r.state = AwaitingHeaders

		case AwaitingHeaders:
			line, ok := r.takeLine()
			if !ok {
				return nil
			}
			if len(line) == 0 {
				r.fire(EventHeadersLoaded)
				if r.state == AwaitingHeaders {
					// no listener installed a body: request has none.
					r.state = RequestFinished
					r.fire(EventFinished)
					return nil
				}
				// a listener called ExpectBody; fall through to drain
				// any body bytes already sitting in the accumulator.
				continue
			}
			if err := r.parseHeaderLine(line); err != nil {
				r.LastErr = err
				return err
			}

		case AwaitingBody:
			if r.Body == nil {
				r.Fatal = &InvariantViolation{What: "AwaitingBody with no body installed"}
				return r.Fatal
			}
			if len(r.acc) == 0 {
				return nil
			}
			n := r.Body.Update(r.acc)
			r.acc = r.acc[n:]
			if !r.Body.Saturated() {
				if n == 0 {
					return nil // body wants more bytes than we have
				}
				continue
			}
			r.fire(EventBodyLoaded)
			r.state = RequestFinished
			r.fire(EventFinished)
			return nil

		case RequestFinished:
			return nil
		}
	}
}

// takeLine removes and returns the next CRLF-delimited line from the
// accumulator, without the trailing CRLF. ok is false if no full line is
// buffered yet.
func (r *Request) takeLine() (string, bool) {
	i := bytes.Index(r.acc, []byte("\r\n"))
	if i < 0 {
		return "", false
	}
	line := string(r.acc[:i])
	r.acc = r.acc[i+2:]
	return line, true
}

func (r *Request) parseRequestLine(line string) error {
	parts := strings.Split(line, " ")
	if len(parts) != 3 {
		return newSyntaxError(SourceRequestLine, "expected exactly three space-separated tokens")
	}
	methodTok, target, version := parts[0], parts[1], parts[2]

	method, ok := ParseMethod(methodTok)
	if !ok {
		return newSyntaxError(SourceRequestLine, "unrecognized method "+methodTok)
	}
	if version != "HTTP/1.1" {
		return &VersionNotSupportedError{Token: version}
	}
	uri, err := ParseURI(target)
	if err != nil {
		return err
	}

	r.Method = method
	r.Target = target
	r.Version = version
	r.URI = uri
	return nil
}

func (r *Request) parseHeaderLine(line string) error {
	key, value, ok := strings.Cut(line, ":")
	if !ok {
		return newSyntaxError(SourceRequestHeaders, "header line missing ':'")
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if key == "" || value == "" {
		return newSyntaxError(SourceRequestHeaders, "empty header key or value")
	}
	if !httpguts.ValidHeaderFieldName(key) || !httpguts.ValidHeaderFieldValue(value) {
		return newSyntaxError(SourceRequestHeaders, "invalid header field "+key)
	}
	r.Header.addUnchecked(key, value)
	return nil
}

// Next resets the request to receive the next pipelined request on the
// same connection, replaying whatever unconsumed bytes are still in the
// accumulator. Callers must only call this once the prior response has
// reached Finished.
func (r *Request) Next() error {
	leftover := r.acc
	r.reset()
	r.acc = leftover
	return r.pump()
}
