// Package hannahttp is a small HTTP/1.1 server engine: an incremental
// request parser, a composable router with nested sub-routers and
// short-circuiting middleware chains, and a streaming response writer that
// picks its transfer encoding and applies pluggable transforms at send
// time.
//
// The package handles bytes on the wire and dispatch; sockets, TLS,
// filesystem access, and compression codecs are supplied by callers (see
// contrib/ for ready adapters built on top of this package) or by the
// standard library.
package hannahttp
