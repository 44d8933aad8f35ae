// Package compress is a body-transform middleware that negotiates
// gzip/deflate/br against a request's Accept-Encoding and pushes the
// matching encoder onto the response's body transform stack. It never
// touches the core engine's framing decision: attaching any transform is
// what forces hannahttp to switch a response to chunked transfer.
package compress

import (
	"compress/flate"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"

	"github.com/skywa04885/hannahttp"
)

// Level is the compression level passed to the gzip and deflate encoders
// this middleware selects; the brotli encoder always uses
// brotli.DefaultCompression.
var Level = gzip.DefaultCompression

// token names the wire Content-Encoding value alongside how to build its
// encoder.
type codec struct {
	token string
	wrap  func(dst io.Writer) io.WriteCloser
}

// preference lists codecs in the order this middleware prefers them when a
// client accepts more than one.
var preference = []codec{
	{token: "br", wrap: func(dst io.Writer) io.WriteCloser {
		return brotli.NewWriterLevel(dst, brotli.DefaultCompression)
	}},
	{token: "gzip", wrap: func(dst io.Writer) io.WriteCloser {
		w, _ := gzip.NewWriterLevel(dst, Level)
		return w
	}},
	{token: "deflate", wrap: func(dst io.Writer) io.WriteCloser {
		w, _ := flate.NewWriter(dst, Level)
		return w
	}},
}

// Middleware negotiates an encoding against the request's Accept-Encoding
// header and, if one matches, pushes the corresponding compressor as a
// body transform and records the Content-Encoding token. It always
// returns true: compression never short-circuits the chain.
//
// It is normally registered via Router.Use, ahead of the route handler
// that actually produces the body, so the negotiation happens before
// anything is known about the response's eventual size: once a codec is
// negotiated it is applied unconditionally, with no minimum-length
// carve-out for small bodies.
func Middleware() hannahttp.HandlerFunc {
	return func(match hannahttp.Match, req *hannahttp.Request, resp *hannahttp.Response) bool {
		accepted := hannahttp.Tokens(req.Header.Get("Accept-Encoding"))
		if len(accepted) == 0 {
			return true
		}
		acceptedSet := make(map[string]bool, len(accepted))
		for _, tok := range accepted {
			acceptedSet[tok] = true
		}
		for _, c := range preference {
			if !acceptedSet[c.token] {
				continue
			}
			resp.AddContentEncodingToken(c.token)
			resp.PushBodyTransform(hannahttp.TransformFunc(c.wrap))
			return true
		}
		return true
	}
}
