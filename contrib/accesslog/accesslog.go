// Package accesslog adapts logrus to hannahttp.Logger and provides an
// access-log middleware: one component, registered ahead of the
// application's routes via Router.Use, observing every request that
// passes through.
package accesslog

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/skywa04885/hannahttp"
)

// Adapter satisfies hannahttp.Logger by forwarding to a *logrus.Logger.
type Adapter struct {
	*logrus.Logger
}

func (a Adapter) Logf(format string, args ...any)   { a.Logger.Infof(format, args...) }
func (a Adapter) Errorf(format string, args ...any) { a.Logger.Errorf(format, args...) }

// New wraps logger as an hannahttp.Logger.
func New(logger *logrus.Logger) hannahttp.Logger {
	return Adapter{Logger: logger}
}

// Middleware logs one structured line per request: method, path, status,
// remote address, and latency. Register it first via Router.Use so it
// wraps every later rule in the chain.
func Middleware(logger *logrus.Logger) hannahttp.HandlerFunc {
	return func(match hannahttp.Match, req *hannahttp.Request, resp *hannahttp.Response) bool {
		start := time.Now()
		remote, _ := req.Bag.Get(hannahttp.RemoteAddrBagKey)

		resp.OnStatus(func(code int, phrase string) {
			logger.WithFields(logrus.Fields{
				"method": req.Method.String(),
				"path":   req.URI.Path,
				"status": code,
				"remote": remote,
				"took":   time.Since(start),
			}).Info("request")
		})
		return true
	}
}
