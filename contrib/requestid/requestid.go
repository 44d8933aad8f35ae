// Package requestid stamps every request with a fresh UUID, publishing it
// in the request's Bag for downstream handlers and logging middleware, and
// echoing it back as X-Request-Id.
package requestid

import (
	"github.com/google/uuid"

	"github.com/skywa04885/hannahttp"
)

// BagKey is where the generated ID is published in Request.Bag.
const BagKey = "requestID"

// Middleware assigns a UUIDv4 to every request that passes through it.
// Register it first via Router.Use so later handlers and taps can rely on
// the ID already being present.
func Middleware() hannahttp.HandlerFunc {
	return func(match hannahttp.Match, req *hannahttp.Request, resp *hannahttp.Response) bool {
		id := uuid.NewString()
		req.Bag.Set(BagKey, id)
		resp.AddHeader("X-Request-Id", id)
		return true
	}
}
