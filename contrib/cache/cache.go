// Package cache is a response-caching middleware for hannahttp. It taps
// the response's status and header events to build a cacheable snapshot,
// and pushes a body transform that duplicates written bytes into an
// in-memory buffer.
package cache

import (
	"bytes"
	"io"
	"time"

	"github.com/skywa04885/hannahttp"
)

type headerKV struct{ key, value string }

type entry struct {
	status  int
	phrase  string
	headers []headerKV
	body    []byte
}

// excludedHeaders are recorded on the live response by the writer itself
// (Server, Date) or don't make sense to replay verbatim (Connection); the
// writer doesn't know or care which headers a tap wants, so filtering them
// out is this subscriber's job.
var excludedHeaders = map[string]bool{
	"server":     true,
	"date":       true,
	"connection": true,
}

// Cache caches GET responses, keyed by request path, for a fixed TTL, with
// a FIFO backstop that evicts the oldest surviving key once MaxEntries is
// exceeded (TTL expiry alone doesn't bound memory for keys with a long TTL
// under a large, ever-changing path space).
type Cache struct {
	store      *hannahttp.TTLCache[string, entry]
	ttl        time.Duration
	order      *hannahttp.Queue[string]
	maxEntries int
}

// New returns a Cache whose entries expire after ttl, using scheduler for
// timers. maxEntries bounds the number of live keys; 0 means unbounded.
func New(scheduler *hannahttp.Scheduler, ttl time.Duration, maxEntries int) *Cache {
	return &Cache{
		store:      hannahttp.NewTTLCache[string, entry](scheduler),
		ttl:        ttl,
		order:      hannahttp.NewQueue[string](),
		maxEntries: maxEntries,
	}
}

// put records value under key, evicting the oldest still-live key first if
// this insertion would push the cache past maxEntries.
func (c *Cache) put(key string, value entry) {
	if c.maxEntries > 0 && c.store.Len() >= c.maxEntries {
		for c.order.Len() > 0 {
			oldest, _ := c.order.Dequeue()
			if _, ok := c.store.Get(oldest); ok {
				c.store.Remove(oldest)
				break
			}
			// already expired on its own; keep popping until an eviction
			// actually frees a slot or the queue runs dry.
		}
	}
	c.store.Put(key, value, c.ttl)
	c.order.Enqueue(key)
}

// Middleware returns a handler that serves cached GET responses directly
// (short-circuiting the chain) and records fresh ones for next time.
func (c *Cache) Middleware() hannahttp.HandlerFunc {
	return func(match hannahttp.Match, req *hannahttp.Request, resp *hannahttp.Response) bool {
		if req.Method != hannahttp.MethodGET {
			return true
		}
		key := req.URI.Path

		if cached, ok := c.store.Get(key); ok {
			resp.WriteStatus(cached.status, cached.phrase)
			for _, h := range cached.headers {
				resp.AddHeader(h.key, h.value)
			}
			resp.SetSizeHint(int64(len(cached.body)))
			if _, err := resp.WriteBody(cached.body); err != nil {
				return false
			}
			_ = resp.EndBody()
			return false
		}

		rec := &entry{}
		resp.OnStatus(func(code int, phrase string) {
			rec.status, rec.phrase = code, phrase
		})
		resp.OnHeader(func(key, value string) {
			if excludedHeaders[key] {
				return
			}
			rec.headers = append(rec.headers, headerKV{key, value})
		})

		buf := &bytes.Buffer{}
		resp.PushBodyTransform(hannahttp.TransformFunc(func(dst io.Writer) io.WriteCloser {
			return &teeCloser{dst: dst, buf: buf, commit: func() {
				rec.body = append([]byte(nil), buf.Bytes()...)
				c.put(key, *rec)
			}}
		}))
		return true
	}
}

// teeCloser writes every byte to both buf (the cache snapshot) and dst
// (the real response chain), then commits the snapshot when the body
// finishes. Close does not close dst: Response.EndBody closes every body
// stage itself.
type teeCloser struct {
	dst    io.Writer
	buf    *bytes.Buffer
	commit func()
}

func (t *teeCloser) Write(p []byte) (int, error) {
	t.buf.Write(p)
	return t.dst.Write(p)
}

func (t *teeCloser) Close() error {
	t.commit()
	return nil
}
