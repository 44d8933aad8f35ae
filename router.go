// Router: an ordered tree of (method?, pattern, handler) rules. A handler
// is either a callback or a sub-router; dispatch walks rules in
// registration order, flattening sub-routers lazily at their match point,
// and stops the first time a callback returns false.

package hannahttp

// Handle is a route callback. It returns true to let the chain continue to
// the next matching rule, or false to short-circuit the rest of the chain
// for this request.
type Handle func(match Match, req *Request, resp *Response) bool

// Handler is either a Handle callback or a *Router used as a sub-router.
// It is a closed union: the only implementations are HandlerFunc and
// *Router.
type Handler interface {
	isHandler()
}

// HandlerFunc adapts a Handle to Handler.
type HandlerFunc Handle

func (HandlerFunc) isHandler() {}

func (r *Router) isHandler() {}

type rule struct {
	anyMethod bool
	method    Method
	matcher   *Matcher
	handler   Handler
}

// Router holds an ordered list of rules and evaluates them against
// incoming requests.
type Router struct {
	rules []rule
}

// NewRouter returns an empty router.
func NewRouter() *Router {
	return &Router{}
}

// Register appends one rule per handler, in the order given, all sharing
// the same method and compiled pattern. method is nil for "any method".
// Register panics with InvariantViolation if pattern names a duplicate
// parameter (CompileMatcher's own contract) and returns a SyntaxError for
// any other malformed pattern.
func (rt *Router) Register(method *Method, pattern string, handlers ...Handler) error {
	matcher, err := CompileMatcher(pattern)
	if err != nil {
		return err
	}
	for _, h := range handlers {
		rl := rule{matcher: matcher, handler: h}
		if method == nil {
			rl.anyMethod = true
		} else {
			rl.method = *method
		}
		rt.rules = append(rt.rules, rl)
	}
	return nil
}

func method(m Method) *Method { return &m }

// Get, Put, Post, Delete, Options, Trace, Patch, Connect register a rule
// for exactly one method. A GET rule is also matched by HEAD requests
// (with the body suppressed by the connection handler), per RFC 9110.
func (rt *Router) Get(pattern string, handlers ...Handler) error {
	return rt.Register(method(MethodGET), pattern, handlers...)
}
func (rt *Router) Put(pattern string, handlers ...Handler) error {
	return rt.Register(method(MethodPUT), pattern, handlers...)
}
func (rt *Router) Post(pattern string, handlers ...Handler) error {
	return rt.Register(method(MethodPOST), pattern, handlers...)
}
func (rt *Router) Delete(pattern string, handlers ...Handler) error {
	return rt.Register(method(MethodDELETE), pattern, handlers...)
}
func (rt *Router) Options(pattern string, handlers ...Handler) error {
	return rt.Register(method(MethodOPTIONS), pattern, handlers...)
}
func (rt *Router) Trace(pattern string, handlers ...Handler) error {
	return rt.Register(method(MethodTRACE), pattern, handlers...)
}
func (rt *Router) Patch(pattern string, handlers ...Handler) error {
	return rt.Register(method(MethodPATCH), pattern, handlers...)
}
func (rt *Router) Connect(pattern string, handlers ...Handler) error {
	return rt.Register(method(MethodCONNECT), pattern, handlers...)
}
func (rt *Router) Head(pattern string, handlers ...Handler) error {
	return rt.Register(method(MethodHEAD), pattern, handlers...)
}

// Any registers a rule matched regardless of method.
func (rt *Router) Any(pattern string, handlers ...Handler) error {
	return rt.Register(nil, pattern, handlers...)
}

// Use registers handler against the wildcard pattern "*" for any method:
// unconditional middleware run ahead of (or interleaved with, by
// registration order) more specific rules.
func (rt *Router) Use(handler Handler) error {
	return rt.Any("*", handler)
}

// ruleMatches reports whether rl's method requirement is satisfied:
// wildcard, exact match, or a GET rule serving a HEAD request.
func ruleMatches(rl rule, reqMethod Method) bool {
	if rl.anyMethod {
		return true
	}
	if rl.method == reqMethod {
		return true
	}
	return rl.method == MethodGET && reqMethod == MethodHEAD
}

// Handle dispatches req/resp against the router's rules using the
// request's own URI path, normalized before matching. It returns true if
// the chain ran to completion without any callback short-circuiting,
// false if some callback returned false.
func (rt *Router) Handle(req *Request, resp *Response) bool {
	return rt.dispatchPath(req.URI.Path, req, resp)
}

// HandleAt is like Handle but matches against an explicit path instead of
// the request's own URI, for virtual-host style dispatch.
func (rt *Router) HandleAt(path string, req *Request, resp *Response) bool {
	return rt.dispatchPath(path, req, resp)
}

func (rt *Router) dispatchPath(path string, req *Request, resp *Response) bool {
	normalized := normalizePath(path)
	for _, rl := range rt.rules {
		if !ruleMatches(rl, req.Method) {
			continue
		}
		match, ok := rl.matcher.Match(normalized)
		if !ok {
			continue
		}
		switch h := rl.handler.(type) {
		case HandlerFunc:
			if !h(match, req, resp) {
				return false
			}
		case *Router:
			childPath := normalized
			if match.HasRemain {
				childPath = match.Remainder
			}
			if !h.dispatchPath(childPath, req, resp) {
				return false
			}
		default:
			panicInvariant("route rule has neither a callback nor a sub-router handler")
		}
	}
	return true
}
