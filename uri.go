// URI parser. Only origin-form request targets are accepted: a path, an
// optional query string, an optional fragment. See RFC 9112 §3.2.1.

package hannahttp

import (
	"net/url"
	"strings"
)

// URI is the parsed form of a request-target.
type URI struct {
	Path     string            // non-empty, begins with "/"
	Query    map[string]string // percent-decoded values; keys are not decoded
	Fragment string            // without the leading "#"; empty if absent
}

// ParseURI parses an origin-form request-target: "/path?k=v&k=v#frag".
//
// Duplicate query keys overwrite: the last occurrence of a key wins. This
// mirrors the documented, if HTTP-semantics-looser-than-necessary, behavior
// specified for this parser; callers that need every value for a repeated
// key must inspect the raw target themselves.
func ParseURI(target string) (URI, error) {
	if target == "" || target[0] != '/' {
		return URI{}, newSyntaxError(SourceRequestLine, "request-target must be origin-form")
	}

	rest := target
	var fragment string
	if i := strings.IndexByte(rest, '#'); i >= 0 {
		fragment = rest[i+1:]
		rest = rest[:i]
	}

	var rawQuery string
	if i := strings.IndexByte(rest, '?'); i >= 0 {
		rawQuery = rest[i+1:]
		rest = rest[:i]
	}

	path := rest
	if path == "" {
		return URI{}, newSyntaxError(SourceRequestLine, "empty path")
	}

	query, err := parseQuery(rawQuery)
	if err != nil {
		return URI{}, err
	}

	return URI{Path: path, Query: query, Fragment: fragment}, nil
}

func parseQuery(raw string) (map[string]string, error) {
	if raw == "" {
		return nil, nil
	}
	query := make(map[string]string)
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, newSyntaxError(SourceRequestLine, "query pair missing '='")
		}
		if strings.Contains(value, "=") {
			return nil, newSyntaxError(SourceRequestLine, "query pair has more than one '='")
		}
		decoded, err := url.QueryUnescape(value)
		if err != nil {
			return nil, newSyntaxError(SourceRequestLine, "query value has invalid percent-encoding")
		}
		query[key] = decoded // last occurrence wins; see doc comment on ParseURI
	}
	return query, nil
}
