// Path matcher. A route pattern is compiled once into a Matcher; matching
// a request path against it is then a single regexp evaluation with named
// capture groups for parameters and a reserved group for a trailing
// wildcard's remainder.

package hannahttp

import (
	"regexp"
	"strings"
)

// remainderGroup is the name of the reserved capture group holding a
// trailing wildcard's match. Parameter names may not begin and end with
// "__": that namespace belongs to the matcher internals.
const remainderGroup = "__remainder__"

var paramNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Matcher is a compiled route pattern.
type Matcher struct {
	pattern    string // normalized source pattern, for diagnostics
	re         *regexp.Regexp
	paramNames []string
	hasWild    bool
}

// Match is the result of a successful Matcher.Match call.
type Match struct {
	Params    map[string]string
	Remainder string
	HasRemain bool
}

// normalizePath collapses runs of "/", drops any trailing "/", and makes
// sure the result begins with exactly one "/"; an empty or all-slash path
// normalizes to "/".
func normalizePath(path string) string {
	segments := strings.Split(path, "/")
	kept := make([]string, 0, len(segments))
	for _, s := range segments {
		if s != "" {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return "/"
	}
	return "/" + strings.Join(kept, "/")
}

// CompileMatcher compiles a route pattern such as "/users/:id/*" into a
// Matcher.
//
// Grammar: segments separated by "/". A literal segment matches itself. A
// segment beginning with ":" declares a named parameter (character class
// [A-Za-z0-9_-]+); names must be unique within the pattern and must not
// begin and end with "__". The single token "*" declares a trailing
// wildcard and must be the final segment; it matches any remaining
// characters, including slashes.
func CompileMatcher(pattern string) (*Matcher, error) {
	normalized := normalizePath(pattern)
	rawSegments := strings.Split(strings.Trim(normalized, "/"), "/")
	if normalized == "/" {
		rawSegments = nil
	}

	var out strings.Builder
	out.WriteByte('^')

	seen := make(map[string]bool)
	var paramNames []string
	hasWild := false

	for _, raw := range rawSegments {
		if hasWild {
			return nil, newSyntaxError(SourceHeaderValue, "wildcard must be the final segment")
		}
		out.WriteByte('/')
		switch {
		case raw == "*":
			hasWild = true
			out.WriteString("(?P<" + remainderGroup + ">.*)")
		case strings.HasPrefix(raw, ":"):
			name := raw[1:]
			if name == "" {
				return nil, newSyntaxError(SourceHeaderValue, "empty parameter name")
			}
			if strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__") {
				return nil, newSyntaxError(SourceHeaderValue, "parameter name "+name+" is reserved")
			}
			if !paramNamePattern.MatchString(name) {
				return nil, newSyntaxError(SourceHeaderValue, "invalid parameter name "+name)
			}
			if seen[name] {
				panicInvariant("duplicate route parameter name " + name)
			}
			seen[name] = true
			paramNames = append(paramNames, name)
			out.WriteString("(?P<" + name + ">[^/]+)")
		default:
			out.WriteString(regexp.QuoteMeta(raw))
		}
	}
	if len(rawSegments) == 0 {
		out.WriteString("/")
	}
	out.WriteByte('$')

	re, err := regexp.Compile(out.String())
	if err != nil {
		return nil, newSyntaxError(SourceHeaderValue, "pattern failed to compile: "+err.Error())
	}
	return &Matcher{pattern: normalized, re: re, paramNames: paramNames, hasWild: hasWild}, nil
}

// Match tests path against the compiled pattern. path is normalized
// identically to how the pattern was normalized before matching, so
// Match(p) and Match(normalizePath(p)) always agree.
func (m *Matcher) Match(path string) (Match, bool) {
	normalized := normalizePath(path)
	groups := m.re.FindStringSubmatch(normalized)
	if groups == nil {
		return Match{}, false
	}
	names := m.re.SubexpNames()
	match := Match{}
	if len(m.paramNames) > 0 {
		match.Params = make(map[string]string, len(m.paramNames))
	}
	for i, name := range names {
		if name == "" {
			continue
		}
		if name == remainderGroup {
			match.Remainder = groups[i]
			match.HasRemain = true
			continue
		}
		match.Params[name] = groups[i]
	}
	return match, true
}
