// Header model. Keys are folded to lowercase on insertion; a key may carry
// one or several values, and the insertion order of values sharing a key is
// preserved. See RFC 9110 §5 for the field model this mirrors.

package hannahttp

import (
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// headerField is one key/value pair as it arrived on the wire, kept in
// insertion order alongside its siblings.
type headerField struct {
	key   string // already lowercased
	value string
}

// Header is a case-insensitive, order-preserving multi-map of HTTP header
// fields.
type Header struct {
	fields []headerField
}

// NewHeader returns an empty header multi-map.
func NewHeader() *Header {
	return &Header{}
}

func foldKey(key string) string {
	return strings.ToLower(key)
}

// Add appends a value under key, preserving any existing values for the
// same key. key and value are validated against RFC 7230's token and
// field-value grammars; a caller building a header from untrusted or
// hand-built strings is a programmer error, not a wire-parsing concern, so
// a violation panics with InvariantViolation rather than returning an
// error (values arriving off the wire go through parseHeaderLine instead,
// which never calls Add with data it hasn't already validated its own
// way).
func (h *Header) Add(key, value string) {
	validateHeaderField(key, value)
	h.fields = append(h.fields, headerField{foldKey(key), value})
}

// Set replaces all existing values for key with the single given value.
func (h *Header) Set(key, value string) {
	validateHeaderField(key, value)
	folded := foldKey(key)
	h.Del(folded)
	h.fields = append(h.fields, headerField{folded, value})
}

// addUnchecked appends a value already validated by the caller (the wire
// parser validates against the same grammar itself, so it can report a
// SyntaxError instead of triggering Add's InvariantViolation panic).
func (h *Header) addUnchecked(key, value string) {
	h.fields = append(h.fields, headerField{foldKey(key), value})
}

func validateHeaderField(key, value string) {
	if !httpguts.ValidHeaderFieldName(key) {
		panicInvariant("invalid header field name: " + key)
	}
	if !httpguts.ValidHeaderFieldValue(value) {
		panicInvariant("invalid header field value for " + key)
	}
}

// Del removes all values for key.
func (h *Header) Del(key string) {
	folded := foldKey(key)
	out := h.fields[:0]
	for _, f := range h.fields {
		if f.key != folded {
			out = append(out, f)
		}
	}
	h.fields = out
}

// Get returns the first value for key, or "" if absent.
func (h *Header) Get(key string) string {
	folded := foldKey(key)
	for _, f := range h.fields {
		if f.key == folded {
			return f.value
		}
	}
	return ""
}

// GetAll returns every value stored under key, in insertion order. The
// returned slice is a fresh copy; mutating it does not affect the header.
func (h *Header) GetAll(key string) []string {
	folded := foldKey(key)
	var values []string
	for _, f := range h.fields {
		if f.key == folded {
			values = append(values, f.value)
		}
	}
	return values
}

// GetAt returns the index-th value stored under key (0-based, in insertion
// order) and whether that index exists.
func (h *Header) GetAt(key string, index int) (string, bool) {
	folded := foldKey(key)
	n := 0
	for _, f := range h.fields {
		if f.key == folded {
			if n == index {
				return f.value, true
			}
			n++
		}
	}
	return "", false
}

// Has reports whether key has at least one value.
func (h *Header) Has(key string) bool {
	folded := foldKey(key)
	for _, f := range h.fields {
		if f.key == folded {
			return true
		}
	}
	return false
}

// Len returns the number of key/value pairs stored, counting repeated keys
// once per occurrence.
func (h *Header) Len() int { return len(h.fields) }

// Each calls fn once per stored field, in insertion order, with lowercased
// keys.
func (h *Header) Each(fn func(key, value string)) {
	for _, f := range h.fields {
		fn(f.key, f.value)
	}
}

// Reset clears the map for reuse across pipelined requests on the same
// connection.
func (h *Header) Reset() {
	h.fields = h.fields[:0]
}

// Clone returns an independent copy of h.
func (h *Header) Clone() *Header {
	c := &Header{fields: make([]headerField, len(h.fields))}
	copy(c.fields, h.fields)
	return c
}

// --- Typed views -----------------------------------------------------

// Tokens splits a comma-separated header value into trimmed, lowercased
// tokens. Used for Content-Encoding, Transfer-Encoding, Accept-Encoding,
// and Connection.
func Tokens(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.ToLower(strings.TrimSpace(p))
		if t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// ByteRange is one `from-to` span from a Range header. Missing bounds are
// represented with HasFrom/HasTo set to false; From and To are meaningless
// in that case.
type ByteRange struct {
	HasFrom bool
	From    int64
	HasTo   bool
	To      int64
}

// ParseRange decodes a `Range: bytes=from-to[,from-to]*` header value. Only
// the "bytes" unit is recognized; anything else fails with a
// SyntaxError{SourceHeaderValue}.
func ParseRange(value string) ([]ByteRange, error) {
	unit, rest, ok := strings.Cut(value, "=")
	if !ok || strings.TrimSpace(unit) != "bytes" {
		return nil, newSyntaxError(SourceHeaderValue, "range: unrecognized unit")
	}
	specs := strings.Split(rest, ",")
	ranges := make([]ByteRange, 0, len(specs))
	for _, spec := range specs {
		spec = strings.TrimSpace(spec)
		from, to, ok := strings.Cut(spec, "-")
		if !ok {
			return nil, newSyntaxError(SourceHeaderValue, "range: missing '-'")
		}
		var r ByteRange
		if from != "" {
			n, err := strconv.ParseInt(from, 10, 64)
			if err != nil {
				return nil, newSyntaxError(SourceHeaderValue, "range: bad start")
			}
			r.HasFrom, r.From = true, n
		}
		if to != "" {
			n, err := strconv.ParseInt(to, 10, 64)
			if err != nil {
				return nil, newSyntaxError(SourceHeaderValue, "range: bad end")
			}
			r.HasTo, r.To = true, n
		}
		if !r.HasFrom && !r.HasTo {
			return nil, newSyntaxError(SourceHeaderValue, "range: empty spec")
		}
		ranges = append(ranges, r)
	}
	return ranges, nil
}

// ContentRange is the decoded form of a `Content-Range: bytes start-end/size`
// header. SizeKnown is false when the size is the wildcard "*".
type ContentRange struct {
	Start     int64
	End       int64
	Size      int64
	SizeKnown bool
}

// ParseContentRange decodes a Content-Range header value. Only the "bytes"
// unit is recognized.
func ParseContentRange(value string) (ContentRange, error) {
	unit, rest, ok := strings.Cut(strings.TrimSpace(value), " ")
	if !ok || unit != "bytes" {
		return ContentRange{}, newSyntaxError(SourceHeaderValue, "content-range: unrecognized unit")
	}
	span, sizeStr, ok := strings.Cut(rest, "/")
	if !ok {
		return ContentRange{}, newSyntaxError(SourceHeaderValue, "content-range: missing '/'")
	}
	startStr, endStr, ok := strings.Cut(span, "-")
	if !ok {
		return ContentRange{}, newSyntaxError(SourceHeaderValue, "content-range: missing '-'")
	}
	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil {
		return ContentRange{}, newSyntaxError(SourceHeaderValue, "content-range: bad start")
	}
	end, err := strconv.ParseInt(endStr, 10, 64)
	if err != nil {
		return ContentRange{}, newSyntaxError(SourceHeaderValue, "content-range: bad end")
	}
	cr := ContentRange{Start: start, End: end}
	if sizeStr == "*" {
		return cr, nil
	}
	size, err := strconv.ParseInt(sizeStr, 10, 64)
	if err != nil {
		return ContentRange{}, newSyntaxError(SourceHeaderValue, "content-range: bad size")
	}
	cr.Size, cr.SizeKnown = size, true
	return cr, nil
}

// ContentType is the decoded form of a Content-Type header: the bare
// media-type plus up to two recognized parameters (charset, boundary).
// Any other parameter key fails decoding.
type ContentType struct {
	MediaType string
	Charset   string
	Boundary  string
}

// ParseContentType decodes a `type/subtype[; key=value]*` header value.
func ParseContentType(value string) (ContentType, error) {
	parts := strings.Split(value, ";")
	ct := ContentType{MediaType: strings.ToLower(strings.TrimSpace(parts[0]))}
	if ct.MediaType == "" {
		return ContentType{}, newSyntaxError(SourceHeaderValue, "content-type: empty media type")
	}
	if len(parts) > 3 {
		return ContentType{}, newSyntaxError(SourceHeaderValue, "content-type: too many parameters")
	}
	for _, param := range parts[1:] {
		key, val, ok := strings.Cut(param, "=")
		if !ok {
			return ContentType{}, newSyntaxError(SourceHeaderValue, "content-type: malformed parameter")
		}
		key = strings.ToLower(strings.TrimSpace(key))
		val = strings.Trim(strings.TrimSpace(val), `"`)
		switch key {
		case "charset":
			ct.Charset = val
		case "boundary":
			ct.Boundary = val
		default:
			return ContentType{}, newSyntaxError(SourceHeaderValue, "content-type: unknown parameter "+key)
		}
	}
	return ct, nil
}
