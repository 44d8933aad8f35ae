// Cookie encoding. See RFC 6265.

package hannahttp

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// SameSite is the SameSite attribute of a Set-Cookie header.
type SameSite uint8

const (
	SameSiteDefault SameSite = iota
	SameSiteLax
	SameSiteStrict
	SameSiteNone
)

func (s SameSite) String() string {
	switch s {
	case SameSiteLax:
		return "Lax"
	case SameSiteStrict:
		return "Strict"
	case SameSiteNone:
		return "None"
	default:
		return ""
	}
}

// Cookie describes one Set-Cookie header's worth of attributes.
type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Expires  time.Time // zero value means no Expires attribute
	HTTPOnly bool
	Secure   bool
	SameSite SameSite
}

// Encode renders c as a Set-Cookie header value. Value is percent-encoded
// so it can never break the field's syntax.
func (c Cookie) Encode() string {
	var b strings.Builder
	b.WriteString(c.Name)
	b.WriteByte('=')
	b.WriteString(url.QueryEscape(c.Value))
	if c.Domain != "" {
		fmt.Fprintf(&b, "; Domain=%s", c.Domain)
	}
	if c.Path != "" {
		fmt.Fprintf(&b, "; Path=%s", c.Path)
	}
	if !c.Expires.IsZero() {
		fmt.Fprintf(&b, "; Expires=%s", c.Expires.UTC().Format(time.RFC1123))
	}
	if c.HTTPOnly {
		b.WriteString("; HttpOnly")
	}
	if c.Secure {
		b.WriteString("; Secure")
	}
	if s := c.SameSite.String(); s != "" {
		fmt.Fprintf(&b, "; SameSite=%s", s)
	}
	return b.String()
}

// SetCookie adds a Set-Cookie header for c to the response. Must be called
// while the response is still in WritingStatus or WritingHeaders, same as
// any other AddHeader call.
func (r *Response) SetCookie(c Cookie) {
	r.AddHeader("Set-Cookie", c.Encode())
}

// ParseCookieHeader decodes a request's Cookie header ("a=1; b=2") into a
// name/value map. Malformed pairs (missing '=') are skipped rather than
// failing the whole header, matching how browsers themselves tolerate
// stray junk in this field.
func ParseCookieHeader(value string) map[string]string {
	if value == "" {
		return nil
	}
	cookies := make(map[string]string)
	for _, part := range strings.Split(value, ";") {
		name, val, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		if decoded, err := url.QueryUnescape(val); err == nil {
			val = decoded
		}
		cookies[name] = val
	}
	return cookies
}
