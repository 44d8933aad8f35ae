package hannahttp

// Method is one of the nine standard HTTP verbs. Any other token fails
// request-line parsing with SyntaxError{SourceRequestLine}.
type Method uint8

const (
	MethodGET Method = iota
	MethodPUT
	MethodPOST
	MethodHEAD
	MethodDELETE
	MethodCONNECT
	MethodOPTIONS
	MethodTRACE
	MethodPATCH
)

var methodStrings = [...]string{
	MethodGET:     "GET",
	MethodPUT:     "PUT",
	MethodPOST:    "POST",
	MethodHEAD:    "HEAD",
	MethodDELETE:  "DELETE",
	MethodCONNECT: "CONNECT",
	MethodOPTIONS: "OPTIONS",
	MethodTRACE:   "TRACE",
	MethodPATCH:   "PATCH",
}

func (m Method) String() string {
	if int(m) < len(methodStrings) {
		return methodStrings[m]
	}
	return "UNKNOWN"
}

var methodByToken = map[string]Method{
	"GET":     MethodGET,
	"PUT":     MethodPUT,
	"POST":    MethodPOST,
	"HEAD":    MethodHEAD,
	"DELETE":  MethodDELETE,
	"CONNECT": MethodCONNECT,
	"OPTIONS": MethodOPTIONS,
	"TRACE":   MethodTRACE,
	"PATCH":   MethodPATCH,
}

// ParseMethod recognizes the nine standard verbs. Lookup is case-sensitive
// per RFC 9110: method tokens are case-sensitive on the wire.
func ParseMethod(token string) (Method, bool) {
	m, ok := methodByToken[token]
	return m, ok
}
