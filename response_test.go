package hannahttp

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestRequest() *Request {
	req := NewRequest()
	if err := req.Feed([]byte("GET /x HTTP/1.1\r\nHost: x\r\n\r\n")); err != nil {
		panic(err)
	}
	return req
}

// TestResponseFixedLength checks that a size-hinted, transform-free response
// emits Content-Length and exactly that many body bytes, with no chunked
// framing.
func TestResponseFixedLength(t *testing.T) {
	var buf bytes.Buffer
	resp := NewResponse(newTestRequest(), &buf)
	resp.WriteStatus(StatusOK)
	resp.SetSizeHint(2)
	if _, err := resp.WriteBody([]byte("ok")); err != nil {
		t.Fatalf("WriteBody: %v", err)
	}
	if err := resp.EndBody(); err != nil {
		t.Fatalf("EndBody: %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "HTTP/1.1 200 OK\r\n") {
		t.Fatalf("status line wrong: %q", out)
	}
	if !strings.Contains(out, "Content-Length: 2\r\n") {
		t.Errorf("missing Content-Length: %q", out)
	}
	if strings.Contains(out, "Transfer-Encoding") {
		t.Errorf("unexpected Transfer-Encoding: %q", out)
	}
	if !strings.HasSuffix(out, "ok") {
		t.Errorf("body not at end: %q", out)
	}
}

// TestResponseChunkedWhenSizeUnset checks that no size hint forces chunked
// transfer with a terminating 0-length chunk.
func TestResponseChunkedWhenSizeUnset(t *testing.T) {
	var buf bytes.Buffer
	resp := NewResponse(newTestRequest(), &buf)
	resp.WriteStatus(StatusOK)
	if _, err := resp.WriteBody([]byte("abc")); err != nil {
		t.Fatalf("WriteBody: %v", err)
	}
	if err := resp.EndBody(); err != nil {
		t.Fatalf("EndBody: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Transfer-Encoding: chunked\r\n") {
		t.Fatalf("missing Transfer-Encoding: chunked: %q", out)
	}
	if !strings.Contains(out, "3\r\nabc\r\n") {
		t.Errorf("missing chunk framing: %q", out)
	}
	if !strings.HasSuffix(out, "0\r\n\r\n") {
		t.Errorf("missing terminal chunk: %q", out)
	}
}

// TestResponseChunkedWhenTransformAttached: a body transform present even
// with a size hint set still forces chunked transfer.
func TestResponseChunkedWhenTransformAttached(t *testing.T) {
	var buf bytes.Buffer
	resp := NewResponse(newTestRequest(), &buf)
	resp.SetSizeHint(3)
	resp.PushBodyTransform(TransformFunc(func(dst io.Writer) io.WriteCloser {
		return nopCloser{dst}
	}))
	resp.WriteStatus(StatusOK)
	if _, err := resp.WriteBody([]byte("abc")); err != nil {
		t.Fatalf("WriteBody: %v", err)
	}
	if err := resp.EndBody(); err != nil {
		t.Fatalf("EndBody: %v", err)
	}
	if !strings.Contains(buf.String(), "Transfer-Encoding: chunked") {
		t.Errorf("expected chunked despite a size hint, got %q", buf.String())
	}
}

// TestResponseHeadExcludesBody checks that HEAD suppresses body bytes but
// keeps the headers a GET would have produced.
func TestResponseHeadExcludesBody(t *testing.T) {
	var buf bytes.Buffer
	resp := NewResponse(newTestRequest(), &buf)
	resp.SetExcludeBody(true)
	resp.WriteStatus(StatusOK)
	resp.SetSizeHint(5)
	if _, err := resp.WriteBody([]byte("hello")); err != nil {
		t.Fatalf("WriteBody: %v", err)
	}
	if err := resp.EndBody(); err != nil {
		t.Fatalf("EndBody: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Content-Length: 5\r\n") {
		t.Errorf("missing Content-Length: %q", out)
	}
	headerEnd := strings.Index(out, "\r\n\r\n")
	if headerEnd < 0 {
		t.Fatalf("no header terminator found: %q", out)
	}
	if body := out[headerEnd+4:]; body != "" {
		t.Errorf("expected zero body bytes for HEAD, got %q", body)
	}
}

func TestResponseWriteStatusTwicePanics(t *testing.T) {
	var buf bytes.Buffer
	resp := NewResponse(newTestRequest(), &buf)
	resp.WriteStatus(StatusOK)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on second WriteStatus call")
		}
	}()
	resp.WriteStatus(StatusOK)
}

func TestResponseWriteBodyBeforeStatusPanics(t *testing.T) {
	var buf bytes.Buffer
	resp := NewResponse(newTestRequest(), &buf)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic writing body before status")
		}
	}()
	resp.WriteBody([]byte("x"))
}

func TestResponseUnknownStatusWithoutPhrasePanics(t *testing.T) {
	var buf bytes.Buffer
	resp := NewResponse(newTestRequest(), &buf)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for unknown status code with no phrase")
		}
	}()
	resp.WriteStatus(599)
}

func TestResponseTextConvenience(t *testing.T) {
	var buf bytes.Buffer
	resp := NewResponse(newTestRequest(), &buf)
	if err := resp.Text("hi"); err != nil {
		t.Fatalf("Text: %v", err)
	}
	if !strings.Contains(buf.String(), "Content-Type: text/plain; charset=utf-8\r\n") {
		t.Errorf("missing Content-Type: %q", buf.String())
	}
}

func TestResponseJSONConvenience(t *testing.T) {
	var buf bytes.Buffer
	resp := NewResponse(newTestRequest(), &buf)
	if err := resp.JSON(map[string]int{"a": 1}); err != nil {
		t.Fatalf("JSON: %v", err)
	}
	if !strings.Contains(buf.String(), `{"a":1}`) {
		t.Errorf("body missing JSON payload: %q", buf.String())
	}
}

func TestResponseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.html")
	if err := os.WriteFile(path, []byte("<html></html>"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var buf bytes.Buffer
	resp := NewResponse(newTestRequest(), &buf)
	if err := resp.File(path, StatusOK); err != nil {
		t.Fatalf("File: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Content-Type: text/html\r\n") {
		t.Errorf("missing Content-Type: %q", out)
	}
	if !strings.HasSuffix(out, "<html></html>") {
		t.Errorf("body missing file contents: %q", out)
	}
}

func TestResponseFileRange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.txt")
	if err := os.WriteFile(path, []byte("0123456789"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	req := NewRequest()
	if err := req.Feed([]byte("GET /data.txt HTTP/1.1\r\nHost: x\r\nRange: bytes=2-5\r\n\r\n")); err != nil {
		t.Fatalf("Feed: %v", err)
	}

	var buf bytes.Buffer
	resp := NewResponse(req, &buf)
	if err := resp.File(path, StatusOK); err != nil {
		t.Fatalf("File: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "HTTP/1.1 206 Partial Content\r\n") {
		t.Fatalf("expected 206 status line, got %q", out)
	}
	if !strings.Contains(out, "Content-Range: bytes 2-5/10\r\n") {
		t.Errorf("missing Content-Range: %q", out)
	}
	if !strings.HasSuffix(out, "2345") {
		t.Errorf("expected body '2345', got %q", out)
	}
}

func TestResponseRedirect(t *testing.T) {
	var buf bytes.Buffer
	resp := NewResponse(newTestRequest(), &buf)
	if err := resp.Redirect("/new", StatusFound); err != nil {
		t.Fatalf("Redirect: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "HTTP/1.1 302 Found\r\n") {
		t.Fatalf("status line wrong: %q", out)
	}
	if !strings.Contains(out, "Location: /new\r\n") {
		t.Errorf("missing Location: %q", out)
	}
}

// TestResponseStatusAndHeaderTaps mirrors what contrib/cache and
// contrib/accesslog rely on.
func TestResponseStatusAndHeaderTaps(t *testing.T) {
	var buf bytes.Buffer
	resp := NewResponse(newTestRequest(), &buf)

	var sawStatus int
	var sawHeaders []string
	resp.OnStatus(func(code int, phrase string) { sawStatus = code })
	resp.OnHeader(func(key, value string) { sawHeaders = append(sawHeaders, key) })

	resp.WriteStatus(StatusOK)
	resp.AddHeader("X-Custom", "1")
	if err := resp.EndBody(); err != nil {
		t.Fatalf("EndBody: %v", err)
	}

	if sawStatus != StatusOK {
		t.Errorf("status tap saw %d, want %d", sawStatus, StatusOK)
	}
	found := false
	for _, k := range sawHeaders {
		if k == "x-custom" {
			found = true
		}
	}
	if !found {
		t.Errorf("header tap did not see x-custom: %v", sawHeaders)
	}
}
