package httpcache

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
)

// Entry is the cached form of an upstream response.
type Entry struct {
	StatusCode int         `json:"status_code"`
	Header     http.Header `json:"header"`
	Body       []byte      `json:"body"`
}

// Serialize reads resp's body into an Entry and gives resp a fresh copy of it,
// so the response can still be forwarded.
func Serialize(resp *http.Response) (Entry, error) {
	var body []byte
	if resp.Body != nil {
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return Entry{}, fmt.Errorf("failed to read response body: %w", err)
		}
		_ = resp.Body.Close()
		body = b
		resp.Body = io.NopCloser(bytes.NewReader(body))
	}

	return Entry{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       body,
	}, nil
}

// Deserialize builds a response for req from a cached entry.
func Deserialize(e Entry, req *http.Request) *http.Response {
	header := e.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	header.Set("Content-Length", strconv.Itoa(len(e.Body)))

	return &http.Response{
		Status:        fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode)),
		StatusCode:    e.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(e.Body)),
		ContentLength: int64(len(e.Body)),
		Request:       req,
	}
}
