package worker

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

// StoredResponse is a fully buffered response held in a cache generation.
type StoredResponse struct {
	Method string
	URL    string
	Status int
	Header http.Header
	Body   []byte
}

// ToHTTP builds a response for req. HEAD requests get headers only.
func (s StoredResponse) ToHTTP(req *http.Request) *http.Response {
	header := s.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	body := s.Body
	if req != nil && req.Method == http.MethodHead {
		body = nil
	}
	header.Set("Content-Length", strconv.Itoa(len(s.Body)))

	return &http.Response{
		Status:        fmt.Sprintf("%d %s", s.Status, http.StatusText(s.Status)),
		StatusCode:    s.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(s.Body)),
		Request:       req,
	}
}

// capture buffers resp into a StoredResponse keyed by key. The body is closed.
func capture(key string, resp *http.Response) (StoredResponse, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return StoredResponse{}, err
	}
	header := resp.Header.Clone()
	stripHopHeaders(header)
	return StoredResponse{
		Method: http.MethodGet,
		URL:    key,
		Status: resp.StatusCode,
		Header: header,
		Body:   body,
	}, nil
}

// cacheable reports whether req can be answered from a generation.
func cacheable(req *http.Request) bool {
	return req.Method == http.MethodGet || req.Method == http.MethodHead
}

// requestKey is the path and query of u. Fragments never reach the key.
func requestKey(u *url.URL) string {
	cp := *u
	cp.Fragment = ""
	cp.RawFragment = ""
	return cp.RequestURI()
}

func manifestKey(entry string) (string, error) {
	u, err := url.Parse(entry)
	if err != nil {
		return "", err
	}
	return requestKey(u), nil
}

var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

func stripHopHeaders(h http.Header) {
	for _, name := range hopHeaders {
		h.Del(name)
	}
}
