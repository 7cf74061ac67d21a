package worker

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
)

type fakeRoute struct {
	status int
	body   string
	header http.Header
}

type fakeNetwork struct {
	mu      sync.Mutex
	offline bool
	routes  map[string]fakeRoute
	calls   []string
}

func newFakeNetwork() *fakeNetwork {
	return &fakeNetwork{routes: map[string]fakeRoute{
		"/":              {status: http.StatusOK, body: "<html>shell</html>", header: http.Header{"Content-Type": {"text/html"}}},
		"/index.html":    {status: http.StatusOK, body: "<html>shell</html>", header: http.Header{"Content-Type": {"text/html"}}},
		"/manifest.json": {status: http.StatusOK, body: `{"name":"DG Notes"}`, header: http.Header{"Content-Type": {"application/json"}}},
	}}
}

func (n *fakeNetwork) setOffline(offline bool) {
	n.mu.Lock()
	n.offline = offline
	n.mu.Unlock()
}

func (n *fakeNetwork) set(path string, route fakeRoute) {
	n.mu.Lock()
	n.routes[path] = route
	n.mu.Unlock()
}

func (n *fakeNetwork) Do(req *http.Request) (*http.Response, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.calls = append(n.calls, req.Method+" "+req.URL.RequestURI())
	if n.offline {
		return nil, errors.New("dial tcp 127.0.0.1:8081: connect: connection refused")
	}
	route, ok := n.routes[req.URL.RequestURI()]
	if !ok {
		route = fakeRoute{status: http.StatusNotFound, body: "not found"}
	}
	header := route.header.Clone()
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		StatusCode: route.status,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(route.body)),
		Request:    req,
	}, nil
}
