// Package slacktest provides a fake Slack Web API for tests.
package slacktest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// Handler answers one Web API method.
type Handler func(w http.ResponseWriter, r *http.Request)

// Server is an httptest server routing /api/<method> to registered handlers.
type Server struct {
	srv *httptest.Server

	mu       sync.Mutex
	handlers map[string]Handler
	calls    map[string]int
	tokens   []string
}

// NewServer starts a fake closed automatically when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		handlers: map[string]Handler{},
		calls:    map[string]int{},
	}
	s.srv = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.srv.Close)

	return s
}

// URL is the API base URL to pass to slack.ClientOptions.BaseURL.
func (s *Server) URL() string {
	return s.srv.URL + "/api/"
}

// Handle registers h for method, replacing any previous handler.
func (s *Server) Handle(method string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.handlers[method] = h
}

// Calls reports how many requests method has received.
func (s *Server) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.calls[method]
}

// Tokens returns the bearer tokens seen, in request order.
func (s *Server) Tokens() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.tokens...)
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	method := strings.TrimPrefix(r.URL.Path, "/api/")
	_ = r.ParseForm()

	s.mu.Lock()
	s.calls[method]++
	s.tokens = append(s.tokens, strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	h := s.handlers[method]
	s.mu.Unlock()

	if h == nil {
		Fail(w, "unknown_method")
		return
	}

	h(w, r)
}

// OK writes {"ok":true} merged with fields.
func OK(w http.ResponseWriter, fields map[string]any) {
	body := map[string]any{"ok": true}
	for k, v := range fields {
		body[k] = v
	}

	writeJSON(w, http.StatusOK, body)
}

// Fail writes {"ok":false,"error":code}.
func Fail(w http.ResponseWriter, code string) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": false, "error": code})
}

// Throttle writes an HTTP 429 with Retry-After in seconds; zero omits the header.
func Throttle(w http.ResponseWriter, retryAfterSeconds int) {
	if retryAfterSeconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	}

	writeJSON(w, http.StatusTooManyRequests, map[string]any{"ok": false, "error": "ratelimited"})
}

// Static answers every call with the same fields.
func Static(fields map[string]any) Handler {
	return func(w http.ResponseWriter, _ *http.Request) {
		OK(w, fields)
	}
}

// Sequence answers the n-th call with handlers[n], repeating the last one.
func Sequence(handlers ...Handler) Handler {
	var (
		mu sync.Mutex
		n  int
	)

	return func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		i := min(n, len(handlers)-1)
		n++
		mu.Unlock()

		handlers[i](w, r)
	}
}

// ByType dispatches conversations.list on its types parameter.
func ByType(byTypes map[string]Handler) Handler {
	return func(w http.ResponseWriter, r *http.Request) {
		if h, ok := byTypes[r.Form.Get("types")]; ok {
			h(w, r)
			return
		}

		OK(w, map[string]any{"channels": []any{}})
	}
}

// ByChannel dispatches on the channel parameter.
func ByChannel(byChannel map[string]Handler) Handler {
	return func(w http.ResponseWriter, r *http.Request) {
		if h, ok := byChannel[r.Form.Get("channel")]; ok {
			h(w, r)
			return
		}

		Fail(w, "channel_not_found")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
