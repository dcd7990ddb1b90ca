// Package telegramtest runs a fake Bot API server that records calls.
package telegramtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// Token is the bot token the fake server expects.
const Token = "123456:TEST"

// Call is one recorded request.
type Call struct {
	Method string
	Params map[string]string
}

// Param returns a form value of the call.
func (c Call) Param(key string) string {
	return c.Params[key]
}

// Server is a fake Bot API.
type Server struct {
	*httptest.Server

	mu    sync.Mutex
	calls []Call
	fail  map[string]string
}

// NewServer starts a fake Bot API closed at test cleanup.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{fail: map[string]string{}}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// Endpoint is the format string for telegram.Config.Endpoint.
func (s *Server) Endpoint() string {
	return s.URL + "/bot%s/%s"
}

// FailMethod makes every call to method answer ok=false with description.
func (s *Server) FailMethod(method, description string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[method] = description
}

// Calls returns all recorded calls in order.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallsTo returns the recorded calls of one method.
func (s *Server) CallsTo(method string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Count returns how many times method was called.
func (s *Server) Count(method string) int {
	return len(s.CallsTo(method))
}

// Reset forgets recorded calls.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	w.Header().Set("Content-Type", "application/json")
	if len(parts) != 2 || parts[0] != "bot"+Token {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error_code": 401, "description": "Unauthorized"})
		return
	}
	method := parts[1]

	_ = r.ParseForm()
	params := make(map[string]string, len(r.PostForm))
	for k := range r.PostForm {
		params[k] = r.PostForm.Get(k)
	}

	s.mu.Lock()
	s.calls = append(s.calls, Call{Method: method, Params: params})
	desc, failing := s.fail[method]
	s.mu.Unlock()

	if failing {
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error_code": 400, "description": desc})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": true})
}
