package e2etest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// Reply answers one chat completion request. A status other than 200 is sent as an API error.
type Reply func(system, user string) (status int, content string)

// CompletionServer fakes the chat completions endpoint of the OpenAI API.
type CompletionServer struct {
	server *httptest.Server

	mu       sync.Mutex
	reply    Reply
	requests int
}

// NewCompletionServer starts a fake that answers with reply. It is closed when the test ends.
func NewCompletionServer(t *testing.T, reply Reply) *CompletionServer {
	t.Helper()
	s := &CompletionServer{reply: reply}
	s.server = httptest.NewServer(http.HandlerFunc(s.serveHTTP))
	t.Cleanup(s.server.Close)
	return s
}

// BaseURL is the value for option.WithBaseURL.
func (s *CompletionServer) BaseURL() string {
	return s.server.URL + "/v1/"
}

// SetReply replaces the reply function for subsequent requests.
func (s *CompletionServer) SetReply(reply Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reply = reply
}

// Requests returns the number of completion requests served so far.
func (s *CompletionServer) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func (s *CompletionServer) serveHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || r.URL.Path != "/v1/chat/completions" {
		http.NotFound(w, r)
		return
	}
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var system, user string
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			system = m.Content
		case "user":
			user = m.Content
		}
	}

	s.mu.Lock()
	s.requests++
	reply := s.reply
	s.mu.Unlock()
	status, content := reply(system, user)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if status != http.StatusOK {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": content, "type": "fake_error", "code": "fake"},
		})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":      "chatcmpl-fake",
		"object":  "chat.completion",
		"created": 1760000000, //nolint:mnd // fixed timestamp.
		"model":   req.Model,
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
		"usage": map[string]any{"prompt_tokens": len(system) / 4, "completion_tokens": len(content) / 4,
			"total_tokens": (len(system) + len(content)) / 4},
	})
}
