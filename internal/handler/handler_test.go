package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/smartbotly/smartbotly/internal/completion"
	"github.com/smartbotly/smartbotly/internal/retrieval"
	"github.com/smartbotly/smartbotly/internal/streamfmt"
	"github.com/smartbotly/smartbotly/internal/usage"
)

// fakeCompleter replays a scripted completion.
type fakeCompleter struct {
	fragments []string
	startErr  error
	streamErr error

	gotReq completion.Request
	calls  int
}

func (f *fakeCompleter) StreamCompletion(_ context.Context, req completion.Request) (<-chan string, <-chan error, error) {
	f.gotReq = req
	f.calls++
	if f.startErr != nil {
		return nil, nil, f.startErr
	}

	fragCh := make(chan string, len(f.fragments))
	errCh := make(chan error, 1)
	for _, frag := range f.fragments {
		fragCh <- frag
	}
	if f.streamErr != nil {
		errCh <- f.streamErr
	}
	close(fragCh)
	close(errCh)
	return fragCh, errCh, nil
}

func newTestHandler(completer completion.Streamer, store usage.Store) *Handler {
	return NewHandler(retrieval.NewKeywordRetriever(nil, 2), completer, store, zerolog.Nop())
}

func postChat(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Chat(rec, req)
	return rec
}

func TestChatValidation(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
		wantBody string
	}{
		{
			name:     "missing messages",
			body:     `{"chatbotId":"default"}`,
			wantCode: http.StatusBadRequest,
			wantBody: "Messages are required",
		},
		{
			name:     "messages not an array",
			body:     `{"messages":"hello"}`,
			wantCode: http.StatusBadRequest,
			wantBody: "Messages are required",
		},
		{
			name:     "empty messages array",
			body:     `{"messages":[]}`,
			wantCode: http.StatusBadRequest,
			wantBody: "Messages are required",
		},
		{
			name:     "last message not from user",
			body:     `{"messages":[{"role":"user","content":"hi"},{"role":"assistant","content":"hello"}]}`,
			wantCode: http.StatusBadRequest,
			wantBody: "Invalid message format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completer := &fakeCompleter{}
			rec := postChat(t, newTestHandler(completer, nil), tt.body)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if got := strings.TrimSpace(rec.Body.String()); got != tt.wantBody {
				t.Errorf("body = %q, want %q", got, tt.wantBody)
			}
			if completer.calls != 0 {
				t.Error("completer was called for an invalid request")
			}
		})
	}
}

func TestChatDemoMode(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantText string
	}{
		{
			name:     "no api key, hours question",
			body:     `{"messages":[{"role":"user","content":"What are your business hours?"}]}`,
			wantText: demoHoursReply,
		},
		{
			name:     "demo sentinel key, greeting",
			body:     `{"messages":[{"role":"user","content":"Hello there"}],"apiKey":"demo-key"}`,
			wantText: demoGreetingReply,
		},
		{
			name:     "no keyword falls back",
			body:     `{"messages":[{"role":"user","content":"tell me about quasars"}]}`,
			wantText: demoFallbackReply,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completer := &fakeCompleter{}
			rec := postChat(t, newTestHandler(completer, nil), tt.body)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
				t.Errorf("Content-Type = %q, want text/plain", ct)
			}
			if rec.Body.String() != tt.wantText {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantText)
			}
			if completer.calls != 0 {
				t.Error("demo mode must not call the model")
			}
		})
	}
}

func TestChatStreamsCompletion(t *testing.T) {
	completer := &fakeCompleter{fragments: []string{"We're open ", `9-6 "EST"`, "\non weekdays."}}
	h := newTestHandler(completer, nil)

	rec := postChat(t, h, `{"messages":[{"role":"user","content":"What are your business hours?"}],"apiKey":"sk-live-1","chatbotId":"default"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %q", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q, want a non-plain stream type", ct)
	}

	var dec streamfmt.Decoder
	got := dec.Feed(rec.Body.Bytes())
	got = append(got, dec.Close()...)
	want := "We're open " + `9-6 "EST"` + "\non weekdays."
	if strings.Join(got, "") != want {
		t.Errorf("reconstructed stream = %q, want %q", strings.Join(got, ""), want)
	}

	// The system prompt must embed the retrieved context and the behavioral
	// instructions.
	if !strings.Contains(completer.gotReq.SystemPrompt, "business hours are Monday-Friday") {
		t.Error("system prompt is missing retrieved context")
	}
	if !strings.Contains(completer.gotReq.SystemPrompt, "Keep responses concise but helpful") {
		t.Error("system prompt is missing instructions")
	}
	if completer.gotReq.Temperature != chatTemperature || completer.gotReq.MaxTokens != chatMaxTokens {
		t.Errorf("sampling = (%v, %d), want (%v, %d)",
			completer.gotReq.Temperature, completer.gotReq.MaxTokens, chatTemperature, chatMaxTokens)
	}
}

func TestChatUpstreamErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		kind     completion.Kind
		wantCode int
		wantBody string
	}{
		{"unauthorized", completion.KindUnauthorized, http.StatusUnauthorized, "Invalid API key provided"},
		{"rate limited", completion.KindRateLimited, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later."},
		{"quota exceeded", completion.KindQuotaExceeded, http.StatusPaymentRequired, "Insufficient quota. Please check your plan and billing details."},
		{"unavailable", completion.KindUnavailable, http.StatusServiceUnavailable, "AI service temporarily unavailable"},
	}

	body := `{"messages":[{"role":"user","content":"hi"}],"apiKey":"sk-live-1"}`

	for _, tt := range tests {
		t.Run(tt.name+" at start", func(t *testing.T) {
			completer := &fakeCompleter{startErr: &completion.Error{Kind: tt.kind, Err: context.DeadlineExceeded}}
			rec := postChat(t, newTestHandler(completer, nil), body)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if got := strings.TrimSpace(rec.Body.String()); got != tt.wantBody {
				t.Errorf("body = %q, want %q", got, tt.wantBody)
			}
		})

		t.Run(tt.name+" before first token", func(t *testing.T) {
			completer := &fakeCompleter{streamErr: &completion.Error{Kind: tt.kind, Err: context.DeadlineExceeded}}
			rec := postChat(t, newTestHandler(completer, nil), body)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
		})
	}
}

func TestChatMetersProvisionedKeys(t *testing.T) {
	store := usage.NewMemoryStore(map[string]int{"sk-live-1": 5})
	completer := &fakeCompleter{fragments: []string{"ok"}}
	h := newTestHandler(completer, store)

	rec := postChat(t, h, `{"messages":[{"role":"user","content":"hi"}],"apiKey":"sk-live-1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	if n, _ := store.Remaining(context.Background(), "sk-live-1"); n != 4 {
		t.Errorf("remaining = %d, want 4", n)
	}
}

func TestValidateKey(t *testing.T) {
	store := usage.NewMemoryStore(map[string]int{"sk-live-1": 7})
	h := newTestHandler(&fakeCompleter{}, store)

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/validate-key", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.ValidateKey(rec, req)
		return rec
	}

	rec := post(`{"apiKey":"sk-live-1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"apiCalls":7}` {
		t.Errorf("body = %q, want {\"apiCalls\":7}", got)
	}

	if rec := post(`{"apiKey":"sk-unknown"}`); rec.Code != http.StatusUnauthorized {
		t.Errorf("unknown key status = %d, want 401", rec.Code)
	}
	if rec := post(`{}`); rec.Code != http.StatusBadRequest {
		t.Errorf("missing key status = %d, want 400", rec.Code)
	}
}
