package widget

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/smartbotly/smartbotly/internal/models"
	"github.com/smartbotly/smartbotly/internal/streamfmt"
)

func TestClientFlatReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req models.ChatRequest
		if err := decodeJSON(r, &req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.APIKey != "demo-key" {
			t.Errorf("apiKey = %q", req.APIKey)
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("canned reply"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	reply, err := c.Send(context.Background(), models.ChatRequest{
		Messages: []models.Message{{Role: models.RoleUser, Content: "hi"}},
		APIKey:   "demo-key",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !reply.IsFlat || reply.Flat != "canned reply" {
		t.Errorf("reply = %+v, want flat %q", reply, "canned reply")
	}
}

func TestClientStreamedReply(t *testing.T) {
	fragments := []string{"to", "ken", " by", " token"}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		sw := streamfmt.NewWriter(w)
		for _, f := range fragments {
			if err := sw.WriteText(f); err != nil {
				t.Errorf("WriteText: %v", err)
			}
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	reply, err := c.Send(context.Background(), models.ChatRequest{
		Messages: []models.Message{{Role: models.RoleUser, Content: "hi"}},
		APIKey:   "sk-live-1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if reply.IsFlat {
		t.Fatal("streamed reply came back flat")
	}

	var got strings.Builder
	for frag := range reply.Fragments {
		got.WriteString(frag)
	}
	if got.String() != "token by token" {
		t.Errorf("reconstructed = %q, want %q", got.String(), "token by token")
	}
}

func TestClientStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Invalid API key provided", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Send(context.Background(), models.ChatRequest{
		Messages: []models.Message{{Role: models.RoleUser, Content: "hi"}},
		APIKey:   "sk-bad",
	})

	statusErr, ok := err.(*StatusError)
	if !ok {
		t.Fatalf("error = %T(%v), want *StatusError", err, err)
	}
	if statusErr.Code != http.StatusUnauthorized {
		t.Errorf("Code = %d, want 401", statusErr.Code)
	}
	if !strings.Contains(statusErr.Body, "Invalid API key") {
		t.Errorf("Body = %q", statusErr.Body)
	}
}

func TestClientRemainingCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/validate-key" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req models.ValidateKeyRequest
		if err := decodeJSON(r, &req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		switch req.APIKey {
		case "sk-live-1":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"apiCalls":12}`))
		default:
			http.Error(w, "Invalid API key", http.StatusUnauthorized)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL)

	n, err := c.RemainingCalls(context.Background(), "sk-live-1")
	if err != nil || n != 12 {
		t.Errorf("RemainingCalls = %d, %v; want 12, nil", n, err)
	}

	_, err = c.RemainingCalls(context.Background(), "sk-bad")
	statusErr, ok := err.(*StatusError)
	if !ok || statusErr.Code != http.StatusUnauthorized {
		t.Errorf("error = %v, want 401 StatusError", err)
	}
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
