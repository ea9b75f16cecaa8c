package widget

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/smartbotly/smartbotly/internal/models"
	"github.com/smartbotly/smartbotly/internal/streamfmt"
)

// StatusError is a chat request the server answered with a non-200 status.
// The widget maps the code to a user-facing message instead of sniffing
// error text.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("chat request failed: %d %s", e.Code, strings.TrimSpace(e.Body))
}

// Reply is the server's answer to one send: either a complete flat text
// (demo mode) or a fragment stream.
type Reply struct {
	IsFlat bool
	Flat   string

	// Fragments delivers decoded stream fragments in arrival order and is
	// closed when the transport reaches EOF.
	Fragments <-chan string
}

// Client talks to the chat service. It implements both Transport and
// UsageChecker.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the service at baseURL. No timeout is set on
// the underlying client; pass deadlines through the context.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
	}
}

// Send posts the conversation to the chat endpoint. Plain-text responses are
// returned whole; anything else is decoded incrementally on the Fragments
// channel.
func (c *Client) Send(ctx context.Context, chatReq models.ChatRequest) (*Reply, error) {
	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		return nil, &StatusError{Code: resp.StatusCode, Body: string(b)}
	}

	if strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain") {
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		return &Reply{IsFlat: true, Flat: string(b)}, nil
	}

	fragCh := make(chan string, 16)
	go func() {
		defer close(fragCh)
		defer resp.Body.Close()

		var dec streamfmt.Decoder
		buf := make([]byte, 4096)
		for {
			n, err := resp.Body.Read(buf)
			if n > 0 {
				for _, frag := range dec.Feed(buf[:n]) {
					fragCh <- frag
				}
			}
			if err != nil {
				// EOF ends the stream; there is no explicit done marker.
				for _, frag := range dec.Close() {
					fragCh <- frag
				}
				return
			}
		}
	}()

	return &Reply{Fragments: fragCh}, nil
}

// RemainingCalls implements UsageChecker against the validate-key endpoint.
func (c *Client) RemainingCalls(ctx context.Context, apiKey string) (int, error) {
	body, err := json.Marshal(models.ValidateKeyRequest{APIKey: apiKey})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/validate-key", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return 0, &StatusError{Code: resp.StatusCode, Body: string(b)}
	}

	var vr models.ValidateKeyResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return 0, err
	}
	return vr.APICalls, nil
}
