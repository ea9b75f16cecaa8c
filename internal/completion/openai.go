package completion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/smartbotly/smartbotly/internal/models"
)

// OpenAIStreamer implements Streamer over the OpenAI chat-completions API.
type OpenAIStreamer struct {
	client *openai.Client
	model  string
}

// NewOpenAIStreamer builds a streamer for the given model.
func NewOpenAIStreamer(client *openai.Client, model string) *OpenAIStreamer {
	return &OpenAIStreamer{client: client, model: model}
}

// StreamCompletion opens a streaming completion and forwards token deltas on
// the fragment channel until the provider signals the end of the stream.
func (s *OpenAIStreamer) StreamCompletion(ctx context.Context, req Request) (<-chan string, <-chan error, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	for _, m := range req.Messages {
		role := openai.ChatMessageRoleUser
		if m.Role == models.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	stream, err := s.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Messages:    msgs,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      true,
	})
	if err != nil {
		return nil, nil, classify(err)
	}

	fragCh := make(chan string, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(fragCh)
		defer close(errCh)
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				errCh <- classify(err)
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			delta := resp.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			select {
			case fragCh <- delta:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
	}()

	return fragCh, errCh, nil
}

// classify maps a provider error onto a Kind using the HTTP status and error
// code the API reports, not the message text.
func classify(err error) error {
	kind := KindUnavailable

	var apiErr *openai.APIError
	var reqErr *openai.RequestError

	status := 0
	code := ""
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
		if c, ok := apiErr.Code.(string); ok {
			code = c
		}
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = KindUnauthorized
	case code == "insufficient_quota" || status == http.StatusPaymentRequired:
		// OpenAI reports exhausted quota as 429 with this code.
		kind = KindQuotaExceeded
	case status == http.StatusTooManyRequests:
		kind = KindRateLimited
	}

	return &Error{Kind: kind, Err: fmt.Errorf("openai: %w", err)}
}
