package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/smartbotly/smartbotly/internal/completion"
	"github.com/smartbotly/smartbotly/internal/models"
	"github.com/smartbotly/smartbotly/internal/retrieval"
	"github.com/smartbotly/smartbotly/internal/streamfmt"
	"github.com/smartbotly/smartbotly/internal/usage"
)

// Sampling parameters for the completion call.
const (
	chatTemperature = 0.7
	chatMaxTokens   = 500
)

// Handler serves the chat API.
type Handler struct {
	retriever retrieval.Retriever
	completer completion.Streamer
	usage     usage.Store
	logger    zerolog.Logger
}

// NewHandler wires the chat endpoint to its collaborators. usage may be nil
// when metering is disabled.
func NewHandler(retriever retrieval.Retriever, completer completion.Streamer, usage usage.Store, logger zerolog.Logger) *Handler {
	return &Handler{
		retriever: retriever,
		completer: completer,
		usage:     usage,
		logger:    logger,
	}
}

// Chat handles POST /api/chat. Requests without a real API key get a canned
// text/plain reply; everything else is answered with a streamed completion
// grounded in retrieved documents.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Messages are required", http.StatusBadRequest)
		return
	}

	if len(req.Messages) == 0 {
		http.Error(w, "Messages are required", http.StatusBadRequest)
		return
	}

	lastMessage := req.Messages[len(req.Messages)-1]
	if lastMessage.Role != models.RoleUser {
		http.Error(w, "Invalid message format", http.StatusBadRequest)
		return
	}

	if req.APIKey == "" || req.APIKey == DemoAPIKey {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprint(w, demoReply(lastMessage.Content))
		return
	}

	h.streamCompletion(w, r, &req, lastMessage.Content)
}

func (h *Handler) streamCompletion(w http.ResponseWriter, r *http.Request, req *models.ChatRequest, query string) {
	ctx := r.Context()

	h.meterCall(ctx, req.APIKey)

	docs := h.retriever.Retrieve(query, req.ChatbotID)

	fragCh, errCh, err := h.completer.StreamCompletion(ctx, completion.Request{
		SystemPrompt: buildSystemPrompt(docs),
		Messages:     req.Messages,
		Temperature:  chatTemperature,
		MaxTokens:    chatMaxTokens,
	})
	if err != nil {
		h.writeCompletionError(w, err)
		return
	}

	// Hold the status line until the first event so upstream failures that
	// occur before any token can still be mapped to an error status.
	var first string
	haveFirst := false
	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			h.writeCompletionError(w, err)
			return
		}
		// errCh closed cleanly; any buffered fragments are drained below.
	case frag, ok := <-fragCh:
		if ok {
			first = frag
			haveFirst = true
		} else if err, ok := <-errCh; ok && err != nil {
			// The stream ended before producing a single token.
			h.writeCompletionError(w, err)
			return
		}
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)

	sw := streamfmt.NewWriter(w)
	if haveFirst {
		if err := sw.WriteText(first); err != nil {
			h.logger.Warn().Err(err).Msg("client went away mid-stream")
			return
		}
	}
	for frag := range fragCh {
		if err := sw.WriteText(frag); err != nil {
			h.logger.Warn().Err(err).Msg("client went away mid-stream")
			return
		}
	}
	if err, ok := <-errCh; ok && err != nil {
		// Headers are long gone; all we can do is cut the body short.
		h.logger.Error().Err(err).Msg("completion failed mid-stream")
	}
}

// meterCall burns one call for provisioned keys. Metering must never block a
// chat, so failures are only logged.
func (h *Handler) meterCall(ctx context.Context, apiKey string) {
	if h.usage == nil {
		return
	}
	if err := h.usage.Consume(ctx, apiKey); err != nil && !errors.Is(err, usage.ErrUnknownKey) {
		h.logger.Error().Err(err).Msg("failed to meter call")
	}
}

func (h *Handler) writeCompletionError(w http.ResponseWriter, err error) {
	status := http.StatusServiceUnavailable
	msg := "AI service temporarily unavailable"

	switch completion.KindOf(err) {
	case completion.KindUnauthorized:
		status = http.StatusUnauthorized
		msg = "Invalid API key provided"
	case completion.KindRateLimited:
		status = http.StatusTooManyRequests
		msg = "Rate limit exceeded. Please try again later."
	case completion.KindQuotaExceeded:
		status = http.StatusPaymentRequired
		msg = "Insufficient quota. Please check your plan and billing details."
	}

	h.logger.Error().Err(err).Int("status", status).Msg("completion failed")
	http.Error(w, msg, status)
}

func buildSystemPrompt(docs []retrieval.Document) string {
	var docCtx strings.Builder
	for i, doc := range docs {
		if i > 0 {
			docCtx.WriteString("\n\n")
		}
		fmt.Fprintf(&docCtx, "Source: %s\nContent: %s", doc.Source, doc.Content)
	}

	return fmt.Sprintf(`You are a helpful customer service assistant for this business. Use the following context to answer questions accurately and helpfully. If you don't know something based on the provided context, say so politely.

Context:
%s

Instructions:
- Be friendly and professional
- Answer based on the provided context
- If asked about appointments, guide users to book through the provided methods
- If you can't answer based on the context, politely say you don't have that information
- Keep responses concise but helpful`, docCtx.String())
}
