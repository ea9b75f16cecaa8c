package completion

import (
	"errors"
	"fmt"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{
			name: "401 maps to unauthorized",
			err:  &openai.APIError{HTTPStatusCode: 401, Message: "Incorrect API key provided"},
			want: KindUnauthorized,
		},
		{
			name: "403 maps to unauthorized",
			err:  &openai.APIError{HTTPStatusCode: 403},
			want: KindUnauthorized,
		},
		{
			name: "429 maps to rate limited",
			err:  &openai.APIError{HTTPStatusCode: 429, Message: "Rate limit reached"},
			want: KindRateLimited,
		},
		{
			name: "429 with insufficient_quota maps to quota exceeded",
			err:  &openai.APIError{HTTPStatusCode: 429, Code: "insufficient_quota"},
			want: KindQuotaExceeded,
		},
		{
			name: "5xx maps to unavailable",
			err:  &openai.APIError{HTTPStatusCode: 503},
			want: KindUnavailable,
		},
		{
			name: "request error status is honored",
			err:  &openai.RequestError{HTTPStatusCode: 401, Err: errors.New("unauthorized")},
			want: KindUnauthorized,
		},
		{
			name: "transport error maps to unavailable",
			err:  errors.New("dial tcp: connection refused"),
			want: KindUnavailable,
		},
		{
			name: "wrapped api error is unwrapped",
			err:  fmt.Errorf("stream: %w", &openai.APIError{HTTPStatusCode: 429}),
			want: KindRateLimited,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			var ce *Error
			if !errors.As(got, &ce) {
				t.Fatalf("classify returned %T, want *Error", got)
			}
			if ce.Kind != tt.want {
				t.Errorf("Kind = %v, want %v", ce.Kind, tt.want)
			}
			if !errors.Is(got, tt.err) && ce.Unwrap() == nil {
				t.Error("classified error lost its cause")
			}
		})
	}
}

func TestKindOfPlainError(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != KindUnavailable {
		t.Errorf("KindOf = %v, want KindUnavailable", got)
	}
}
