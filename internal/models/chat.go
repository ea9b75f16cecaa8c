package models

// Role identifies the author of a wire message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single entry of the conversation history as sent over the wire.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /api/chat. The last message must have the
// user role; ChatbotID selects the retrieval corpus and APIKey selects demo
// versus real mode.
type ChatRequest struct {
	Messages  []Message `json:"messages"`
	ChatbotID string    `json:"chatbotId,omitempty"`
	APIKey    string    `json:"apiKey,omitempty"`
}

// ValidateKeyRequest is the body of POST /api/validate-key.
type ValidateKeyRequest struct {
	APIKey string `json:"apiKey"`
}

// ValidateKeyResponse reports how many calls remain for a key.
type ValidateKeyResponse struct {
	APICalls int `json:"apiCalls"`
}
