package models

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// ChatRequest is the payload sent to the chat endpoint. History carries
// every prior turn; the server keeps no conversation state.
type ChatRequest struct {
	Message string        `json:"message"`
	History []ChatMessage `json:"history"`
}

// Reply statuses.
const (
	ChatStatusOK            = "ok"
	ChatStatusUnavailable   = "unavailable"
	ChatStatusUpstreamError = "upstream_error"
	// ChatStatusCancelled means the caller went away before the turn ended.
	ChatStatusCancelled = "cancelled"
)

// ChatResponse is the reply from the AI chat.
type ChatResponse struct {
	Reply  string `json:"reply"`
	Status string `json:"status"`
	Model  string `json:"model"`
}
