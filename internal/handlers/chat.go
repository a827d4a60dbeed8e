package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"chatrelay/internal/models"
	"chatrelay/internal/services"
)

const (
	maxMessageRunes = 8000
	maxHistoryTurns = 200
)

type chatService interface {
	Reply(ctx context.Context, req models.ChatRequest) models.ChatResponse
	Status() models.StatusResponse
}

type ChatHandler struct {
	chat chatService
}

func NewChatHandler(chat chatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// Send handles one chat turn. Upstream failures still answer 200: the
// reply text is the message the widget shows to the user.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if err := ValidateChatRequest(req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, h.chat.Reply(r.Context(), req))
}

func (h *ChatHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.chat.Status())
}

// ValidateChatRequest checks a turn before it reaches the model.
func ValidateChatRequest(req models.ChatRequest) error {
	fields := make(map[string]string)

	if strings.TrimSpace(req.Message) == "" {
		fields["message"] = "Message is required"
	} else if utf8.RuneCountInString(req.Message) > maxMessageRunes {
		fields["message"] = fmt.Sprintf("Message must be at most %d characters", maxMessageRunes)
	}

	if len(req.History) > maxHistoryTurns {
		fields["history"] = fmt.Sprintf("History must have at most %d turns", maxHistoryTurns)
	}
	for i, msg := range req.History {
		if msg.Role != "user" && msg.Role != "assistant" {
			fields[fmt.Sprintf("history[%d].role", i)] = "Role must be user or assistant"
		}
	}

	if len(fields) > 0 {
		return &services.ValidationError{Fields: fields}
	}
	return nil
}
