package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"chatrelay/internal/logging"
	"chatrelay/internal/models"
)

// chatSession is the part of *genai.ChatSession the service uses.
type chatSession interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiService sends full conversations to Gemini. The endpoint passed to
// Probe and Generate is a model name such as "gemini-1.5-flash".
type GeminiService struct {
	client     *genai.Client
	probeInput string
	startChat  func(model string, history []*genai.Content) chatSession
}

func NewGeminiService(ctx context.Context, apiKey, probeInput string, opts ...option.ClientOption) (*GeminiService, error) {
	if apiKey == "" {
		logging.Warn("GEMINI_API_KEY is not set; Gemini requests will be rejected upstream")
	}
	client, err := genai.NewClient(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	s := &GeminiService{client: client, probeInput: probeInput}
	s.startChat = func(model string, history []*genai.Content) chatSession {
		m := client.GenerativeModel(model)
		m.SetTemperature(0.7)
		cs := m.StartChat()
		cs.History = history
		return cs
	}
	if s.probeInput == "" {
		s.probeInput = "Hello"
	}
	return s, nil
}

func (s *GeminiService) Close() {
	if s.client != nil {
		s.client.Close()
	}
}

func (s *GeminiService) Name() string { return "gemini" }

// Probe runs a one-message generation. SDK success counts as 200.
func (s *GeminiService) Probe(ctx context.Context, model string) (int, error) {
	if _, err := s.startChat(model, nil).SendMessage(ctx, genai.Text(s.probeInput)); err != nil {
		return statusFromError(err), err
	}
	return http.StatusOK, nil
}

// Generate replays the history as contents and sends the new message.
func (s *GeminiService) Generate(ctx context.Context, model string, req models.ChatRequest) (string, error) {
	cs := s.startChat(model, toContents(req.History))
	resp, err := cs.SendMessage(ctx, genai.Text(req.Message))
	if err != nil {
		logging.Error("Gemini request failed", "model", model, "err", err)
		if code := statusFromError(err); code != 0 {
			return "", &UpstreamError{StatusCode: code, Body: err.Error()}
		}
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	text := extractText(resp)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: no text in candidates", ErrMalformedResponse)
	}
	return text, nil
}

// toContents maps widget roles onto Gemini's "user" and "model".
func toContents(history []models.ChatMessage) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, msg := range history {
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		role := "user"
		switch strings.ToLower(msg.Role) {
		case "assistant":
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(msg.Content)},
		})
	}
	return contents
}

// extractText joins the text parts of the first candidate.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil {
		return ""
	}
	var text strings.Builder
	for _, part := range cand.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	return text.String()
}

func statusFromError(err error) int {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return 0
}
