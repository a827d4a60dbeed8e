package services

import (
	"context"
	"errors"
	"time"

	"chatrelay/internal/logging"
	"chatrelay/internal/models"
	"chatrelay/internal/selector"
)

// Backend is an upstream model API reachable through endpoint strings.
type Backend interface {
	Name() string
	Probe(ctx context.Context, endpoint string) (int, error)
	Generate(ctx context.Context, endpoint string, req models.ChatRequest) (string, error)
}

// TurnObserver is told how each chat turn ended.
type TurnObserver interface {
	TurnCompleted(backend, status string, elapsed time.Duration)
}

// User-facing replies for each failure class.
const (
	NoAnswerMessage = "Sorry, I have no answer."

	staticUnavailableMessage = "Sorry, all AI models are currently unavailable. Please restart the application."
	lazyUnavailableMessage   = "Sorry, all AI models are unreachable right now. Please restart the application."
	staticTransportMessage   = "The AI model seems unavailable right now, please try again."
	lazyTransportMessage     = "A communication error occurred. Please resend your message."
	fixedTransportMessage    = "The AI model could not be reached. Please try again."
)

// UnavailableMessage is the reply when no endpoint can be resolved.
func UnavailableMessage(mode selector.Mode) string {
	if mode == selector.ModeLazy {
		return lazyUnavailableMessage
	}
	return staticUnavailableMessage
}

// TransportFailureMessage is the reply when a resolved endpoint fails mid-turn.
func TransportFailureMessage(mode selector.Mode) string {
	switch mode {
	case selector.ModeLazy:
		return lazyTransportMessage
	case selector.ModeFixed:
		return fixedTransportMessage
	default:
		return staticTransportMessage
	}
}

// ChatService runs one chat turn: resolve an endpoint, call the backend,
// clean the reply. Failures become user-facing replies, never errors.
type ChatService struct {
	backend  Backend
	selector *selector.Selector
	timeout  time.Duration
	observer TurnObserver
}

// NewChatService wires a backend to its selector. timeout bounds each
// conversational call; zero leaves it to the caller's context.
func NewChatService(backend Backend, sel *selector.Selector, timeout time.Duration, observer TurnObserver) *ChatService {
	return &ChatService{
		backend:  backend,
		selector: sel,
		timeout:  timeout,
		observer: observer,
	}
}

func (s *ChatService) Reply(ctx context.Context, req models.ChatRequest) models.ChatResponse {
	start := time.Now()
	resp := s.reply(ctx, req)
	if s.observer != nil {
		s.observer.TurnCompleted(s.backend.Name(), resp.Status, time.Since(start))
	}
	return resp
}

func (s *ChatService) reply(ctx context.Context, req models.ChatRequest) models.ChatResponse {
	mode := s.selector.Mode()

	endpoint, err := s.selector.Resolve(ctx)
	if err != nil && ctx.Err() != nil {
		return cancelledResponse(mode, models.UnavailableModelName)
	}
	if err != nil {
		logging.Warn("no model endpoint for chat turn", "mode", mode, "err", err)
		return models.ChatResponse{
			Reply:  UnavailableMessage(mode),
			Status: models.ChatStatusUnavailable,
			Model:  models.UnavailableModelName,
		}
	}

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	model := models.ModelName(endpoint)
	raw, err := s.backend.Generate(callCtx, endpoint, req)
	switch {
	case err == nil:
		return models.ChatResponse{
			Reply:  CleanReply(req.Message, raw),
			Status: models.ChatStatusOK,
			Model:  model,
		}
	case errors.Is(err, ErrNoGeneratedText):
		return models.ChatResponse{
			Reply:  NoAnswerMessage,
			Status: models.ChatStatusOK,
			Model:  model,
		}
	}

	// A caller that gave up says nothing about the endpoint's health.
	if ctx.Err() != nil {
		logging.Debug("chat turn abandoned by caller", "model", model, "err", ctx.Err())
		return cancelledResponse(mode, model)
	}

	logging.Error("chat turn failed", "model", model, "err", err)
	// Static and fixed modes keep the endpoint for the process lifetime.
	s.selector.Invalidate(endpoint)
	return models.ChatResponse{
		Reply:  TransportFailureMessage(mode),
		Status: models.ChatStatusUpstreamError,
		Model:  model,
	}
}

func cancelledResponse(mode selector.Mode, model string) models.ChatResponse {
	return models.ChatResponse{
		Reply:  TransportFailureMessage(mode),
		Status: models.ChatStatusCancelled,
		Model:  model,
	}
}

// Status reports the selector state without probing.
func (s *ChatService) Status() models.StatusResponse {
	active, _ := s.selector.Active()
	return models.StatusResponse{
		Mode:    string(s.selector.Mode()),
		Backend: s.backend.Name(),
		Active:  active,
		Model:   models.ModelName(active),
	}
}

// Reprobe forces a fresh probe pass and returns the resulting status.
func (s *ChatService) Reprobe(ctx context.Context) models.StatusResponse {
	if _, err := s.selector.Reprobe(ctx); err != nil {
		logging.Warn("reprobe found no endpoint", "err", err)
	}
	return s.Status()
}
