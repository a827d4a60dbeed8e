package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chatrelay/internal/models"
)

type stubChatService struct {
	lastReq models.ChatRequest
	calls   int
	resp    models.ChatResponse
}

func (s *stubChatService) Reply(ctx context.Context, req models.ChatRequest) models.ChatResponse {
	s.calls++
	s.lastReq = req
	return s.resp
}

func (s *stubChatService) Status() models.StatusResponse {
	return models.StatusResponse{Mode: "lazy", Backend: "huggingface", Model: models.UnavailableModelName}
}

func (s *stubChatService) Reprobe(ctx context.Context) models.StatusResponse {
	return models.StatusResponse{Mode: "lazy", Backend: "huggingface", Active: "https://hf/m/beta", Model: "beta"}
}

func postChat(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "req-42")
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func TestChatHandler_Send(t *testing.T) {
	stub := &stubChatService{resp: models.ChatResponse{Reply: "there!", Status: models.ChatStatusOK, Model: "blenderbot-400M-distill"}}
	h := NewChatHandler(stub)

	body, _ := json.Marshal(models.ChatRequest{
		Message: "Hi",
		History: []models.ChatMessage{{Role: "user", Content: "hello"}, {Role: "assistant", Content: "hey"}},
	})
	rr := postChat(h.Send, string(body))

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp models.ChatResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Reply != "there!" || resp.Model != "blenderbot-400M-distill" {
		t.Errorf("Unexpected response: %+v", resp)
	}
	if stub.lastReq.Message != "Hi" || len(stub.lastReq.History) != 2 {
		t.Errorf("Request not forwarded intact: %+v", stub.lastReq)
	}
}

func TestChatHandler_UpstreamFailureIsStill200(t *testing.T) {
	stub := &stubChatService{resp: models.ChatResponse{
		Reply:  "Sorry, all AI models are unreachable right now. Please restart the application.",
		Status: models.ChatStatusUnavailable,
		Model:  models.UnavailableModelName,
	}}
	rr := postChat(NewChatHandler(stub).Send, `{"message":"Hi"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"status":"unavailable"`) {
		t.Errorf("Expected unavailable status in body, got %s", rr.Body.String())
	}
}

func TestChatHandler_Validation(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"invalid json", `{"message":`, ""},
		{"empty message", `{"message":"   "}`, "message"},
		{"too long", `{"message":"` + strings.Repeat("a", maxMessageRunes+1) + `"}`, "message"},
		{"bad role", `{"message":"Hi","history":[{"role":"system","content":"x"}]}`, "history[0].role"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubChatService{}
			rr := postChat(NewChatHandler(stub).Send, tc.body)

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("Expected 400, got %d", rr.Code)
			}
			if stub.calls != 0 {
				t.Error("Invalid request must not reach the chat service")
			}

			var resp models.ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode error: %v", err)
			}
			if resp.Error.Code != "VALIDATION_ERROR" {
				t.Errorf("Expected VALIDATION_ERROR, got %q", resp.Error.Code)
			}
			if resp.Error.RequestID != "req-42" {
				t.Errorf("Expected request id to be echoed, got %q", resp.Error.RequestID)
			}
			if tc.field != "" {
				if _, ok := resp.Error.Fields[tc.field]; !ok {
					t.Errorf("Expected field error for %q, got %v", tc.field, resp.Error.Fields)
				}
			}
		})
	}
}

func TestChatHandler_Status(t *testing.T) {
	rr := httptest.NewRecorder()
	NewChatHandler(&stubChatService{}).Status(rr, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

	var st models.StatusResponse
	if err := json.NewDecoder(rr.Body).Decode(&st); err != nil {
		t.Fatalf("Failed to decode status: %v", err)
	}
	if st.Model != models.UnavailableModelName || st.Mode != "lazy" {
		t.Errorf("Unexpected status: %+v", st)
	}
}

type stubProbeLister struct {
	limit   int
	results []*models.ProbeResult
	err     error
}

func (s *stubProbeLister) ListRecent(ctx context.Context, limit int) ([]*models.ProbeResult, error) {
	s.limit = limit
	return s.results, s.err
}

func TestAdminHandler_ListProbes(t *testing.T) {
	lister := &stubProbeLister{results: []*models.ProbeResult{{ID: 7, Model: "beta", Success: true, StatusCode: 200}}}
	h := NewAdminHandler(&stubChatService{}, lister)

	rr := httptest.NewRecorder()
	h.ListProbes(rr, httptest.NewRequest(http.MethodGet, "/api/v1/admin/probes?limit=5", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	if lister.limit != 5 {
		t.Errorf("Expected limit 5, got %d", lister.limit)
	}
	if !strings.Contains(rr.Body.String(), `"model":"beta"`) {
		t.Errorf("Unexpected body: %s", rr.Body.String())
	}

	for _, q := range []string{"0", "abc", "501"} {
		rr = httptest.NewRecorder()
		h.ListProbes(rr, httptest.NewRequest(http.MethodGet, "/api/v1/admin/probes?limit="+q, nil))
		if rr.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: expected 400, got %d", q, rr.Code)
		}
	}

	lister.err = errors.New("connection refused")
	rr = httptest.NewRecorder()
	h.ListProbes(rr, httptest.NewRequest(http.MethodGet, "/api/v1/admin/probes", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", rr.Code)
	}
}

func TestAdminHandler_NoProbeHistory(t *testing.T) {
	h := NewAdminHandler(&stubChatService{}, nil)
	rr := httptest.NewRecorder()
	h.ListProbes(rr, httptest.NewRequest(http.MethodGet, "/api/v1/admin/probes", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rr.Code)
	}
}

func TestAdminHandler_Reprobe(t *testing.T) {
	h := NewAdminHandler(&stubChatService{}, nil)
	rr := httptest.NewRecorder()
	h.Reprobe(rr, httptest.NewRequest(http.MethodPost, "/api/v1/admin/reprobe", bytes.NewReader(nil)))

	var st models.StatusResponse
	if err := json.NewDecoder(rr.Body).Decode(&st); err != nil {
		t.Fatalf("Failed to decode status: %v", err)
	}
	if st.Model != "beta" {
		t.Errorf("Expected beta after reprobe, got %+v", st)
	}
}
