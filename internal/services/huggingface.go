package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"chatrelay/internal/logging"
	"chatrelay/internal/models"
)

// maxErrorBody caps how much of an upstream error body is kept for logs.
const maxErrorBody = 4 << 10

// HuggingFaceClient talks to text-generation inference endpoints that
// accept {"inputs": "..."} and answer [{"generated_text": "..."}].
type HuggingFaceClient struct {
	httpClient *http.Client
	token      string
	probeInput string
}

type inferenceRequest struct {
	Inputs string `json:"inputs"`
}

type inferenceOutput struct {
	GeneratedText *string `json:"generated_text"`
}

func NewHuggingFaceClient(token, probeInput string, httpClient *http.Client) *HuggingFaceClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if probeInput == "" {
		probeInput = "Hello"
	}
	if token == "" {
		logging.Warn("HF_API_TOKEN is not set; inference requests will be rejected upstream")
	}
	return &HuggingFaceClient{
		httpClient: httpClient,
		token:      token,
		probeInput: probeInput,
	}
}

func (c *HuggingFaceClient) Name() string { return "huggingface" }

// Probe sends the probe input and reports the status code. The body is
// discarded.
func (c *HuggingFaceClient) Probe(ctx context.Context, endpoint string) (int, error) {
	resp, err := c.post(ctx, endpoint, c.probeInput)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

// Generate sends the user's message. Only the message is sent: these
// endpoints take a single input string, not a turn history.
func (c *HuggingFaceClient) Generate(ctx context.Context, endpoint string, req models.ChatRequest) (string, error) {
	resp, err := c.post(ctx, endpoint, req.Message)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		logging.Error("inference request failed", "model", models.ModelName(endpoint), "status", resp.StatusCode, "body", string(body))
		return "", &UpstreamError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read inference response: %w", err)
	}
	return parseInferenceOutput(body)
}

func parseInferenceOutput(body []byte) (string, error) {
	var outputs []inferenceOutput
	if err := json.Unmarshal(body, &outputs); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(outputs) == 0 {
		return "", fmt.Errorf("%w: empty output list", ErrMalformedResponse)
	}
	if outputs[0].GeneratedText == nil {
		return "", ErrNoGeneratedText
	}
	return *outputs[0].GeneratedText, nil
}

func (c *HuggingFaceClient) post(ctx context.Context, endpoint, inputs string) (*http.Response, error) {
	body, err := json.Marshal(inferenceRequest{Inputs: inputs})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", models.ModelName(endpoint), err)
	}
	return resp, nil
}
