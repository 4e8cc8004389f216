package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// serverFallback talks to llama-server instances over HTTP, one base URL per
// device. OpenAI-compatible /v1/completions is used throughout.
type serverFallback struct {
	endpoints map[Device]string
	apiKey    string
	client    *http.Client
}

// NewServerFallback constructs the fallback engine from a device→baseURL map.
// A device without an endpoint fails its load attempt immediately, letting
// the cache move on to the next device.
func NewServerFallback(endpoints map[Device]string, apiKey string, connectTimeout time.Duration) Fallback {
	if connectTimeout <= 0 {
		connectTimeout = 5 * time.Second
	}
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	// Timeout stays 0: generation length is unbounded, callers cancel via ctx.
	return &serverFallback{
		endpoints: endpoints,
		apiKey:    apiKey,
		client:    &http.Client{Transport: tr, Timeout: 0},
	}
}

func (e *serverFallback) LoadDevice(ctx context.Context, id string, device Device) (Session, error) {
	base, ok := e.endpoints[device]
	if !ok || strings.TrimSpace(base) == "" {
		return nil, fmt.Errorf("device %s: no endpoint configured", device)
	}
	base = strings.TrimRight(base, "/")
	if err := e.checkHealth(ctx, base); err != nil {
		return nil, fmt.Errorf("device %s: %w", device, err)
	}
	return &serverSession{engine: e, baseURL: base, modelID: id}, nil
}

func (e *serverFallback) checkHealth(ctx context.Context, base string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("health status %d", resp.StatusCode)
	}
	return nil
}

type serverSession struct {
	engine  *serverFallback
	baseURL string
	modelID string
}

// completionRequest is the /v1/completions payload.
type completionRequest struct {
	Model       string   `json:"model,omitempty"`
	Prompt      string   `json:"prompt"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Temperature float64  `json:"temperature,omitempty"`
	TopP        float64  `json:"top_p,omitempty"`
	Stop        []string `json:"stop,omitempty"`
	Stream      bool     `json:"stream"`
}

type completionResponse struct {
	Choices []struct {
		Text string `json:"text"`
	} `json:"choices"`
}

func (s *serverSession) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	payload := completionRequest{
		Model:       s.modelID,
		Prompt:      prompt,
		MaxTokens:   opts.MaxNewTokens,
		Temperature: opts.Temperature,
		TopP:        opts.TopP,
		Stop:        opts.Stop,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.engine.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.engine.apiKey)
	}
	resp, err := s.engine.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("completion status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	var out completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode completion: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}
	return out.Choices[0].Text, nil
}

func (s *serverSession) Close() error { return nil }
