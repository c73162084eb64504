package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mtholden/attend/internal/logging"
)

const defaultOllamaModel = "qwen2.5:7b"

// OllamaClient classifies domains with a local Ollama model.
type OllamaClient struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewOllamaClient creates a client from OLLAMA_URL / OLLAMA_MODEL, with
// the usual localhost defaults.
func NewOllamaClient() *OllamaClient {
	baseURL := os.Getenv("OLLAMA_URL")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	model := os.Getenv("OLLAMA_MODEL")
	if model == "" {
		model = defaultOllamaModel
	}
	return &OllamaClient{
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ClassifyDomains asks the model to classify each domain as productive,
// distraction, or neutral. The response must be a JSON array; anything
// else is an error and the caller applies fallbacks.
func (o *OllamaClient) ClassifyDomains(ctx context.Context, domains []string) ([]Result, error) {
	prompt := fmt.Sprintf(`Classify each website domain as "productive", "distraction", or "neutral" for a software developer's focus tracking.

Respond with ONLY a JSON array, no other text, one object per domain:
[{"domain": "...", "classification": "...", "confidence": 0.0, "reason": "..."}]

Domains: %s`, strings.Join(domains, ", "))

	reqBody := map[string]any{
		"model":  o.model,
		"prompt": prompt,
		"stream": false,
		"format": "json",
	}
	jsonBody, _ := json.Marshal(reqBody)

	req, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/api/generate", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var wrapper struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wrapper); err != nil {
		return nil, fmt.Errorf("ollama decode failed: %w", err)
	}

	results, err := parseResults(wrapper.Response)
	if err != nil {
		return nil, err
	}

	logging.Debug("classify", "ollama classified %d/%d domains", len(results), len(domains))
	return results, nil
}

// parseResults accepts either a bare JSON array or an object wrapping one
// (models with format=json sometimes wrap the array in a key).
func parseResults(raw string) ([]Result, error) {
	raw = strings.TrimSpace(raw)

	var results []Result
	if err := json.Unmarshal([]byte(raw), &results); err == nil {
		return results, nil
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &wrapped); err == nil {
		for _, v := range wrapped {
			if err := json.Unmarshal(v, &results); err == nil {
				return results, nil
			}
		}
	}

	return nil, fmt.Errorf("unparseable classifier response: %s", logging.Truncate(raw, 120))
}
