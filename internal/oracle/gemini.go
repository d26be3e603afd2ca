package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"pm-workorder-backend/config"
)

type geminiClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	logger  *logrus.Logger
}

func newGemini(cfg *config.LLMConfig, logger *logrus.Logger) (*geminiClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llm.api_key is not configured")
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-1.5-pro-002"
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1"
	}
	return &geminiClient{
		apiKey:  cfg.APIKey,
		model:   model,
		baseURL: baseURL,
		client:  &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		logger:  logger,
	}, nil
}

func (c *geminiClient) Decide(ctx context.Context, req DecisionRequest) (*Decision, error) {
	c.logger.WithFields(logrus.Fields{
		"provider":   "Gemini",
		"machine_id": req.Machine.MachineID,
	}).Info("requesting maintenance decision")

	content, err := c.complete(ctx, decisionSystemPrompt, buildUserPrompt(req))
	if err != nil {
		return nil, fmt.Errorf("gemini decision request failed: %w", err)
	}
	return parseDecision(content)
}

func (c *geminiClient) ExtractDate(ctx context.Context, emailBody string) (*DateExtraction, error) {
	content, err := c.complete(ctx, dateExtractionSystemPrompt, buildDateExtractionPrompt(emailBody))
	if err != nil {
		return nil, fmt.Errorf("gemini date extraction failed: %w", err)
	}
	return parseDateExtraction(content)
}

func (c *geminiClient) ProviderName() string { return "Gemini" }

func (c *geminiClient) ModelName() string { return c.model }

// complete calls generateContent. Gemini has no separate system role, so the
// system prompt is prepended to the user prompt.
func (c *geminiClient) complete(ctx context.Context, system, user string) (string, error) {
	payload := map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]string{{"text": system + "\n\n" + user}}},
		},
		"generationConfig": map[string]any{
			"temperature":     0.3,
			"topP":            0.95,
			"topK":            40,
			"maxOutputTokens": 1024,
		},
	}

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request payload: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("received non-200 status code: %d: %s", resp.StatusCode, body)
	}

	var parsed struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to unmarshal api response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("response contained no candidates")
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}
