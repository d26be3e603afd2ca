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

const anthropicVersion = "2023-06-01"

type claudeClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	logger  *logrus.Logger
}

func newClaude(cfg *config.LLMConfig, logger *logrus.Logger) (*claudeClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llm.api_key is not configured")
	}
	model := cfg.Model
	if model == "" {
		model = "claude-3-5-sonnet-20241022"
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com/v1"
	}
	return &claudeClient{
		apiKey:  cfg.APIKey,
		model:   model,
		baseURL: baseURL,
		client:  &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		logger:  logger,
	}, nil
}

func (c *claudeClient) Decide(ctx context.Context, req DecisionRequest) (*Decision, error) {
	c.logger.WithFields(logrus.Fields{
		"provider":   "Claude",
		"machine_id": req.Machine.MachineID,
	}).Info("requesting maintenance decision")

	content, err := c.complete(ctx, decisionSystemPrompt, buildUserPrompt(req))
	if err != nil {
		return nil, fmt.Errorf("claude decision request failed: %w", err)
	}
	return parseDecision(content)
}

func (c *claudeClient) ExtractDate(ctx context.Context, emailBody string) (*DateExtraction, error) {
	content, err := c.complete(ctx, dateExtractionSystemPrompt, buildDateExtractionPrompt(emailBody))
	if err != nil {
		return nil, fmt.Errorf("claude date extraction failed: %w", err)
	}
	return parseDateExtraction(content)
}

func (c *claudeClient) ProviderName() string { return "Claude" }

func (c *claudeClient) ModelName() string { return c.model }

func (c *claudeClient) complete(ctx context.Context, system, user string) (string, error) {
	payload := map[string]any{
		"model":       c.model,
		"max_tokens":  1024,
		"temperature": 0.3,
		"system":      system,
		"messages": []map[string]string{
			{"role": "user", "content": user},
		},
	}

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

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
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to unmarshal api response: %w", err)
	}
	if len(parsed.Content) == 0 {
		return "", errors.New("response contained no content blocks")
	}
	return parsed.Content[0].Text, nil
}
