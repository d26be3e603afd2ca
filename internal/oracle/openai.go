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

type openAIClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	logger  *logrus.Logger
}

func newOpenAI(cfg *config.LLMConfig, logger *logrus.Logger) (*openAIClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llm.api_key is not configured")
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4"
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &openAIClient{
		apiKey:  cfg.APIKey,
		model:   model,
		baseURL: baseURL,
		client:  &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		logger:  logger,
	}, nil
}

func (c *openAIClient) Decide(ctx context.Context, req DecisionRequest) (*Decision, error) {
	c.logger.WithFields(logrus.Fields{
		"provider":   "OpenAI",
		"machine_id": req.Machine.MachineID,
	}).Info("requesting maintenance decision")

	content, err := c.complete(ctx, decisionSystemPrompt, buildUserPrompt(req))
	if err != nil {
		return nil, fmt.Errorf("openai decision request failed: %w", err)
	}
	return parseDecision(content)
}

func (c *openAIClient) ExtractDate(ctx context.Context, emailBody string) (*DateExtraction, error) {
	content, err := c.complete(ctx, dateExtractionSystemPrompt, buildDateExtractionPrompt(emailBody))
	if err != nil {
		return nil, fmt.Errorf("openai date extraction failed: %w", err)
	}
	return parseDateExtraction(content)
}

func (c *openAIClient) ProviderName() string { return "OpenAI" }

func (c *openAIClient) ModelName() string { return c.model }

// complete sends one chat completion and returns the first choice's content.
// response_format pins the reply to a JSON object; the low temperature keeps
// decisions consistent between runs.
func (c *openAIClient) complete(ctx context.Context, system, user string) (string, error) {
	payload := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
		"response_format": map[string]string{"type": "json_object"},
		"temperature":     0.3,
		"max_tokens":      500,
	}

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

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
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to unmarshal api response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("response contained no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
