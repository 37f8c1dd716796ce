// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package llm wraps the chat-completion backend used for
// classification prompts, contradiction verification, and tagging,
// behind a generate(prompt) -> text contract. Grounded on
// internal/ai/openai.go (dummy-vector fallback) and
// internal/ai/question.go (raw net/http chat completion call),
// generalized from a single yes/no helper into a reusable client and
// wrapped with a circuit breaker for a DependencyUnavailable
// fail-fast path when the backend degrades.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/mantisfury/arkham-core/internal/apperr"
	"github.com/mantisfury/arkham-core/internal/logger"
)

// Usage reports token accounting for one completion call.
type Usage struct {
	Model        string
	InputTokens  int
	OutputTokens int
}

// Config configures a Client.
type Config struct {
	APIKey      string
	BaseURL     string // defaults to the OpenAI chat completions endpoint
	Model       string // defaults to gpt-3.5-turbo
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
}

// Client asks a chat-completion backend for text, circuit-broken so a
// failing LLM degrades to DependencyUnavailable instead of hanging
// every caller one at a time.
type Client struct {
	cfg     Config
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
}

const defaultBaseURL = "https://api.openai.com/v1/chat/completions"

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-3.5-turbo"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 512
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "llm-client",
		MaxRequests: 2,
		Interval:    30 * time.Second,
		Timeout:     20 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warnf("llm circuit breaker %q state change: %s -> %s", name, from.String(), to.String())
		},
	})

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: breaker,
	}
}

// Ask satisfies contradiction.Asker and any other caller that just
// wants a single completion for a prompt.
func (c *Client) Ask(ctx context.Context, prompt string) (string, error) {
	text, _, err := c.Generate(ctx, prompt)
	return text, err
}

// Generate sends prompt as a single user message with a system prompt
// tuned by content (structured-JSON requests get a JSON-only system
// prompt, everything else a general assistant prompt), per the
// teacher's isTaggingRequest branch in AskQuestion generalized to any
// prompt shape.
func (c *Client) Generate(ctx context.Context, prompt string) (string, *Usage, error) {
	if c.cfg.APIKey == "" {
		return "", nil, apperr.DependencyUnavailable(nil, "llm api key not configured")
	}

	systemPrompt, maxTokens := systemPromptFor(prompt, c.cfg.MaxTokens)

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.complete(ctx, systemPrompt, prompt, maxTokens)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return "", nil, apperr.DependencyUnavailable(err, "llm circuit breaker open")
		}
		return "", nil, apperr.DependencyUnavailable(err, "llm request failed")
	}

	completion := result.(completionResult)
	return completion.text, &completion.usage, nil
}

func systemPromptFor(prompt string, defaultMaxTokens int) (string, int) {
	lower := strings.ToLower(prompt)
	if strings.Contains(lower, "json") {
		return "You are a helpful assistant that returns ONLY valid JSON, no other text.", defaultMaxTokens
	}
	if strings.Contains(lower, "yes/no") || strings.Contains(lower, "yes or no") {
		return "You are a helpful assistant that answers yes/no questions. Always respond with only 'YES' or 'NO'.", 10
	}
	return "You are a helpful assistant for a document investigation platform.", defaultMaxTokens
}

type completionResult struct {
	text  string
	usage Usage
}

func (c *Client) complete(ctx context.Context, systemPrompt, prompt string, maxTokens int) (completionResult, error) {
	payload := map[string]interface{}{
		"model": c.cfg.Model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": prompt},
		},
		"max_tokens":  maxTokens,
		"temperature": 0.1,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return completionResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return completionResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return completionResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		return completionResult{}, fmt.Errorf("llm backend returned %d: %s", resp.StatusCode, string(errBody))
	}

	var decoded struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
		Model string `json:"model"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return completionResult{}, err
	}
	if len(decoded.Choices) == 0 {
		return completionResult{}, fmt.Errorf("llm backend returned no choices")
	}

	return completionResult{
		text: strings.TrimSpace(decoded.Choices[0].Message.Content),
		usage: Usage{
			Model:        decoded.Model,
			InputTokens:  decoded.Usage.PromptTokens,
			OutputTokens: decoded.Usage.CompletionTokens,
		},
	}, nil
}
