// Package openai implements the llm collaborators against an
// OpenAI-compatible chat-completions API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/synaptideco/synaptide/pkg/chat"
	"github.com/synaptideco/synaptide/pkg/llm"
)

const (
	// DefaultBaseURL is the OpenAI API endpoint; point it elsewhere for
	// compatible gateways.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is used when the config leaves the model empty.
	DefaultModel = "gpt-4o"
)

const systemPrompt = `You are Synaptide, an AI assistant with perfect memory. ` +
	`You remember all prior interactions with the user and use that knowledge to provide personalized, contextual responses. ` +
	`Be helpful, friendly, and conversational. If asked about your capabilities, emphasize your ability to remember ` +
	`the entire conversation history and adapt to the user's preferences over time. ` +
	`Your responses should be concise but informative.`

const analysisPrompt = `Analyze the conversation history and extract information about the user's interests, ` +
	`communication style, and preferences. Return the analysis as a JSON object with the following structure: ` +
	`{ "interests": string[], "communicationStyle": string, "preferences": Record<string, string> }`

// Client talks to a chat-completions endpoint and implements both
// llm.Generator and llm.Analyzer.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// Config holds connection settings for the client.
type Config struct {
	// BaseURL of the chat-completions API. Defaults to DefaultBaseURL.
	BaseURL string

	// APIKey sent as a bearer token. May be empty for local gateways.
	APIKey string

	// Model name. Defaults to DefaultModel.
	Model string
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []llm.ChatMessage `json:"messages"`
	Temperature    float64           `json:"temperature"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat   `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message llm.ChatMessage `json:"message"`
	} `json:"choices"`
}

// NewClient creates a chat-completions client.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// Generate produces an assistant reply for the given history.
func (c *Client) Generate(ctx context.Context, history []llm.ChatMessage) (string, error) {
	messages := make([]llm.ChatMessage, 0, len(history)+1)
	messages = append(messages, llm.ChatMessage{Role: "system", Content: systemPrompt})
	for _, m := range history {
		// The upstream API only accepts user/assistant turns here.
		role := m.Role
		if role != "user" && role != "assistant" {
			role = "assistant"
		}
		messages = append(messages, llm.ChatMessage{Role: role, Content: m.Content})
	}

	resp, err := c.complete(ctx, chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0.7,
		MaxTokens:   500,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", llm.ErrGeneration, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "I'm having trouble generating a response. Please try again.", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// Analyze extracts preference signals from the history using JSON mode.
// Missing fields in the model's answer decode to their defaults.
func (c *Client) Analyze(ctx context.Context, history []llm.ChatMessage) (*chat.ProfileDelta, error) {
	serialized, err := json.Marshal(history)
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling history: %v", llm.ErrAnalysis, err)
	}

	resp, err := c.complete(ctx, chatRequest{
		Model: c.model,
		Messages: []llm.ChatMessage{
			{Role: "system", Content: analysisPrompt},
			{Role: "user", Content: "Analyze these messages to understand user preferences: " + string(serialized)},
		},
		Temperature:    0.3,
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", llm.ErrAnalysis, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices returned", llm.ErrAnalysis)
	}

	var delta chat.ProfileDelta
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &delta); err != nil {
		return nil, fmt.Errorf("%w: decoding analysis: %v", llm.ErrAnalysis, err)
	}
	if delta.CommunicationStyle == "" {
		delta.CommunicationStyle = chat.DefaultCommunicationStyle
	}
	return &delta, nil
}

func (c *Client) complete(ctx context.Context, reqBody chatRequest) (*chatResponse, error) {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("upstream returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &parsed, nil
}
