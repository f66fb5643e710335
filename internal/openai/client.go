package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.openai.com/v1"

const (
	maxReplyTokens = 100
	imageSize      = "1024x1024"
)

// personaBias penalizes emoji shortcode fragments and colons so completions
// stay in plain prose. Token IDs are for the r50k_base vocabulary of the
// fine-tuned completion model.
var personaBias = map[string]float64{
	"25":    -1.1,
	"2633":  -0.5,
	"36251": -0.5,
	"14511": -0.5,
	"4386":  -0.5,
	"18886": -0.1,
	"62":    -1.1,
}

type Client struct {
	apiKey    string
	model     string // fine-tuned completion model imitating the persona
	chatModel string
	baseURL   string
	client    *http.Client
}

func NewClient(apiKey, model, chatModel string) *Client {
	return &Client{
		apiKey:    apiKey,
		model:     model,
		chatModel: chatModel,
		baseURL:   defaultBaseURL,
		client:    &http.Client{Timeout: 120 * time.Second},
	}
}

// SetTestTransport points the client at a test server.
func (c *Client) SetTestTransport(url string) {
	c.baseURL = url
}

type completionRequest struct {
	Model            string             `json:"model"`
	Prompt           string             `json:"prompt"`
	MaxTokens        int                `json:"max_tokens"`
	Temperature      float64            `json:"temperature"`
	PresencePenalty  float64            `json:"presence_penalty"`
	FrequencyPenalty float64            `json:"frequency_penalty"`
	BestOf           int                `json:"best_of"`
	Stop             string             `json:"stop"`
	LogitBias        map[string]float64 `json:"logit_bias"`
}

type completionResponse struct {
	Choices []struct {
		Text string `json:"text"`
	} `json:"choices"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type imageRequest struct {
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}

type imageResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete runs the persona completion model over a prompt with the fixed
// decoding configuration the model was tuned against, returning the trimmed
// single-line reply.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	req := completionRequest{
		Model:            c.model,
		Prompt:           prompt,
		MaxTokens:        maxReplyTokens,
		Temperature:      0.85,
		PresencePenalty:  -0.2,
		FrequencyPenalty: 0.8,
		BestOf:           10,
		Stop:             "\n",
		LogitBias:        personaBias,
	}

	var resp completionResponse
	if err := c.post(ctx, "/completions", req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion choices")
	}
	return strings.TrimSpace(resp.Choices[0].Text), nil
}

// Chat runs a one-shot system+user chat exchange and returns the trimmed
// assistant message.
func (c *Client) Chat(ctx context.Context, system, user string) (string, error) {
	req := chatRequest{
		Model: c.chatModel,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}

	var resp chatResponse
	if err := c.post(ctx, "/chat/completions", req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty chat choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Image generates a single image for a prompt and returns its URL.
func (c *Client) Image(ctx context.Context, prompt string) (string, error) {
	req := imageRequest{
		Prompt: prompt,
		N:      1,
		Size:   imageSize,
	}

	var resp imageResponse
	if err := c.post(ctx, "/images/generations", req, &resp); err != nil {
		return "", err
	}
	if len(resp.Data) == 0 {
		return "", fmt.Errorf("empty image data")
	}
	return resp.Data[0].URL, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("api call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			return fmt.Errorf("api error %d: %s", resp.StatusCode, errResp.Error.Message)
		}
		return fmt.Errorf("api error %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
