package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	qwenModel        = "qwen-turbo"
	qwenSystemPrompt = "你是一个友好、专业的智能助手。请用简洁、清晰的语言回答问题，适当使用emoji增加亲和力。"
)

// QwenClient calls the DashScope text-generation API.
type QwenClient struct {
	apiKey     string
	apiURL     string
	httpClient *http.Client
}

func NewQwenClient(apiKey, apiURL string) *QwenClient {
	return &QwenClient{
		apiKey:     apiKey,
		apiURL:     apiURL,
		httpClient: &http.Client{},
	}
}

type qwenMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type qwenRequest struct {
	Model string `json:"model"`
	Input struct {
		Messages []qwenMessage `json:"messages"`
	} `json:"input"`
	Parameters struct {
		ResultFormat string  `json:"result_format"`
		MaxTokens    int     `json:"max_tokens"`
		Temperature  float64 `json:"temperature"`
		TopP         float64 `json:"top_p"`
	} `json:"parameters"`
}

type qwenResponse struct {
	Output struct {
		Choices []struct {
			Message qwenMessage `json:"message"`
		} `json:"choices"`
	} `json:"output"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func (c *QwenClient) Generate(ctx context.Context, message string) (string, error) {
	reqBody := qwenRequest{Model: qwenModel}
	reqBody.Input.Messages = []qwenMessage{
		{Role: "system", Content: qwenSystemPrompt},
		{Role: "user", Content: message},
	}
	reqBody.Parameters.ResultFormat = "message"
	reqBody.Parameters.MaxTokens = 500
	reqBody.Parameters.Temperature = 0.7
	reqBody.Parameters.TopP = 0.8

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal qwen request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create qwen request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("qwen request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read qwen response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("qwen API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result qwenResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("unmarshal qwen response: %w", err)
	}
	if result.Code != "" {
		return "", fmt.Errorf("qwen API error %s: %s", result.Code, result.Message)
	}
	if len(result.Output.Choices) == 0 {
		return "", fmt.Errorf("qwen response contained no choices")
	}

	reply := formatReply(result.Output.Choices[0].Message.Content)
	if reply == "" {
		return "", fmt.Errorf("qwen response was empty")
	}
	return reply, nil
}

// formatReply normalizes whitespace in a model reply: collapses runs of
// blank lines and trims the ends.
func formatReply(text string) string {
	for strings.Contains(text, "\n\n\n") {
		text = strings.ReplaceAll(text, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(text)
}
