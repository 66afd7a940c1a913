package community

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// webhookAck is returned after a question is posted. A webhook can only
// send, so the answer is an acknowledgement rather than a community reply.
const webhookAck = "您的问题已发送到社区，我们的团队会尽快回复您。\n\n您也可以直接访问我们的Discord服务器获取即时帮助。"

// WebhookClient forwards a question to a Discord channel via webhook.
type WebhookClient struct {
	webhookURL string
	httpClient *http.Client
}

func NewWebhookClient(webhookURL string) *WebhookClient {
	return &WebhookClient{
		webhookURL: webhookURL,
		httpClient: &http.Client{},
	}
}

type webhookMessage struct {
	Content  string `json:"content"`
	Username string `json:"username"`
}

func (c *WebhookClient) Ask(ctx context.Context, question string) (string, error) {
	body, err := json.Marshal(webhookMessage{
		Content:  "❓ 用户提问：" + question,
		Username: "ChatBot Query",
	})
	if err != nil {
		return "", fmt.Errorf("marshal webhook message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("webhook request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(respBody))
	}

	return webhookAck, nil
}
