package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	// verifyTimeout bounds the agent-verification call made at startup.
	verifyTimeout = 30 * time.Second
	// messageTimeout bounds a single chat turn.
	messageTimeout = 45 * time.Second
)

// ErrChatTimeout marks a chat call aborted after exceeding its wait bound.
var ErrChatTimeout = errors.New("chat agent timed out")

const mockReply = "This is a mock response from the AI assistant."

// ChatClient talks to the LLM chat agent sidecar. With no base URL configured
// it degrades to canned replies, mirroring the search client's
// placeholder-on-missing-config policy.
type ChatClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

func NewChatClient(client *http.Client, baseURL, apiKey string, logger *zap.Logger) *ChatClient {
	return &ChatClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  client,
		logger:  logger,
	}
}

// Configured reports whether a chat agent endpoint is set.
func (c *ChatClient) Configured() bool { return c.baseURL != "" }

// Verify checks the agent is reachable. Bounded at 30 seconds.
func (c *ChatClient) Verify(ctx context.Context) error {
	if !c.Configured() {
		c.logger.Info("chat agent not configured, replies will be mocked")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return c.wrapTimeout(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return &UpstreamError{Provider: "chat-agent", Status: resp.StatusCode, Body: string(body)}
	}
	return nil
}

// Send submits one chat turn and returns the agent's reply text. Bounded at
// 45 seconds; past that the call aborts with ErrChatTimeout.
func (c *ChatClient) Send(ctx context.Context, conversationID, message string) (string, error) {
	if !c.Configured() {
		return mockReply, nil
	}

	ctx, cancel := context.WithTimeout(ctx, messageTimeout)
	defer cancel()

	payload, err := json.Marshal(map[string]string{
		"message": message,
		"userId":  conversationID,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", c.wrapTimeout(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &UpstreamError{Provider: "chat-agent", Status: resp.StatusCode, Body: string(body)}
	}

	var reply struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(body, &reply); err != nil {
		return "", fmt.Errorf("decoding chat reply: %w", err)
	}
	return reply.Response, nil
}

func (c *ChatClient) wrapTimeout(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrChatTimeout, err)
	}
	return err
}
