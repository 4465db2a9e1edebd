// Package proxyclient calls the story proxy endpoint on behalf of a form.
package proxyclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/fantasy-tales/internal/domain"
)

const Path = "/api/chatgpt"

var ErrUnexpectedStatus = errors.New("unexpected status from story server")

type Config struct {
	ServerURL string
	// Timeout 0 - без таймаута, как в браузере
	Timeout time.Duration
}

type Client struct {
	endpoint string
	client   *http.Client
	logger   *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	return &Client{
		endpoint: strings.TrimRight(cfg.ServerURL, "/") + Path,
		client:   &http.Client{Timeout: cfg.Timeout},
		logger:   logger,
	}
}

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(domain.StoryRequest{Story: prompt})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call story server: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("story server returned error status",
			zap.Int("status", resp.StatusCode),
			zap.Int("body_length", len(respBody)),
		)
		return "", fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var out domain.StoryResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", domain.ErrGenerationFailed, err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("%w: %s", domain.ErrGenerationFailed, out.Error)
	}
	if out.Reply == nil {
		return "", fmt.Errorf("%w: response has no reply", domain.ErrGenerationFailed)
	}

	return *out.Reply, nil
}
