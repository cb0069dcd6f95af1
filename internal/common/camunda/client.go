// internal/common/camunda/client.go
package camunda

import (
	"context"
	"fmt"
	"strings"
	"time"

	"merchant-triggers/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// ClientConfig holds configuration for the Zeebe gateway connection.
type ClientConfig struct {
	GatewayAddress         string
	UsePlaintextConnection bool
	ConnectionTimeout      time.Duration
	RetryConfig            *RetryConfig
}

// RetryConfig bounds how long Connect keeps retrying a gateway that is not up yet.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

var DefaultRetryConfig = &RetryConfig{
	MaxRetries: 10,
	BaseDelay:  2 * time.Second,
	MaxDelay:   30 * time.Second,
}

// Client wraps the Zeebe client with a topology-based health check.
type Client struct {
	client zbc.Client
	config *ClientConfig
}

// Connect dials the gateway and checks topology, retrying transient failures
// with exponential backoff.
func Connect(ctx context.Context, cfg *ClientConfig, log logger.Logger) (*Client, error) {
	if cfg.RetryConfig == nil {
		cfg.RetryConfig = DefaultRetryConfig
	}
	if cfg.ConnectionTimeout == 0 {
		cfg.ConnectionTimeout = 10 * time.Second
	}

	delay := cfg.RetryConfig.BaseDelay
	var lastErr error
	for attempt := 1; attempt <= cfg.RetryConfig.MaxRetries; attempt++ {
		c, err := dial(ctx, cfg)
		if err == nil {
			return c, nil
		}
		lastErr = err
		if !isRetryableZeebeError(err) || attempt == cfg.RetryConfig.MaxRetries {
			break
		}

		log.Warn("zeebe connection failed, retrying", map[string]interface{}{
			"attempt":     attempt,
			"maxRetries":  cfg.RetryConfig.MaxRetries,
			"nextRetryIn": delay.String(),
			"error":       err.Error(),
		})

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("zeebe connect cancelled: %w", ctx.Err())
		}
		delay *= 2
		if delay > cfg.RetryConfig.MaxDelay {
			delay = cfg.RetryConfig.MaxDelay
		}
	}
	return nil, fmt.Errorf("failed to connect to Zeebe gateway at %s: %w", cfg.GatewayAddress, lastErr)
}

func dial(ctx context.Context, cfg *ClientConfig) (*Client, error) {
	zc, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         cfg.GatewayAddress,
		UsePlaintextConnection: cfg.UsePlaintextConnection,
	})
	if err != nil {
		return nil, err
	}

	c := &Client{client: zc, config: cfg}
	if err := c.HealthCheck(ctx); err != nil {
		zc.Close()
		return nil, err
	}
	return c, nil
}

// Zeebe returns the raw client for job workers.
func (c *Client) Zeebe() zbc.Client {
	return c.client
}

func (c *Client) Close() error {
	return c.client.Close()
}

// HealthCheck sends a topology request to the gateway.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.ConnectionTimeout)
	defer cancel()

	if _, err := c.client.NewTopologyCommand().Send(ctx); err != nil {
		return fmt.Errorf("zeebe health check failed: %w", err)
	}
	return nil
}

func isRetryableZeebeError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, phrase := range []string{
		"connection refused",
		"connection reset",
		"timeout",
		"deadline exceeded",
		"unavailable",
		"unreachable",
		"broken pipe",
	} {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}
