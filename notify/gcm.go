package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// DefaultGCMEndpoint is the legacy GCM HTTP send endpoint.
const DefaultGCMEndpoint = "https://gcm-http.googleapis.com/gcm/send"

// GCMConfig configures GCMTransport.
type GCMConfig struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// GCMTransport posts messages to the GCM HTTP API.
type GCMTransport struct {
	client   *resty.Client
	endpoint string
	apiKey   string
	logger   *zap.Logger
}

var _ Transport = (*GCMTransport)(nil)

type gcmRequest struct {
	RegistrationIDs []string       `json:"registration_ids"`
	Data            map[string]any `json:"data"`
	CollapseKey     string         `json:"collapse_key,omitempty"`
}

// NewGCMTransport returns a transport for cfg. A nil logger disables logging.
func NewGCMTransport(cfg GCMConfig, logger *zap.Logger) (*GCMTransport, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("notify: GCM API key is required")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultGCMEndpoint
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := resty.New()
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	return &GCMTransport{
		client:   client,
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		logger:   logger,
	}, nil
}

// Send posts msg. It does nothing when msg has no recipients and fails on
// any non-2xx response.
func (t *GCMTransport) Send(ctx context.Context, msg *Message) error {
	if msg == nil || len(msg.RecipientIDs) == 0 {
		return nil
	}

	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "key="+t.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(gcmRequest{
			RegistrationIDs: msg.RecipientIDs,
			Data:            msg.Data,
			CollapseKey:     msg.CollapseKey,
		}).
		Post(t.endpoint)
	if err != nil {
		return fmt.Errorf("notify: gcm send: %w", err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("notify: gcm send: status %d: %s", resp.StatusCode(), resp.String())
	}

	t.logger.Debug("gcm message sent",
		zap.Int("recipients", len(msg.RecipientIDs)),
		zap.String("collapse_key", msg.CollapseKey))
	return nil
}
