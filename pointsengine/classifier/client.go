package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pillarday/pointsengine/pointsengine/database/models"
)

const (
	defaultTimeout   = 10 * time.Second
	dedupeCacheSize  = 4096
	requestUserAgent = "pointsengine-classifier-client"
)

// Config is the classifier section of the service configuration.
type Config struct {
	Endpoint string `toml:"endpoint"`
	Token    string `toml:"token"`
	Timeout  int    `toml:"timeout_seconds"`
}

// Enabled reports whether a classifier endpoint is configured at all.
func (c Config) Enabled() bool {
	return c.Endpoint != ""
}

// request is the PATCH body: the acting user plus an explicit
// null-bounties marker telling the classifier to propose allocations.
type request struct {
	ActionID string              `json:"actionId"`
	UserID   string              `json:"userId"`
	Bounties []models.Allocation `json:"bounties"`
}

// Client asks the external action classifier to propose bounty
// allocations for freshly created actions. The call is fire-and-forget:
// the engine only ever reacts to the entity write the classifier makes,
// never to this call's result, so failures are logged and swallowed.
type Client struct {
	cfg        Config
	httpClient *http.Client
	requested  *lru.Cache
}

func NewClient(cfg Config) (*Client, error) {
	timeout := defaultTimeout
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}

	// Redelivered creation events would otherwise ask the classifier
	// about the same action again; remembering recent ids keeps the
	// duplicate calls off the wire.
	requested, err := lru.New(dedupeCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create dedupe cache: %w", err)
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		requested:  requested,
	}, nil
}

// RequestBounties implements reconcile.ActionClassifier.
func (c *Client) RequestBounties(ctx context.Context, action *models.Action) {
	if !c.cfg.Enabled() {
		return
	}

	if c.requested.Contains(action.ID) {
		slog.Debug("classification already requested for action",
			slog.String("action_id", action.ID))
		return
	}
	c.requested.Add(action.ID, struct{}{})

	body, err := json.Marshal(request{
		ActionID: action.ID,
		UserID:   action.UserID,
		Bounties: nil,
	})
	if err != nil {
		slog.Error("failed to marshal classification request",
			slog.String("action_id", action.ID),
			slog.Any("error", err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		slog.Error("failed to build classification request",
			slog.String("action_id", action.ID),
			slog.Any("error", err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", requestUserAgent)
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Warn("classification request failed",
			slog.String("action_id", action.ID),
			slog.Any("error", err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Warn("classifier rejected request",
			slog.String("action_id", action.ID),
			slog.Int("status", resp.StatusCode))
		return
	}

	slog.Debug("classification requested",
		slog.String("action_id", action.ID),
		slog.String("user_id", action.UserID))
}
