package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dressinghq/dressinghub/config"
	"github.com/dressinghq/dressinghub/logger"
	"github.com/dressinghq/dressinghub/pkg/version"
)

// ErrNotConfigured is returned when no backend URL is set. The hub runs
// fully offline in that case and callers keep their pending work local.
var ErrNotConfigured = errors.New("backend URL is not configured")

type ProfileSwitch struct {
	ProfileID   string `json:"profileId"`
	RequestedAt int64  `json:"requestedAt"`
}

// Client talks to the optional Dressing backend. Every method reads the
// backend URL from config at call time so edits apply without a restart.
type Client struct {
	cfg        config.Config
	httpClient *http.Client
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) baseURL() (string, error) {
	if c == nil || c.cfg == nil {
		return "", ErrNotConfigured
	}
	url := c.cfg.GetBackendURL()
	if url == "" {
		return "", ErrNotConfigured
	}
	return url, nil
}

// Ping checks whether the backend is reachable.
func (c *Client) Ping(ctx context.Context) error {
	baseURL, err := c.baseURL()
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/v1/health", nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "DressingHub/"+version.Tag)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status: %s", res.Status)
	}
	return nil
}

// PushProfileSwitches uploads profile switch records to the backend.
func (c *Client) PushProfileSwitches(ctx context.Context, switches []ProfileSwitch) error {
	baseURL, err := c.baseURL()
	if err != nil {
		return err
	}

	type pushProfileSwitchesRequest struct {
		Switches []ProfileSwitch `json:"switches"`
	}

	payloadBytes, err := json.Marshal(pushProfileSwitchesRequest{Switches: switches})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/profile-switches", bytes.NewReader(payloadBytes))
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to create profile switches request")
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "DressingHub/"+version.Tag)

	res, err := c.httpClient.Do(req)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to push profile switches")
		return err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to read profile switches response body")
		return errors.New("failed to read response body")
	}

	if res.StatusCode >= 300 {
		logger.Logger.Error().
			Str("body", string(body)).
			Int("statusCode", res.StatusCode).
			Msg("Profile switches endpoint returned non-success code")
		return fmt.Errorf("profile switches endpoint returned non-success code: %s", string(body))
	}

	type pushProfileSwitchesResponse struct {
		Accepted int `json:"accepted"`
	}

	var pushResponse pushProfileSwitchesResponse
	if err := json.Unmarshal(body, &pushResponse); err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to deserialize profile switches response")
		return fmt.Errorf("failed to deserialize profile switches response: %s", string(body))
	}

	logger.Logger.Info().
		Int("pushed", len(switches)).
		Int("accepted", pushResponse.Accepted).
		Msg("Pushed profile switches to backend")
	return nil
}
