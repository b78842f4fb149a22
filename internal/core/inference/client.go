package inference

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"meal-analysis-api/internal/infrastructure/config"
	"meal-analysis-api/internal/pkg/common"
)

// Client talks to the upstream vision/speech inference service. The
// service's internal behavior is out of scope; only the request/response
// schema matters here.
type Client struct {
	config *config.Config
	client *resty.Client
}

// NewClient creates an inference client from configuration.
func NewClient(cfg *config.Config) *Client {
	client := resty.New().
		SetBaseURL(cfg.Inference.BaseURL).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.Inference.APIKey)).
		SetHeader("Content-Type", "application/json").
		SetTimeout(cfg.Inference.Timeout)

	return &Client{
		config: cfg,
		client: client,
	}
}

// Analyze sends media plus an optional hint upstream and returns the
// validated structured payload.
func (c *Client) Analyze(ctx context.Context, req *Request) (*Payload, error) {
	if req.ImageData == "" && req.AudioData == "" && strings.TrimSpace(req.TextHint) == "" {
		return nil, common.NewValidationError("inference request needs image, audio or text hint")
	}

	common.LogInfo("sending inference request",
		zap.String("model", c.config.Inference.Model),
		zap.Bool("has_image", req.ImageData != ""),
		zap.Bool("has_audio", req.AudioData != ""),
		zap.Bool("has_hint", req.TextHint != ""),
	)

	body := map[string]interface{}{
		"model": c.config.Inference.Model,
	}
	if req.ImageData != "" {
		body["image_data"] = req.ImageData
	}
	if req.AudioData != "" {
		body["audio_data"] = req.AudioData
	}
	if req.TextHint != "" {
		body["text_hint"] = req.TextHint
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		Post("/v1/analyze")

	if err != nil {
		common.LogError("inference request failed", zap.Error(err))
		return nil, fmt.Errorf("failed to reach inference service: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		common.LogError("inference service returned error status",
			zap.Int("status_code", resp.StatusCode()),
		)
		return nil, common.NewError(
			common.ErrInferenceService.Code,
			fmt.Sprintf("inference service error (status %d)", resp.StatusCode()),
			http.StatusServiceUnavailable,
			nil,
		)
	}

	payload, err := ParsePayload(resp.Body())
	if err != nil {
		return nil, err
	}

	common.LogInfo("inference payload received",
		zap.Int("dishes", len(payload.Dishes)),
	)
	return payload, nil
}
