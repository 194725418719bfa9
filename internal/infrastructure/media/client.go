package media

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"connectify-server/internal/config"
)

// Client uploads images to a Cloudinary-style unsigned upload endpoint and
// returns the hosted URL.
type Client struct {
	http      *resty.Client
	uploadURL string
	preset    string
	log       zerolog.Logger
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	URL       string `json:"url"`
	Error     struct {
		Message string `json:"message"`
	} `json:"error"`
}

// NewClient wires a Client from config.
func NewClient(cfg *config.Config, log zerolog.Logger) *Client {
	httpClient := resty.New().
		SetTimeout(cfg.MediaTimeout).
		SetRetryCount(2)

	return &Client{
		http:      httpClient,
		uploadURL: cfg.MediaUploadURL,
		preset:    cfg.MediaUploadPreset,
		log:       log.With().Str("component", "media-client").Logger(),
	}
}

// Upload posts a base64 data URL and returns the hosted URL.
func (c *Client) Upload(ctx context.Context, data string) (string, error) {
	if c.uploadURL == "" {
		return "", fmt.Errorf("media upload endpoint is not configured")
	}
	if data == "" {
		return "", fmt.Errorf("empty media payload")
	}

	var result uploadResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"file":          data,
			"upload_preset": c.preset,
		}).
		SetResult(&result).
		SetError(&result).
		Post(c.uploadURL)
	if err != nil {
		return "", fmt.Errorf("media upload request: %w", err)
	}
	if resp.IsError() {
		if result.Error.Message != "" {
			return "", fmt.Errorf("media upload rejected: %s", result.Error.Message)
		}
		return "", fmt.Errorf("media upload failed with status %d", resp.StatusCode())
	}

	url := result.SecureURL
	if url == "" {
		url = result.URL
	}
	if url == "" {
		return "", fmt.Errorf("media upload response has no url")
	}

	c.log.Debug().Int("status", resp.StatusCode()).Msg("media uploaded")
	return url, nil
}
