package mlvision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var (
	ErrVisionNotConfigured = errors.New("ml-vision client not configured")
	ErrVisionUnauthorized  = errors.New("ml-vision unauthorized")
	ErrVisionUpstream      = errors.New("ml-vision upstream error")
)

// Config del cliente ML Vision.
// BaseURL y APIKey normalmente vendrán de env vars en el servicio que lo instancie.
type Config struct {
	BaseURL string
	APIKey  string

	// Opcional: nombre del header donde se manda la API key.
	// Si está vacío, se usa "X-Api-Key".
	APIKeyHeader string

	// Timeout HTTP (si http.Client es nil, se usa este).
	Timeout time.Duration
}

type Client struct {
	baseURL      string
	apiKey       string
	apiKeyHeader string
	httpClient   *http.Client
}

func NewClient(cfg Config) *Client {
	h := strings.TrimSpace(cfg.APIKeyHeader)
	if h == "" {
		h = "X-Api-Key"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL:      strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:       strings.TrimSpace(cfg.APIKey),
		apiKeyHeader: h,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) IsConfigured() bool {
	return c != nil && c.baseURL != "" && c.apiKey != ""
}

// RecognizeText manda la imagen al motor de visión y devuelve el texto
// reconocido con su confianza global.
func (c *Client) RecognizeText(ctx context.Context, image []byte, mimeType string) (string, float64, error) {
	if !c.IsConfigured() {
		return "", 0, ErrVisionNotConfigured
	}
	if len(image) == 0 {
		return "", 0, errors.New("image required")
	}

	const recognizePath = "/v1/text:recognize"

	reqBody := struct {
		ImageBase64 string `json:"image_base64"`
		MimeType    string `json:"mime_type,omitempty"`
	}{
		ImageBase64: base64.StdEncoding.EncodeToString(image),
		MimeType:    strings.TrimSpace(mimeType),
	}
	b, _ := json.Marshal(reqBody)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+recognizePath, bytes.NewReader(b))
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrVisionUpstream, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(c.apiKeyHeader, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrVisionUpstream, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// ok
	case http.StatusUnauthorized, http.StatusForbidden:
		return "", 0, ErrVisionUnauthorized
	default:
		return "", 0, fmt.Errorf("%w: status=%d", ErrVisionUpstream, resp.StatusCode)
	}

	var out struct {
		Text       string  `json:"text"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", 0, fmt.Errorf("%w: invalid json: %v", ErrVisionUpstream, err)
	}

	if out.Confidence < 0 {
		out.Confidence = 0
	}
	if out.Confidence > 1 {
		out.Confidence = 1
	}

	return out.Text, out.Confidence, nil
}
