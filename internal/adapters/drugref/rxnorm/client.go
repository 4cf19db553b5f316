package rxnorm

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"med-adherence/internal/platform/httpclient"
)

var (
	ErrRxNormNotConfigured = errors.New("rxnorm client not configured")
	ErrRxNormUpstream      = errors.New("rxnorm upstream error")
)

const (
	// API pública de RxNorm (National Library of Medicine).
	DefaultBaseURL = "https://rxnav.nlm.nih.gov/REST"

	DefaultTimeout = 5 * time.Second
)

type Config struct {
	// BaseURL vacío usa la API pública de RxNorm.
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	http *httpclient.Client
}

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	hc, err := httpclient.NewWithBaseURL(baseURL, timeout)
	if err != nil {
		return nil, fmt.Errorf("rxnorm: %w", err)
	}
	return &Client{http: hc}, nil
}

// NewClientWithHTTP permite inyectar el httpclient (p.ej. para tests).
func NewClientWithHTTP(hc *httpclient.Client) *Client {
	return &Client{http: hc}
}

// Concept es un concepto RxNorm tal como viene del endpoint /drugs.
type Concept struct {
	RxCUI    string `json:"rxcui"`
	Name     string `json:"name"`
	Synonym  string `json:"synonym"`
	TermType string `json:"tty"`
}

type drugsResponse struct {
	DrugGroup struct {
		ConceptGroup []struct {
			TTY               string    `json:"tty"`
			ConceptProperties []Concept `json:"conceptProperties"`
		} `json:"conceptGroup"`
	} `json:"drugGroup"`
}

// SearchDrugs busca conceptos por nombre contra /drugs.json.
func (c *Client) SearchDrugs(ctx context.Context, name string) ([]Concept, error) {
	if c == nil || c.http == nil {
		return nil, ErrRxNormNotConfigured
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("name required")
	}

	path := "/drugs.json?name=" + url.QueryEscape(name)

	var out drugsResponse
	if err := c.http.DoJSON(ctx, "GET", path, nil, nil, &out); err != nil {
		var httpErr *httpclient.HTTPError
		if errors.As(err, &httpErr) {
			return nil, fmt.Errorf("%w: status=%d", ErrRxNormUpstream, httpErr.StatusCode)
		}
		return nil, fmt.Errorf("%w: %v", ErrRxNormUpstream, err)
	}

	var concepts []Concept
	for _, group := range out.DrugGroup.ConceptGroup {
		concepts = append(concepts, group.ConceptProperties...)
	}
	return concepts, nil
}
