// Package gemini is the location-grounded knowledge service backed by the
// Gemini API with the Google Maps grounding tool.
package gemini

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/samirrijal/hikepal/internal/core/domain"
	"github.com/samirrijal/hikepal/internal/core/ports"
)

const (
	DefaultBaseURL    = "https://generativelanguage.googleapis.com/"
	DefaultAPIVersion = "v1beta"
	DefaultModel      = "gemini-2.5-flash"

	SystemInstruction = "You are HikePal's expert hiking guide. Keep answers concise, safety-focused, and helpful for a hiker on the move. Provide structured answers."

	maxErrorText = 4096
)

// Config configures a Client.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Client implements ports.KnowledgeService.
type Client struct {
	genai *genai.Client // nil without an API key
	model string
}

var (
	_ ports.KnowledgeService    = (*Client)(nil)
	_ ports.CredentialedService = (*Client)(nil)
)

// New creates a Client. An empty APIKey is allowed: Configured then reports
// false and every call fails with domain.ErrCredentialsMissing.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	c := &Client{model: cfg.Model}

	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return c, nil
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     key,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    cfg.BaseURL,
			APIVersion: DefaultAPIVersion,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	c.genai = gc
	return c, nil
}

// Configured reports whether the client holds an API key.
func (c *Client) Configured() bool { return c.genai != nil }

// GroundingText is the context line sent ahead of every question.
func GroundingText(req ports.AdviceRequest) string {
	place := req.Trail
	if place == "" {
		place = "current"
	}
	region := ""
	if req.Region != "" {
		region = " in " + req.Region
	}
	return fmt.Sprintf("I am currently hiking the %s trail%s. My current coordinates are approximately Lat: %v, Lng: %v.",
		place, region, req.Location.Lat, req.Location.Lon)
}

// Advise asks the model about req.Query grounded on req.Location. An empty
// answer with a nil error means the model had nothing to say.
func (c *Client) Advise(ctx context.Context, req ports.AdviceRequest) (string, error) {
	if c.genai == nil {
		return "", domain.ErrCredentialsMissing
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(GroundingText(req)),
			genai.NewPartFromText(req.Query),
		}, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SystemInstruction, genai.RoleUser),
		Tools:             []*genai.Tool{{GoogleMaps: &genai.GoogleMaps{}}},
		ToolConfig: &genai.ToolConfig{
			RetrievalConfig: &genai.RetrievalConfig{
				LatLng: &genai.LatLng{
					Latitude:  genai.Ptr(req.Location.Lat),
					Longitude: genai.Ptr(req.Location.Lon),
				},
			},
		},
	}

	resp, err := c.genai.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %s", domain.ErrServiceUnavailable, truncate(err.Error(), maxErrorText))
	}
	return strings.TrimSpace(resp.Text()), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
