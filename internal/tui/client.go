package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/fentz26/dagsmith/internal/models"
	"github.com/fentz26/dagsmith/internal/store"
)

// DefaultClientTimeout is the default timeout for API requests.
const DefaultClientTimeout = 10 * time.Second

// Backend supplies the projects the cockpit can deploy. *store.Store
// implements it directly; Client implements it over the daemon API.
type Backend interface {
	ListProjects(ctx context.Context) ([]models.ProjectSummary, error)
	LoadProject(ctx context.Context, name string) (*models.ProjectConfig, error)
}

// Client wraps HTTP calls to the dagsmith API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client with timeout
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: DefaultClientTimeout,
		},
	}
}

func (c *Client) get(ctx context.Context, path string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return store.ErrProjectNotFound
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// ListProjects fetches project summaries from the API
func (c *Client) ListProjects(ctx context.Context) ([]models.ProjectSummary, error) {
	var projects []models.ProjectSummary
	if err := c.get(ctx, "/projects", &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// LoadProject fetches one project configuration
func (c *Client) LoadProject(ctx context.Context, name string) (*models.ProjectConfig, error) {
	var rec models.ProjectRecord
	if err := c.get(ctx, "/projects/"+url.PathEscape(name), &rec); err != nil {
		return nil, err
	}
	return &rec.Config, nil
}

// CheckHealth reports whether the daemon answers its health check.
func (c *Client) CheckHealth(ctx context.Context) (bool, error) {
	var health struct {
		OK bool `json:"ok"`
	}
	if err := c.get(ctx, "/health", &health); err != nil {
		return false, err
	}
	return health.OK, nil
}
