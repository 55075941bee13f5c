package homeassistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// ErrNotFound is returned when a single entity does not exist. Callers
	// treat this as a degraded read, not a failure.
	ErrNotFound = errors.New("entity not found")

	// ErrUnauthorized is returned when the access token is rejected. This is
	// distinct from ErrNotFound: a sync tick must abort on it.
	ErrUnauthorized = errors.New("unauthorized")
)

type statusError struct {
	status int
	body   string
}

func (e statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("API returned status %d", e.status)
	}
	return fmt.Sprintf("API returned status %d: %s", e.status, e.body)
}

// Client is a thin client for the Home Assistant REST API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a Home Assistant API client. baseURL is the instance
// root, e.g. "http://homeassistant.local:8123".
func NewClient(baseURL, token string, logger *logrus.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// State fetches the current state of a single entity.
func (c *Client) State(ctx context.Context, entityID string) (*Entity, error) {
	u := fmt.Sprintf("%s/api/states/%s", c.baseURL, url.PathEscape(entityID))

	body, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}

	entity := &Entity{}
	if err := json.Unmarshal(body, entity); err != nil {
		return nil, fmt.Errorf("failed to decode entity %s: %w", entityID, err)
	}
	return entity, nil
}

// States fetches the full entity list.
func (c *Client) States(ctx context.Context) ([]Entity, error) {
	body, err := c.get(ctx, c.baseURL+"/api/states")
	if err != nil {
		return nil, err
	}

	var entities []Entity
	if err := json.Unmarshal(body, &entities); err != nil {
		return nil, fmt.Errorf("failed to decode entity list: %w", err)
	}
	return entities, nil
}

// CallService invokes a Home Assistant service (e.g. domain "button",
// service "press").
func (c *Client) CallService(ctx context.Context, domain, service string, data map[string]any) error {
	u := fmt.Sprintf("%s/api/services/%s/%s", c.baseURL, url.PathEscape(domain), url.PathEscape(service))

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal service data: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return c.checkStatus(resp)
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	c.setAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return nil, err
	}

	return io.ReadAll(resp.Body)
}

func (c *Client) setAuth(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
}

func (c *Client) checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return statusError{status: resp.StatusCode, body: strings.TrimSpace(string(body))}
	}
}
