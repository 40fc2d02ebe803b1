// Package hcloud is a minimal client for the parts of the Hetzner Cloud API
// needed to snapshot servers and rotate their snapshots.
package hcloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Options configures a Client. Zero durations fall back to defaults.
type Options struct {
	Endpoint      string
	Token         string
	Timeout       time.Duration // per request
	RetryInterval time.Duration // first wait after a 423 response
	PollInterval  time.Duration // action status polling
	HTTPClient    *http.Client
	Logger        *slog.Logger
}

// Client talks to the Hetzner Cloud API.
type Client struct {
	endpoint      string
	token         string
	http          *http.Client
	retryInterval time.Duration
	pollInterval  time.Duration
	log           *slog.Logger
}

// New creates a client.
func New(opts Options) *Client {
	if opts.Endpoint == "" {
		opts.Endpoint = "https://api.hetzner.cloud/v1"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 5 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Client{
		endpoint:      strings.TrimSuffix(opts.Endpoint, "/"),
		token:         opts.Token,
		http:          opts.HTTPClient,
		retryInterval: opts.RetryInterval,
		pollInterval:  opts.PollInterval,
		log:           opts.Logger.With("component", "hcloud"),
	}
}

// ListServers returns all servers of the project.
func (c *Client) ListServers(ctx context.Context) ([]Server, error) {
	return list[Server](ctx, c, "servers", "servers", nil)
}

// ListSnapshots returns all images of type snapshot.
func (c *Client) ListSnapshots(ctx context.Context) ([]Image, error) {
	return list[Image](ctx, c, "images", "images", url.Values{"type": {"snapshot"}})
}

// GetServer returns a single server.
func (c *Client) GetServer(ctx context.Context, id int64) (Server, error) {
	var resp struct {
		Server Server `json:"server"`
	}
	err := c.do(ctx, http.MethodGet, "servers/"+strconv.FormatInt(id, 10), nil, nil, &resp)
	return resp.Server, err
}

// GetAction returns the current state of an action.
func (c *Client) GetAction(ctx context.Context, id int64) (Action, error) {
	var resp struct {
		Action Action `json:"action"`
	}
	err := c.do(ctx, http.MethodGet, "actions/"+strconv.FormatInt(id, 10), nil, nil, &resp)
	return resp.Action, err
}

// ServerAction starts an action on a server and waits until it has
// completed. While the server is locked by another action the request is
// retried until timeout, which also bounds waiting for completion. The
// image is set for create_image.
func (c *Client) ServerAction(ctx context.Context, serverID int64, action ServerAction, body any, timeout time.Duration) (Action, *Image, error) {
	var resp struct {
		Action Action `json:"action"`
		Image  *Image `json:"image"`
	}

	path := fmt.Sprintf("servers/%d/actions/%s", serverID, action)
	err := retry(ctx, string(action), timeout, c.retryInterval, func() error {
		return c.do(ctx, http.MethodPost, path, nil, body, &resp)
	})
	if err != nil {
		return Action{}, nil, err
	}

	done, err := c.WaitAction(ctx, resp.Action, timeout)
	return done, resp.Image, err
}

// WaitAction polls an action until it is done or timeout elapses.
func (c *Client) WaitAction(ctx context.Context, a Action, timeout time.Duration) (Action, error) {
	deadline := time.Now().Add(timeout)

	for !a.Done() {
		if time.Now().After(deadline) {
			return a, fmt.Errorf("action %s: %w after %s", a.Command, ErrTimeout, timeout)
		}

		select {
		case <-ctx.Done():
			return a, ctx.Err()
		case <-time.After(c.pollInterval):
		}

		next, err := c.GetAction(ctx, a.ID)
		if err != nil {
			return a, err
		}
		a = next
	}

	if a.Status == ActionFailed {
		e := &ActionError{Command: a.Command}
		if a.Error != nil {
			e.Code, e.Message = a.Error.Code, a.Error.Message
		}
		return a, e
	}
	return a, nil
}

// UpdateImageDescription changes the description of an image and returns
// the updated image.
func (c *Client) UpdateImageDescription(ctx context.Context, id int64, description string) (Image, error) {
	var resp struct {
		Image Image `json:"image"`
	}
	body := map[string]string{"description": description}
	err := c.do(ctx, http.MethodPut, "images/"+strconv.FormatInt(id, 10), nil, body, &resp)
	return resp.Image, err
}

// DeleteImage deletes an image.
func (c *Client) DeleteImage(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "images/"+strconv.FormatInt(id, 10), nil, nil, nil)
}

func list[T any](ctx context.Context, c *Client, path, key string, query url.Values) ([]T, error) {
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	q.Set("per_page", "50")

	var all []T
	for next := 1; next != 0; {
		q.Set("page", strconv.Itoa(next))

		var page map[string]json.RawMessage
		if err := c.do(ctx, http.MethodGet, path, q, nil, &page); err != nil {
			return nil, err
		}

		var items []T
		if raw, ok := page[key]; ok {
			if err := json.Unmarshal(raw, &items); err != nil {
				return nil, fmt.Errorf("decoding %s: %w", key, err)
			}
		}
		all = append(all, items...)

		var m meta
		if raw, ok := page["meta"]; ok {
			if err := json.Unmarshal(raw, &m); err != nil {
				return nil, fmt.Errorf("decoding %s pagination: %w", key, err)
			}
		}
		next = 0
		if m.Pagination.NextPage != nil {
			next = *m.Pagination.NextPage
		}
	}

	return all, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.endpoint + "/" + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.log.Debug("api request", "method", method, "path", path)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, u, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: reading response: %w", method, u, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Method: method, URL: u, StatusCode: resp.StatusCode}
		var eb struct {
			Error ErrorBody `json:"error"`
		}
		if json.Unmarshal(data, &eb) == nil {
			apiErr.Code, apiErr.Message = eb.Error.Code, eb.Error.Message
		}
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: decoding response: %w", method, u, err)
	}
	return nil
}
