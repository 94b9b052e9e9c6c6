package e2etest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/myrjola/fitplan/internal/errors"
)

// ErrUnexpectedStatus is returned by the helpers that expect a 2xx response.
var ErrUnexpectedStatus = errors.NewSentinel("unexpected status code")

type Client struct {
	client *http.Client
	url    string
}

func NewClient(url string) *Client {
	return &Client{
		client: &http.Client{Timeout: time.Minute},
		url:    url,
	}
}

// WaitForReady polls urlPath until it answers 200 OK, ctx is done, or a second has passed.
func (c *Client) WaitForReady(ctx context.Context, urlPath string) error {
	const (
		timeout  = time.Second
		interval = 50 * time.Millisecond
	)
	deadline := time.Now().Add(timeout)
	for {
		resp, err := c.Do(ctx, http.MethodGet, urlPath, nil)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return errors.New("timeout waiting for endpoint to be ready")
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "wait for ready")
		case <-time.After(interval):
		}
	}
}

// Do sends a request. A non-nil body is encoded as JSON.
func (c *Client) Do(ctx context.Context, method, urlPath string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "marshal body")
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url+urlPath, reader)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	return resp, nil
}

// Get fetches urlPath.
func (c *Client) Get(ctx context.Context, urlPath string) (*http.Response, error) {
	return c.Do(ctx, http.MethodGet, urlPath, nil)
}

// GetDoc fetches urlPath and parses the HTML response.
func (c *Client) GetDoc(ctx context.Context, urlPath string) (*goquery.Document, error) {
	resp, err := c.Get(ctx, urlPath)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrap(ErrUnexpectedStatus, "get document", slog.Int("status", resp.StatusCode))
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "parse document")
	}
	return doc, nil
}

// JSON sends body to urlPath and decodes the response into out. It returns the status code, and decodes error
// responses as well so that tests can inspect them.
func (c *Client) JSON(ctx context.Context, method, urlPath string, body, out any) (int, error) {
	resp, err := c.Do(ctx, method, urlPath, body)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if out != nil {
		if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, errors.Wrap(err, "decode response", slog.Int("status", resp.StatusCode))
		}
	}
	return resp.StatusCode, nil
}
