// Package scanapi is the HTTP client for the scanning backend that serves the
// threat, application-vulnerability and infrastructure-vulnerability feeds.
package scanapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultTimeout   = 30 * time.Second
	maxRetriesOn429  = 3
	maxResponseSize  = 32 << 20 // 32 MiB
	maxErrorBodySize = 1 << 20  // 1 MiB
)

const (
	pathThreats              = "/api/threats"
	pathVulnerabilities      = "/api/v1/vulnerabilities/enhanced"
	pathInfrastructurePrompt = "/api/v1/vulnerabilities/create-infrastructure-prompt"
)

type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// New creates a scan API client. timeout <= 0 selects the default.
func New(baseURL, token string, timeout time.Duration) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil, errors.New("scan api base URL is required")
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("scan api base URL %q is invalid", baseURL)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		BaseURL: base,
		Token:   strings.TrimSpace(token),
		HTTP:    &http.Client{Timeout: timeout},
	}, nil
}

func (c *Client) ensureClient() error {
	if c == nil || c.BaseURL == "" {
		return errors.New("scan api base URL is required")
	}
	if c.HTTP == nil {
		return errors.New("scan api http client is not configured")
	}
	return nil
}

func (c *Client) endpoint(path string, query url.Values) (string, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", err
	}
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = query.Encode()
	u.Fragment = ""
	return u.String(), nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, query, nil)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, method, path, nil, body)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte) ([]byte, error) {
	if err := c.ensureClient(); err != nil {
		return nil, err
	}
	endpoint, err := c.endpoint(path, query)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetriesOn429; attempt++ {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "threatdesk")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.Token != "" {
			req.Header.Set("Authorization", "Bearer "+c.Token)
		}

		resp, err := c.HTTP.Do(req)
		if err != nil {
			return nil, err
		}
		limit := int64(maxResponseSize)
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			limit = maxErrorBodySize
		}
		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, limit))
		resp.Body.Close()
		if readErr != nil {
			return nil, readErr
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = formatAPIError("scan api rate limited", endpoint, resp, respBody)
			if attempt == maxRetriesOn429 {
				return nil, lastErr
			}
			wait, ok := retryAfterDuration(resp.Header.Get("Retry-After"))
			if !ok {
				wait = time.Second
			}
			if err := sleep(ctx, wait); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, formatAPIError("scan api failed", endpoint, resp, respBody)
		}
		return respBody, nil
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, errors.New("scan api request failed")
}

func retryAfterDuration(header string) (time.Duration, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0, false
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func formatAPIError(prefix, reqURL string, resp *http.Response, body []byte) error {
	message := extractAPIErrorMessage(body)
	details := formatAPIErrorDetails(reqURL, resp)

	if message != "" && details != "" {
		return fmt.Errorf("%s: %s: %s (%s)", prefix, resp.Status, message, details)
	}
	if message != "" {
		return fmt.Errorf("%s: %s: %s", prefix, resp.Status, message)
	}
	if details != "" {
		return fmt.Errorf("%s: %s (%s)", prefix, resp.Status, details)
	}
	return fmt.Errorf("%s: %s", prefix, resp.Status)
}

func extractAPIErrorMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, msg := range []string{payload.Error, payload.Message, payload.Detail} {
			if msg = strings.TrimSpace(msg); msg != "" {
				return msg
			}
		}
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return ""
	}
	if strings.HasPrefix(msg, "<!DOCTYPE html") || strings.HasPrefix(msg, "<html") {
		return ""
	}
	msg = strings.Join(strings.Fields(msg), " ")
	const maxLen = 300
	if len(msg) > maxLen {
		msg = msg[:maxLen] + "..."
	}
	return msg
}

func formatAPIErrorDetails(reqURL string, resp *http.Response) string {
	var parts []string
	if v := safeURL(reqURL); v != "" {
		parts = append(parts, "url="+v)
	}
	if v := strings.TrimSpace(resp.Header.Get("X-Request-ID")); v != "" {
		parts = append(parts, "request_id="+v)
	}
	if v := resp.Header.Get("Retry-After"); v != "" {
		parts = append(parts, "retry_after="+v)
	}
	return strings.Join(parts, ", ")
}

func safeURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if u.RawQuery != "" {
		return u.Scheme + "://" + u.Host + u.Path + "?" + u.RawQuery
	}
	return u.Scheme + "://" + u.Host + u.Path
}
