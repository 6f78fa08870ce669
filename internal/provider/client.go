// Package provider is the activity-tracking provider API client: fetching
// activities and heart-rate streams over HTTP, with provider-side rate
// limiting and typed error classification.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"training-load-engine/internal/apperr"
)

const BaseURL = "https://www.strava.com/api/v3"

// Client calls the provider's API using a per-request OAuth2 HTTP client.
// It holds no credentials itself — the token source supplied by the caller
// (internal/tokenmgr) owns refresh and persistence.
type Client struct {
	httpClient  *http.Client
	rateLimiter *RateLimiter
}

// NewClient builds a Client that authorizes every request using tokenSource.
func NewClient(ctx context.Context, tokenSource oauth2.TokenSource) *Client {
	return &Client{
		httpClient:  oauth2.NewClient(ctx, tokenSource),
		rateLimiter: NewRateLimiter(),
	}
}

// ListActivities fetches one page of activities after the given timestamp.
func (c *Client) ListActivities(ctx context.Context, after time.Time, page, perPage int) ([]Activity, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	if !after.IsZero() {
		params.Set("after", strconv.FormatInt(after.Unix(), 10))
	}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))

	resp, err := c.get(ctx, "/athlete/activities", params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var activities []Activity
	if err := json.NewDecoder(resp.Body).Decode(&activities); err != nil {
		return nil, apperr.New(apperr.KindParse, "provider.ListActivities", fmt.Errorf("decoding activities: %w", err))
	}
	return activities, nil
}

// ListAllActivities paginates through every activity after the given timestamp.
func (c *Client) ListAllActivities(ctx context.Context, after time.Time, onProgress func(fetched int)) ([]Activity, error) {
	var all []Activity
	page := 1
	const perPage = 100

	for {
		activities, err := c.ListActivities(ctx, after, page, perPage)
		if err != nil {
			return all, fmt.Errorf("fetching page %d: %w", page, err)
		}
		if len(activities) == 0 {
			break
		}
		all = append(all, activities...)
		if onProgress != nil {
			onProgress(len(all))
		}
		if len(activities) < perPage {
			break
		}
		page++
	}
	return all, nil
}

// GetStreams fetches time and heart-rate stream data for one activity.
func (c *Client) GetStreams(ctx context.Context, activityID int64) (*Streams, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("keys", "time,heartrate")
	params.Set("key_by_type", "true")

	path := fmt.Sprintf("/activities/%d/streams", activityID)
	resp, err := c.get(ctx, path, params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var streams Streams
	if err := json.NewDecoder(resp.Body).Decode(&streams); err != nil {
		return nil, apperr.New(apperr.KindParse, "provider.GetStreams", fmt.Errorf("decoding streams: %w", err))
	}
	return &streams, nil
}

// RateLimitStatus reports remaining requests in the short and daily windows.
func (c *Client) RateLimitStatus() (shortRemaining, dailyRemaining int) {
	return c.rateLimiter.Status()
}

func (c *Client) get(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	reqURL := BaseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.New(apperr.KindTransientProvider, "provider.get", err)
	}

	c.rateLimiter.UpdateFromHeaders(resp.Header)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, classifyStatus(resp.StatusCode, body)
	}

	return resp, nil
}

func classifyStatus(status int, body []byte) error {
	err := fmt.Errorf("provider API error %d: %s", status, string(body))
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperr.New(apperr.KindAuth, "provider.get", err)
	case status == http.StatusTooManyRequests || status >= 500:
		return apperr.New(apperr.KindTransientProvider, "provider.get", err)
	default:
		return apperr.New(apperr.KindParse, "provider.get", err)
	}
}
