// internal/client/client.go
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MereWhiplash/doctor-finder/internal/apitypes"
	"github.com/MereWhiplash/doctor-finder/internal/types"
)

// Client is an HTTP client for the doctor finder API
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a new API client
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError is a non-2xx response from the API
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	return c.http.Do(req)
}

// do sends the request and decodes a 200 response into out
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp apitypes.ErrorResponse
		json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error == "" {
			errResp.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Recommend ranks doctors for a symptom description
func (c *Client) Recommend(ctx context.Context, query string, topN int) ([]types.Recommendation, error) {
	if strings.TrimSpace(query) == "" {
		return nil, types.ErrEmptyQuery
	}

	var result apitypes.RecommendResponse
	req := apitypes.RecommendRequest{Query: query, TopN: topN}
	if err := c.do(ctx, http.MethodPost, "/v1/recommendations", req, &result); err != nil {
		return nil, err
	}
	return result.Recommendations, nil
}

// Doctors lists the directory, optionally filtered by specialty
func (c *Client) Doctors(ctx context.Context, specialty string) ([]types.DoctorProfile, error) {
	path := "/v1/doctors"
	if specialty != "" {
		path += "?" + url.Values{"specialty": {specialty}}.Encode()
	}

	var result apitypes.DoctorsResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result.Doctors, nil
}

// Specialties returns the directory filter options
func (c *Client) Specialties(ctx context.Context) ([]string, error) {
	var result apitypes.SpecialtiesResponse
	if err := c.do(ctx, http.MethodGet, "/v1/specialties", nil, &result); err != nil {
		return nil, err
	}
	return result.Specialties, nil
}

// Health checks that the API is up and returns its roster size
func (c *Client) Health(ctx context.Context) (*apitypes.HealthResponse, error) {
	var result apitypes.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/health", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
