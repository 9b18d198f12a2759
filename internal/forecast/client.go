// Package forecast calls the external short-horizon emission predictor.
package forecast

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/co2quest/carbon-tracker/internal/aggregate"
)

// Failure modes are distinct so callers can report them separately and keep
// any previously displayed prediction untouched.
var (
	ErrTransport         = errors.New("forecast transport failure")
	ErrBadStatus         = errors.New("forecast endpoint rejected request")
	ErrMalformedResponse = errors.New("forecast response malformed")
)

// Client talks to the predictor endpoint. Requests are authenticated with a
// pre-shared key sent as the x-api-key header.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient builds a client with a finite request timeout; expiry is
// reported as a transport failure.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type predictRequest struct {
	Prev1 float64 `json:"prev1"`
	Prev2 float64 `json:"prev2"`
	Prev3 float64 `json:"prev3"`
}

type predictResponse struct {
	Prediction *float64 `json:"prediction"`
	Error      string   `json:"error"`
}

// Predict sends the last three daily totals and returns tomorrow's
// predicted emission mass in kg CO2.
func (c *Client) Predict(ctx context.Context, win aggregate.ForecastWindow) (float64, error) {
	body, err := json.Marshal(predictRequest{
		Prev1: win.Prev1,
		Prev2: win.Prev2,
		Prev3: win.Prev3,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.WithFields(log.Fields{
			"status": resp.StatusCode,
			"error":  out.Error,
		}).Warn("Forecast request rejected")
		if out.Error != "" {
			return 0, fmt.Errorf("%w: status %d: %s", ErrBadStatus, resp.StatusCode, out.Error)
		}
		return 0, fmt.Errorf("%w: status %d", ErrBadStatus, resp.StatusCode)
	}

	if out.Prediction == nil {
		return 0, fmt.Errorf("%w: missing prediction field", ErrMalformedResponse)
	}
	return *out.Prediction, nil
}
