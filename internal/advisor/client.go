// Package advisor generates personalized emission-reduction suggestions
// from a user's trip history via an external text-generation endpoint.
package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/co2quest/carbon-tracker/internal/models"
)

var (
	ErrNoHistory         = errors.New("no trip history to analyze")
	ErrUnavailable       = errors.New("advisor endpoint unavailable")
	ErrMalformedResponse = errors.New("advisor response malformed")
)

const defaultModel = "gemini-1.5-flash"

const systemPrompt = `You are a supportive, friendly sustainability advisor for SME companies.
Analyze the company's transport-related carbon emission patterns and provide 2-3 personalized strategies to reduce emissions.
If the company's daily transportation emissions are high (>50 kg CO2/day), suggest practical improvements like optimizing delivery routes, using eco-friendly fleets, or encouraging ride-sharing among employees.
If the emissions are low (<20 kg CO2/day), congratulate the company warmly and suggest maintaining good practices.
Always speak in a positive, motivational, business-minded tone.
Focus only on transportation activities. Keep the response simple and short.`

// Client calls a Gemini-style generateContent endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient builds an advisor client with a bounded request timeout.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   defaultModel,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// FormatHistory flattens the user's raw trip log into the prompt data line,
// one clause per record in day order.
func FormatHistory(doc *models.UserRecordDoc) (string, error) {
	if doc == nil || len(doc.DailyPoints) == 0 {
		return "", ErrNoHistory
	}

	days := make([]string, 0, len(doc.DailyPoints))
	for day := range doc.DailyPoints {
		days = append(days, day)
	}
	sort.Strings(days)

	var clauses []string
	for _, day := range days {
		for _, rec := range doc.DailyPoints[day] {
			clauses = append(clauses, fmt.Sprintf("%.2f kg CO2 using %s over %.2f km on %s",
				rec.CarbonEmissionKg, rec.VehicleName, rec.DistanceKm, day))
		}
	}
	if len(clauses) == 0 {
		return "", ErrNoHistory
	}
	return strings.Join(clauses, ", "), nil
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents          []content `json:"contents"`
	SystemInstruction *content  `json:"systemInstruction,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Recommend formats the trip history and asks the model for suggestions.
func (c *Client) Recommend(ctx context.Context, doc *models.UserRecordDoc) (string, error) {
	dataText, err := FormatHistory(doc)
	if err != nil {
		return "", err
	}

	reqBody := generateRequest{
		Contents: []content{{
			Role: "user",
			Parts: []part{{
				Text: fmt.Sprintf("Here is my company's carbon emission data from transport: %s. Please analyze it and provide personalized suggestions for improvement.", dataText),
			}},
		}},
		SystemInstruction: &content{
			Role:  "system",
			Parts: []part{{Text: systemPrompt}},
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if out.Error != nil {
			return "", fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, out.Error.Message)
		}
		return "", fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: no candidates", ErrMalformedResponse)
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}
