// Package gemini adapts the Gemini API to the advisor ports.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"tripledger/internal/core"
)

const model = "gemini-2.5-flash"

// Client implements advisor.WeatherAdvisor and advisor.Categorizer on
// top of the Gemini API.
type Client struct {
	ai *genai.Client
}

func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	ai, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Client{ai: ai}, nil
}

type forecastPayload struct {
	TempMin   float64 `json:"tempMin"`
	TempMax   float64 `json:"tempMax"`
	RainProb  int     `json:"rainProb"`
	Condition string  `json:"condition"`
	Advice    string  `json:"advice"`
}

// Forecast asks the model for an estimated forecast in JSON. Any failure
// resolves to the fixed fallback forecast with a nil error: the advisor
// contract is that a date always gets a well-defined answer.
func (c *Client) Forecast(ctx context.Context, location, date string) (core.Forecast, error) {
	prompt := fmt.Sprintf(`Location: %s
Date: %s

Estimate the historical or expected weather for this location and date.
Return JSON with keys: tempMin (number, Celsius), tempMax (number,
Celsius), rainProb (number, 0-100), condition (string, Traditional
Chinese), advice (string, short practical advice in Traditional Chinese).`,
		location, date)

	resp, err := c.ai.Models.GenerateContent(ctx, model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		slog.WarnContext(ctx, "Weather forecast call failed, using fallback",
			"location", location, "date", date, "error", err)
		return core.FallbackForecast(), nil
	}

	var payload forecastPayload
	if err := json.Unmarshal([]byte(strings.TrimSpace(resp.Text())), &payload); err != nil {
		slog.WarnContext(ctx, "Weather forecast response not parseable, using fallback",
			"location", location, "date", date, "error", err)
		return core.FallbackForecast(), nil
	}

	return core.Forecast{
		TempMin:   payload.TempMin,
		TempMax:   payload.TempMax,
		RainProb:  payload.RainProb,
		Condition: payload.Condition,
		Advice:    payload.Advice,
	}, nil
}

// Categorize asks the model for a single category word. Failures and
// out-of-set answers map to Other.
func (c *Client) Categorize(ctx context.Context, item string) (core.Category, error) {
	prompt := fmt.Sprintf(`Categorize the expense item %q into exactly one of these
categories: Food, Transport, Accommodation, Shopping, Other.
Return ONLY the category word.`, item)

	resp, err := c.ai.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		slog.WarnContext(ctx, "Categorize call failed, using Other", "item", item, "error", err)
		return core.CategoryOther, nil
	}
	return core.NormalizeCategory(resp.Text()), nil
}
