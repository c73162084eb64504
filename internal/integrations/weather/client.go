package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const baseURL = "https://api.open-meteo.com/v1/forecast"

// Client fetches current conditions and today's forecast from Open-Meteo.
// No authentication required.
type Client struct {
	httpClient *http.Client
	latitude   float64
	longitude  float64
}

// NewClient creates a weather client for a fixed location.
func NewClient(latitude, longitude float64) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		latitude:  latitude,
		longitude: longitude,
	}
}

// Report holds current conditions plus today's forecast.
type Report struct {
	Temperature  float64 `json:"temperature"`
	Description  string  `json:"description"`
	High         float64 `json:"high"`
	Low          float64 `json:"low"`
	PrecipChance int     `json:"precip_chance"`
}

type apiResponse struct {
	Current struct {
		Temperature float64 `json:"temperature_2m"`
		WeatherCode int     `json:"weather_code"`
	} `json:"current"`
	Daily struct {
		TempMax   []float64 `json:"temperature_2m_max"`
		TempMin   []float64 `json:"temperature_2m_min"`
		PrecipMax []int     `json:"precipitation_probability_max"`
	} `json:"daily"`
}

// Fetch retrieves the weather report.
func (c *Client) Fetch(ctx context.Context) (Report, error) {
	url := fmt.Sprintf("%s?latitude=%.4f&longitude=%.4f&current=temperature_2m,weather_code&daily=temperature_2m_max,temperature_2m_min,precipitation_probability_max&timezone=auto&forecast_days=1",
		baseURL, c.latitude, c.longitude)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return Report{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Report{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Report{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return Report{}, fmt.Errorf("weather API error (%d): %s", resp.StatusCode, string(body))
	}

	var api apiResponse
	if err := json.Unmarshal(body, &api); err != nil {
		return Report{}, fmt.Errorf("parse response: %w", err)
	}

	report := Report{
		Temperature: api.Current.Temperature,
		Description: describeCode(api.Current.WeatherCode),
	}
	if len(api.Daily.TempMax) > 0 {
		report.High = api.Daily.TempMax[0]
	}
	if len(api.Daily.TempMin) > 0 {
		report.Low = api.Daily.TempMin[0]
	}
	if len(api.Daily.PrecipMax) > 0 {
		report.PrecipChance = api.Daily.PrecipMax[0]
	}
	return report, nil
}

// describeCode maps WMO weather codes to short descriptions.
func describeCode(code int) string {
	switch {
	case code == 0:
		return "clear"
	case code <= 3:
		return "partly cloudy"
	case code <= 48:
		return "foggy"
	case code <= 57:
		return "drizzle"
	case code <= 67:
		return "rain"
	case code <= 77:
		return "snow"
	case code <= 82:
		return "rain showers"
	case code <= 86:
		return "snow showers"
	default:
		return "thunderstorms"
	}
}
