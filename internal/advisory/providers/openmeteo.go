package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sony/gobreaker"

	"github.com/farmsight/farmsight/internal/advisory"
)

// weatherConditions maps Open-Meteo numeric weather codes to display labels.
// Unknown codes fall through to "Partly Cloudy".
var weatherConditions = map[int]string{
	0:  "Clear",
	1:  "Mainly Clear",
	2:  "Partly Cloudy",
	3:  "Overcast",
	45: "Foggy",
	48: "Rime Fog",
	61: "Light Rain",
	63: "Rain",
	65: "Heavy Rain",
	80: "Light Showers",
	81: "Showers",
	82: "Heavy Showers",
}

const defaultCondition = "Partly Cloudy"

// OpenMeteoClient fetches current weather. Open-Meteo needs no API key.
type OpenMeteoClient struct {
	baseURL string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

func NewOpenMeteoClient(client *http.Client) *OpenMeteoClient {
	return &OpenMeteoClient{
		baseURL: "https://api.open-meteo.com/v1/forecast",
		client:  client,
		circuit: newBreaker("open-meteo"),
	}
}

// Current returns the normalized current-weather report for a coordinate pair.
func (c *OpenMeteoClient) Current(ctx context.Context, lat, lon float64) (advisory.WeatherReport, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", fmt.Sprintf("%f", lat))
		values.Set("longitude", fmt.Sprintf("%f", lon))
		values.Set("current", "temperature_2m,weather_code,wind_speed_10m,relative_humidity_2m")

		return http.NewRequest(http.MethodGet, c.baseURL+"?"+values.Encode(), nil)
	}

	body, err := doRequest(ctx, c.client, c.circuit, "open-meteo", buildRequest)
	if err != nil {
		return advisory.WeatherReport{}, err
	}

	var payload struct {
		Current struct {
			Temperature float64 `json:"temperature_2m"`
			WeatherCode int     `json:"weather_code"`
			WindSpeed   float64 `json:"wind_speed_10m"`
			Humidity    float64 `json:"relative_humidity_2m"`
		} `json:"current"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return advisory.WeatherReport{}, fmt.Errorf("decoding weather payload: %w", err)
	}

	return advisory.WeatherReport{
		Temp:      payload.Current.Temperature,
		Condition: MapWeatherCode(payload.Current.WeatherCode),
		Humidity:  payload.Current.Humidity,
		WindSpeed: payload.Current.WindSpeed,
		Icon:      "partly-cloudy",
	}, nil
}

// MapWeatherCode translates a numeric condition code to its display label.
func MapWeatherCode(code int) string {
	if label, ok := weatherConditions[code]; ok {
		return label
	}
	return defaultCondition
}
