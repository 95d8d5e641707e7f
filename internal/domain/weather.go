package domain

// Location is a geocoded place returned by the geocoding API
type Location struct {
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DailyForecast is one day's min/max temperature record
type DailyForecast struct {
	Date           string  `json:"date"`
	TemperatureMax float64 `json:"temperature_max"`
	TemperatureMin float64 `json:"temperature_min"`
	WeatherCode    int     `json:"weather_code"`
}

// Forecast represents the multi-day forecast for a location
type Forecast struct {
	Latitude  float64         `json:"latitude"`
	Longitude float64         `json:"longitude"`
	City      string          `json:"city"`
	Country   string          `json:"country"`
	Daily     []DailyForecast `json:"daily"`
}

// WeatherResponse wraps a forecast with response metadata
type WeatherResponse struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Weather Forecast `json:"weather"`
}

// ErrorResponse is the envelope returned for every failed request
type ErrorResponse struct {
	Status    string `json:"status"`
	Type      string `json:"type,omitempty"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}
