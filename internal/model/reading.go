package model

import "time"

// HistoricalPoint is one entry of a reading's chronological history.
type HistoricalPoint struct {
	Timestamp time.Time `json:"timestamp"`
	AQI       float64   `json:"aqi" validate:"gte=0"`
	PM25      float64   `json:"pm25" validate:"gte=0"`
}

// Reading is a snapshot of the air-quality sensors.
type Reading struct {
	AQI            float64           `json:"aqi" validate:"gte=0"`
	PM25           float64           `json:"pm25" validate:"gte=0"`
	Temperature    float64           `json:"temperature"`
	Humidity       float64           `json:"humidity" validate:"gte=0,lte=100"`
	LastUpdated    time.Time         `json:"lastUpdated" validate:"required"`
	HistoricalData []HistoricalPoint `json:"historicalData" validate:"dive"`
}
