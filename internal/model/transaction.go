package model

import "time"

// Transaction is a simulated on-chain record of a sensor reading.
type Transaction struct {
	Signature string    `json:"signature" validate:"required"`
	Timestamp time.Time `json:"timestamp" validate:"required"`
	SensorID  string    `json:"sensorId" validate:"required"`
	AQI       float64   `json:"aqi" validate:"gte=0"`
	PM25      float64   `json:"pm25" validate:"gte=0"`
	Confirmed bool      `json:"confirmed"`
}
