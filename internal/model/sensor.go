package model

import "openair-backend/internal/airquality"

// SensorLocation is a sensor placed on the dashboard map.
type SensorLocation struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Lat    float64         `json:"lat"`
	Lng    float64         `json:"lng"`
	AQI    float64         `json:"aqi"`
	Status airquality.Band `json:"status"`
}
