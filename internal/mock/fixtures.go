package mock

import "time"

// Historical samples cover the last 24 hours in 4 hour steps, oldest first.
var historicalFixture = []struct {
	aqi  float64
	pm25 float64
}{
	{35, 10},
	{42, 12},
	{58, 18},
	{75, 25},
	{62, 20},
	{48, 15},
	{40, 12},
}

const historicalStep = 4 * time.Hour

// newestTransactionAge is how long ago the most recent mock transaction happened.
const newestTransactionAge = 2 * time.Minute

type txFixture struct {
	signature string
	age       time.Duration // relative to the newest record
	sensorID  string
	aqi       float64
	pm25      float64
}

// Ordered newest first; ages are strictly increasing.
var transactionFixture = []txFixture{
	{"5qpT3NWxcR4Lv2Jj8YQYGNqoFrfDKxHd7mwTJDHX5BsrUZf9qdkHZXnXP6iSz7RYZHBmx9aQNwLCvMJGkw3f2Qe", 0, "sensor-1", 42, 12.5},
	{"3xRTm2Nj6LpYvBqDzHwK9FcS4GxZeJQr7tVX8sP5RmYfUZf9qdkHZXnXP6iSz7RYZHBmx9aQNwLCvMJGkw3f2Qe", 27*time.Minute + 11*time.Second, "sensor-2", 65, 22.3},
	{"7aQpWxYzE4Rt2VbNmLkF8sJdG3hP9cRvX5sT6uZf9qdkHZXnXP6iSz7RYZHBmx9aQNwLCvMJGkw3f2Qe", 41*time.Minute + 38*time.Second, "sensor-3", 110, 45.8},
	{"2bTrKpLm5nVxCzJqWsYf7gDh8eP3aRvX5sT6uZf9qdkHZXnXP6iSz7RYZHBmx9aQNwLCvMJGkw3f2Qe", 56*time.Minute + 50*time.Second, "sensor-4", 35, 9.2},
	{"9cXpWzYtE4Rt2VbNmLkF8sJdG3hP9cRvX5sT6uZf9qdkHZXnXP6iSz7RYZHBmx9aQNwLCvMJGkw3f2Qe", time.Hour + 12*time.Minute + 5*time.Second, "sensor-5", 48, 14.7},
	{"4dRtMpLm5nVxCzJqWsYf7gDh8eP3aRvX5sT6uZf9qdkHZXnXP6iSz7RYZHBmx9aQNwLCvMJGkw3f2Qe", time.Hour + 27*time.Minute + 21*time.Second, "sensor-1", 44, 13.1},
	{"6eTsWzYtE4Rt2VbNmLkF8sJdG3hP9cRvX5sT6uZf9qdkHZXnXP6iSz7RYZHBmx9aQNwLCvMJGkw3f2Qe", time.Hour + 41*time.Minute + 28*time.Second, "sensor-2", 68, 23.5},
	{"8fVuNpLm5nVxCzJqWsYf7gDh8eP3aRvX5sT6uZf9qdkHZXnXP6iSz7RYZHBmx9aQNwLCvMJGkw3f2Qe", time.Hour + 56*time.Minute + 43*time.Second, "sensor-3", 105, 42.3},
	{"1gWvXzYtE4Rt2VbNmLkF8sJdG3hP9cRvX5sT6uZf9qdkHZXnXP6iSz7RYZHBmx9aQNwLCvMJGkw3f2Qe", 2*time.Hour + 12*time.Minute + 1*time.Second, "sensor-4", 38, 10.5},
	{"5hYwPpLm5nVxCzJqWsYf7gDh8eP3aRvX5sT6uZf9qdkHZXnXP6iSz7RYZHBmx9aQNwLCvMJGkw3f2Qe", 2*time.Hour + 27*time.Minute + 13*time.Second, "sensor-5", 50, 15.2},
}

var sensorFixture = []struct {
	id, name string
	lat, lng float64
	aqi      float64
}{
	{"sensor-1", "Downtown", 37.7749, -122.4194, 42},
	{"sensor-2", "Westside", 37.7833, -122.4167, 65},
	{"sensor-3", "Eastside", 37.8044, -122.2711, 110},
	{"sensor-4", "Southside", 37.7219, -122.4782, 35},
	{"sensor-5", "Northside", 37.8045, -122.4107, 48},
}

const (
	currentAQI         = 58
	currentPM25        = 18.5
	currentTemperature = 24.3
	currentHumidity    = 65

	// MockBalance is what every connected wallet holds in the simulation.
	MockBalance = 1250.75
	// FallbackBalance is shown when the balance lookup fails.
	FallbackBalance = 1000.0
)
