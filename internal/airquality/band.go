package airquality

import (
	"errors"
	"fmt"
	"strings"
)

// Band is the severity band a reading falls into.
type Band string

const (
	BandGood      Band = "good"
	BandModerate  Band = "moderate"
	BandUnhealthy Band = "unhealthy"
	BandHazardous Band = "hazardous"
	// BandNormal is shown for metrics without defined thresholds.
	BandNormal Band = "normal"
)

// Metric identifies the kind of value being classified.
type Metric string

const (
	MetricAQI         Metric = "aqi"
	MetricPM25        Metric = "pm25"
	MetricTemperature Metric = "temperature"
	MetricHumidity    Metric = "humidity"
)

// ErrInvalidMetricKind is returned (or panicked with) for metrics that have no bands.
var ErrInvalidMetricKind = errors.New("invalid metric kind")

var severity = map[Band]int{
	BandNormal:    0,
	BandGood:      1,
	BandModerate:  2,
	BandUnhealthy: 3,
	BandHazardous: 4,
}

// Label returns the display text of the band.
func (b Band) Label() string {
	switch b {
	case BandGood:
		return "Good"
	case BandModerate:
		return "Moderate"
	case BandUnhealthy:
		return "Unhealthy"
	case BandHazardous:
		return "Hazardous"
	default:
		return "Normal"
	}
}

// Worse reports whether b is strictly more severe than other.
func (b Band) Worse(other Band) bool {
	return severity[b] > severity[other]
}

// Alerting reports whether the band warrants notifying subscribers.
func (b Band) Alerting() bool {
	return b == BandUnhealthy || b == BandHazardous
}

// ParseMetric accepts the names used by the dashboard ("AQI", "PM2.5", "pm25", ...).
func ParseMetric(raw string) (Metric, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, ".", "")
	switch s {
	case "aqi":
		return MetricAQI, nil
	case "pm25":
		return MetricPM25, nil
	case "temperature", "temp":
		return MetricTemperature, nil
	case "humidity":
		return MetricHumidity, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMetricKind, raw)
}
