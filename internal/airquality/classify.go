package airquality

import "fmt"

// threshold is an inclusive upper bound for a band.
type threshold struct {
	max  float64
	band Band
}

var (
	aqiThresholds = []threshold{
		{50, BandGood},
		{100, BandModerate},
		{150, BandUnhealthy},
	}
	pm25Thresholds = []threshold{
		{12, BandGood},
		{35.4, BandModerate},
		{55.4, BandUnhealthy},
	}
)

// Classify maps a reading onto its severity band. It is total over the reals:
// negative values land in the lowest band. Calling it with a metric that has no
// thresholds is a programming error and panics.
func Classify(value float64, metric Metric) Band {
	band, err := ClassifyMetric(value, metric)
	if err != nil {
		panic(err)
	}
	return band
}

// ClassifyMetric is the non-panicking form of Classify.
func ClassifyMetric(value float64, metric Metric) (Band, error) {
	var table []threshold
	switch metric {
	case MetricAQI:
		table = aqiThresholds
	case MetricPM25:
		table = pm25Thresholds
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMetricKind, metric)
	}
	for _, t := range table {
		if value <= t.max {
			return t.band, nil
		}
	}
	return BandHazardous, nil
}

// BandFor returns the band for any metric, using BandNormal for metrics the
// dashboard shows without thresholds.
func BandFor(value float64, metric Metric) Band {
	switch metric {
	case MetricTemperature, MetricHumidity:
		return BandNormal
	}
	return Classify(value, metric)
}
