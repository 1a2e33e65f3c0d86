package airquality

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	testCases := []struct {
		name     string
		value    float64
		metric   Metric
		expected Band
	}{
		{"AQI good", 42, MetricAQI, BandGood},
		{"AQI moderate", 65, MetricAQI, BandModerate},
		{"AQI unhealthy", 110, MetricAQI, BandUnhealthy},
		{"AQI hazardous", 151, MetricAQI, BandHazardous},
		{"AQI boundary 50 is good", 50, MetricAQI, BandGood},
		{"AQI just above 50 is moderate", 50.0001, MetricAQI, BandModerate},
		{"AQI boundary 100 is moderate", 100, MetricAQI, BandModerate},
		{"AQI boundary 150 is unhealthy", 150, MetricAQI, BandUnhealthy},
		{"AQI negative is good", -5, MetricAQI, BandGood},
		{"PM2.5 12.5 is above the good band", 12.5, MetricPM25, BandModerate},
		{"PM2.5 boundary 12 is good", 12, MetricPM25, BandGood},
		{"PM2.5 low", 9.2, MetricPM25, BandGood},
		{"PM2.5 boundary 35.4 is moderate", 35.4, MetricPM25, BandModerate},
		{"PM2.5 unhealthy", 45.8, MetricPM25, BandUnhealthy},
		{"PM2.5 boundary 55.4 is unhealthy", 55.4, MetricPM25, BandUnhealthy},
		{"PM2.5 hazardous", 55.5, MetricPM25, BandHazardous},
		{"AQI +Inf is hazardous", math.Inf(1), MetricAQI, BandHazardous},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Classify(tc.value, tc.metric))
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	for _, v := range []float64{-1, 0, 12, 35.4, 50, 50.0001, 99.9, 150, 1e9} {
		for _, m := range []Metric{MetricAQI, MetricPM25} {
			first := Classify(v, m)
			for i := 0; i < 5; i++ {
				assert.Equal(t, first, Classify(v, m))
			}
		}
	}
}

func TestClassify_InvalidMetricPanics(t *testing.T) {
	assert.PanicsWithError(t, `invalid metric kind: "temperature"`, func() {
		Classify(20, MetricTemperature)
	})

	_, err := ClassifyMetric(20, Metric("ozone"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidMetricKind)
}

func TestBandFor(t *testing.T) {
	assert.Equal(t, BandNormal, BandFor(24.3, MetricTemperature))
	assert.Equal(t, BandNormal, BandFor(65, MetricHumidity))
	assert.Equal(t, BandModerate, BandFor(58, MetricAQI))
}

func TestParseMetric(t *testing.T) {
	for raw, want := range map[string]Metric{
		"AQI":   MetricAQI,
		"PM2.5": MetricPM25,
		"pm25":  MetricPM25,
		" PM25": MetricPM25,
		"temp":  MetricTemperature,
	} {
		got, err := ParseMetric(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := ParseMetric("co2")
	assert.ErrorIs(t, err, ErrInvalidMetricKind)
}

func TestBand_Ordering(t *testing.T) {
	assert.True(t, BandHazardous.Worse(BandUnhealthy))
	assert.True(t, BandModerate.Worse(BandGood))
	assert.False(t, BandGood.Worse(BandGood))
	assert.False(t, BandGood.Worse(BandModerate))
	assert.True(t, BandUnhealthy.Alerting())
	assert.False(t, BandModerate.Alerting())
	assert.Equal(t, "Hazardous", BandHazardous.Label())
	assert.Equal(t, "Normal", BandNormal.Label())
}
