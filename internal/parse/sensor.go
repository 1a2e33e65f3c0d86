package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	sensorRe = regexp.MustCompile(`(?i)^(?:sensor)?[\s_#-]*(\d+)$`)
	spaceRe  = regexp.MustCompile(`\s+`)
)

// SensorID is a normalized sensor identifier.
type SensorID struct {
	Seq int
}

// String renders the canonical form, e.g. "sensor-3".
func (s SensorID) String() string {
	return fmt.Sprintf("sensor-%d", s.Seq)
}

// Label renders the display form, e.g. "Sensor 3".
func (s SensorID) Label() string {
	return fmt.Sprintf("Sensor %d", s.Seq)
}

// ParseSensorID accepts the spellings submitted by clients ("sensor-3",
// "Sensor 3", "SENSOR_3", "#3", "3") and returns the normalized id.
func ParseSensorID(raw string) (SensorID, error) {
	s := strings.TrimSpace(raw)
	s = spaceRe.ReplaceAllString(s, " ")

	m := sensorRe.FindStringSubmatch(s)
	if m == nil {
		return SensorID{}, fmt.Errorf("unable to parse sensor id: %q", raw)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return SensorID{}, fmt.Errorf("unable to parse sensor id: %q", raw)
	}
	return SensorID{Seq: n}, nil
}
