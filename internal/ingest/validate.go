package ingest

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"oceanwatch/pkg/types"
)

// observationLayouts are tried in order. The report form sends either a full
// RFC 3339 timestamp or a bare date.
var observationLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

type parsedPayload struct {
	hazardType        types.HazardType
	severity          types.Severity
	latitude          float64
	longitude         float64
	timeOfObservation time.Time
	deviceInfo        json.RawMessage
}

// validatePayload checks every field and reports all problems at once.
func validatePayload(p types.ReportPayload) (parsedPayload, *types.ValidationError) {
	var (
		out  parsedPayload
		verr = &types.ValidationError{}
	)

	required := []struct {
		name  string
		value string
	}{
		{"hazardType", p.HazardType},
		{"severity", p.Severity},
		{"description", p.Description},
		{"locationDescription", p.LocationDescription},
		{"latitude", p.Latitude},
		{"longitude", p.Longitude},
		{"timeOfObservation", p.TimeOfObservation},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			verr.MissingFields = append(verr.MissingFields, f.name)
		}
	}

	if v := strings.TrimSpace(p.HazardType); v != "" {
		out.hazardType = types.HazardType(v)
		if !out.hazardType.Valid() {
			verr.InvalidFields = append(verr.InvalidFields, "hazardType")
		}
	}

	if v := strings.TrimSpace(p.Severity); v != "" {
		out.severity = types.Severity(v)
		if !out.severity.Valid() {
			verr.InvalidFields = append(verr.InvalidFields, "severity")
		}
	}

	if v := strings.TrimSpace(p.Latitude); v != "" {
		lat, ok := parseCoordinate(v, 90)
		if !ok {
			verr.InvalidFields = append(verr.InvalidFields, "latitude")
		}
		out.latitude = lat
	}

	if v := strings.TrimSpace(p.Longitude); v != "" {
		lng, ok := parseCoordinate(v, 180)
		if !ok {
			verr.InvalidFields = append(verr.InvalidFields, "longitude")
		}
		out.longitude = lng
	}

	if v := strings.TrimSpace(p.TimeOfObservation); v != "" {
		ts, ok := parseObservationTime(v)
		if !ok {
			verr.InvalidFields = append(verr.InvalidFields, "timeOfObservation")
		}
		out.timeOfObservation = ts
	}

	if v := strings.TrimSpace(p.DeviceInfo); v != "" {
		if !json.Valid([]byte(v)) {
			verr.InvalidFields = append(verr.InvalidFields, "deviceInfo")
		} else {
			out.deviceInfo = json.RawMessage(v)
		}
	}

	if !verr.Empty() {
		return parsedPayload{}, verr
	}

	return out, nil
}

func parseCoordinate(s string, limit float64) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	if v < -limit || v > limit {
		return 0, false
	}
	return v, true
}

func parseObservationTime(s string) (time.Time, bool) {
	for _, layout := range observationLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}
