package pipeline

import (
	"time"

	"groundwatch/internal/models"
)

// dataTimeLayouts are the timestamp formats observed in upstream payloads.
var dataTimeLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// MapReading converts one raw station reading into a destination row.
// It is pure and deterministic: identical input always yields identical
// output, and malformed input is reported as ok=false, never as an error.
// A reading is dropped when latitude, longitude, or well depth is missing,
// non-numeric, or implausible (coordinates off the globe, negative depth).
func MapReading(raw models.RawReading, district models.DistrictRef) (models.GroundwaterRecord, bool) {
	if !raw.Latitude.Valid || !raw.Longitude.Valid || !raw.WellDepth.Valid {
		return models.GroundwaterRecord{}, false
	}

	lat, lon, depth := raw.Latitude.Value, raw.Longitude.Value, raw.WellDepth.Value
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 || depth < 0 {
		return models.GroundwaterRecord{}, false
	}

	rec := models.GroundwaterRecord{
		State:         district.State,
		District:      district.District,
		StationCode:   raw.StationCode,
		StationName:   raw.StationName,
		Latitude:      lat,
		Longitude:     lon,
		WellDepth:     depth,
		DataTime:      parseDataTime(raw.DataTime),
		Unit:          raw.Unit,
		WellType:      raw.WellType,
		AquiferType:   raw.AquiferType,
		StationStatus: raw.StationStatus,
	}

	// A missing measurement value is stored as NULL, not treated as a drop.
	if raw.DataValue.Valid {
		v := raw.DataValue.Value
		rec.DataValue = &v
	}

	return rec, true
}

func parseDataTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range dataTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
