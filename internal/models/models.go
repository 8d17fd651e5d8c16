package models

import (
	"bytes"
	"strconv"
	"time"
)

// DistrictRef identifies one administrative district of a state. The list is
// loaded once at startup and never mutated.
type DistrictRef struct {
	State    string `json:"state"`
	District string `json:"district"`
}

// DateWindow is the start/end date range sent to the upstream API.
type DateWindow struct {
	Start time.Time
	End   time.Time
}

// StartDate returns the window start formatted the way the upstream expects.
func (w DateWindow) StartDate() string { return w.Start.Format("2006-01-02") }

// EndDate returns the window end formatted the way the upstream expects.
func (w DateWindow) EndDate() string { return w.End.Format("2006-01-02") }

// FlexFloat tolerates the upstream's inconsistent numeric encoding: values
// arrive as JSON numbers, quoted strings, empty strings, or null. Anything
// unparseable decodes as not-Valid rather than failing the whole payload.
type FlexFloat struct {
	Value float64
	Valid bool
}

var jsonNull = []byte("null")

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	f.Value, f.Valid = 0, false
	if bytes.Equal(data, jsonNull) {
		return nil
	}
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	f.Value, f.Valid = v, true
	return nil
}

// MarshalJSON implements json.Marshaler.
func (f FlexFloat) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return jsonNull, nil
	}
	return []byte(strconv.FormatFloat(f.Value, 'f', -1, 64)), nil
}

// RawReading is one station entry from the upstream groundwater feed. The
// shape is owned by the upstream API; any field may be absent or malformed.
type RawReading struct {
	StationCode   string    `json:"stationCode"`
	StationName   string    `json:"stationName"`
	Latitude      FlexFloat `json:"latitude"`
	Longitude     FlexFloat `json:"longitude"`
	WellDepth     FlexFloat `json:"wellDepth"`
	DataValue     FlexFloat `json:"dataValue"`
	DataTime      string    `json:"dataTime"`
	Unit          string    `json:"unit"`
	WellType      string    `json:"wellType"`
	AquiferType   string    `json:"wellAquiferType"`
	StationStatus string    `json:"stationStatus"`
}

// GroundwaterRecord is the destination row shape. Latitude, longitude and
// well depth are guaranteed present and numeric; readings that cannot satisfy
// that are dropped by the mapper before they ever reach the store.
type GroundwaterRecord struct {
	ID            int64      `json:"id,omitempty"`
	State         string     `json:"state"`
	District      string     `json:"district"`
	StationCode   string     `json:"station_code"`
	StationName   string     `json:"station_name"`
	Latitude      float64    `json:"latitude"`
	Longitude     float64    `json:"longitude"`
	WellDepth     float64    `json:"well_depth"`
	DataValue     *float64   `json:"data_value"`
	DataTime      *time.Time `json:"data_time"`
	Unit          string     `json:"unit"`
	WellType      string     `json:"well_type"`
	AquiferType   string     `json:"aquifer_type"`
	StationStatus string     `json:"station_status"`
}

// WriteReport summarizes one clear-then-insert replacement.
type WriteReport struct {
	RecordsRequested int `json:"records_requested"`
	RecordsWritten   int `json:"records_written"`
	BatchesFailed    int `json:"batches_failed"`
}

// CycleReport carries the outcome of one full load cycle. Failures are
// counted and listed, never raised; a cycle always produces a report.
type CycleReport struct {
	StartedAt          time.Time     `json:"started_at"`
	Duration           time.Duration `json:"-"`
	DurationSeconds    float64       `json:"duration_seconds"`
	DistrictsProcessed int           `json:"districts_processed"`
	DistrictsFailed    int           `json:"districts_failed"`
	RecordsFetched     int           `json:"records_fetched"`
	RecordsDropped     int           `json:"records_dropped"`
	Write              WriteReport   `json:"write"`
	Errors             []string      `json:"errors,omitempty"`
}
