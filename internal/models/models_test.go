package models_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groundwatch/internal/models"
)

func TestRawReading_DecodeMixedNumericEncodings(t *testing.T) {
	payload := `{
		"stationCode": "W12345",
		"stationName": "Dug Well Shirur",
		"latitude": 19.1,
		"longitude": "74.3",
		"wellDepth": "3.20",
		"dataValue": null,
		"dataTime": "2025-09-20 06:00:00",
		"unit": "m",
		"wellType": "Dug Well",
		"wellAquiferType": "Unconfined",
		"stationStatus": "Active"
	}`

	var raw models.RawReading
	require.NoError(t, json.Unmarshal([]byte(payload), &raw))

	assert.True(t, raw.Latitude.Valid)
	assert.InEpsilon(t, 19.1, raw.Latitude.Value, 1e-9)
	assert.True(t, raw.Longitude.Valid)
	assert.InEpsilon(t, 74.3, raw.Longitude.Value, 1e-9)
	assert.True(t, raw.WellDepth.Valid)
	assert.InEpsilon(t, 3.2, raw.WellDepth.Value, 1e-9)
	assert.False(t, raw.DataValue.Valid)
	assert.Equal(t, "Active", raw.StationStatus)
}

func TestFlexFloat_GarbageIsInvalidNotError(t *testing.T) {
	cases := map[string]string{
		"null":         `{"latitude": null}`,
		"empty string": `{"latitude": ""}`,
		"non-numeric":  `{"latitude": "N/A"}`,
		"absent":       `{}`,
	}

	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			var raw models.RawReading
			require.NoError(t, json.Unmarshal([]byte(payload), &raw))
			assert.False(t, raw.Latitude.Valid)
		})
	}
}

func TestFlexFloat_MarshalRoundtrip(t *testing.T) {
	out, err := json.Marshal(models.FlexFloat{Value: 12.5, Valid: true})
	require.NoError(t, err)
	assert.Equal(t, "12.5", string(out))

	out, err = json.Marshal(models.FlexFloat{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))
}

func TestDateWindow_Formatting(t *testing.T) {
	w := models.DateWindow{
		Start: time.Date(2025, time.September, 20, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, time.September, 21, 0, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, "2025-09-20", w.StartDate())
	assert.Equal(t, "2025-09-21", w.EndDate())
}
