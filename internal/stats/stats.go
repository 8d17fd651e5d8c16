// Package stats derives the aggregate summary served by /api/v1/stats.
package stats

import "groundwatch/internal/models"

// Depth thresholds (metres below ground) for the four status buckets shown
// on the map legend.
const (
	goodMax     = 5.0
	moderateMax = 15.0
	poorMax     = 30.0
)

// Summary is the aggregate view over the currently stored rows.
type Summary struct {
	Total    int     `json:"total"`
	AvgDepth float64 `json:"avg_depth"`
	Good     int     `json:"good"`
	Moderate int     `json:"moderate"`
	Poor     int     `json:"poor"`
	Critical int     `json:"critical"`
}

// Summarize computes the summary in one pass. Well depth is always present
// on stored rows, so every record lands in exactly one bucket.
func Summarize(records []models.GroundwaterRecord) Summary {
	s := Summary{Total: len(records)}
	if len(records) == 0 {
		return s
	}

	var depthSum float64
	for _, r := range records {
		depthSum += r.WellDepth
		switch {
		case r.WellDepth <= goodMax:
			s.Good++
		case r.WellDepth <= moderateMax:
			s.Moderate++
		case r.WellDepth <= poorMax:
			s.Poor++
		default:
			s.Critical++
		}
	}
	s.AvgDepth = depthSum / float64(len(records))
	return s
}
