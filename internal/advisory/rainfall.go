package advisory

import "math"

const inchesToMM = 25.4

var shortMonths = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

var fullMonths = []string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// Rainfall derives the twelve-month rainfall series. Monthly figures may
// arrive as an object keyed by full month names; when absent, the annual
// total is distributed evenly across the year with a ±20% seasonal
// perturbation. Inches convert to millimeters at 25.4 and round to the
// nearest integer. The yield index is a documented non-determinism: each
// rainfall band adds jitter within a fixed range.
func (d *Deriver) Rainfall(rec CompositeRecord) RainfallSeries {
	monthly := payloadMap(rec.RainfallData, "monthly_rainfall")

	series := RainfallSeries{Months: make([]RainfallMonth, 0, 12)}

	var monthlyFallback float64
	if monthly == nil {
		annual, _ := payloadFloat(rec.RainfallData, "annual_rainfall")
		monthlyFallback = annual / 12
	}

	for i, short := range shortMonths {
		var inches float64
		if monthly != nil {
			inches, _ = payloadFloat(monthly, fullMonths[i])
		} else {
			// Even split with ±20% perturbation to avoid a flat chart.
			jitter := 0.8 + d.rng.Float64()*0.4
			inches = monthlyFallback * jitter
		}

		mm := int(math.Round(inches * inchesToMM))
		series.Months = append(series.Months, RainfallMonth{
			Month:      short,
			MM:         mm,
			YieldIndex: d.yieldIndex(mm),
		})
	}

	for _, f := range payloadSlice(rec.RainfallData, "key_findings") {
		if s, ok := f.(string); ok {
			series.KeyFindings = append(series.KeyFindings, s)
		}
	}
	return series
}

// yieldIndex maps monthly rainfall to a 60-100 indicator. Roughly 50-100 mm
// per month is optimal; above that yields taper, below they fall off harder.
func (d *Deriver) yieldIndex(mm int) int {
	switch {
	case mm >= 50 && mm <= 100:
		return 90 + d.intn(11)
	case mm > 100:
		return 80 + d.intn(11)
	default:
		return 60 + d.intn(21)
	}
}
