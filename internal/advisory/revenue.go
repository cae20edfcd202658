package advisory

import "math"

// Revenue projects twelve months of revenue for the top three crops. Each
// figure is the crop's average per-acre profitability scaled by the farm size,
// divided down to a monthly baseline, with a ±20% seasonal perturbation on
// every entry. Crops with an unparsable profitability range project 0.
func (d *Deriver) Revenue(rec CompositeRecord, farmSizeAcres float64) []RevenueMonth {
	crops := topCrops(rec.CropData)
	if len(crops) > 3 {
		crops = crops[:3]
	}

	out := make([]RevenueMonth, 0, len(crops)*12)
	for _, month := range shortMonths {
		for _, crop := range crops {
			avgProfit := profitabilityMidpoint(payloadString(crop, "annual_profitability"))
			jitter := 0.8 + d.rng.Float64()*0.4
			out = append(out, RevenueMonth{
				Month:   month,
				Crop:    payloadString(crop, "crop"),
				Revenue: int(math.Round(float64(avgProfit) * farmSizeAcres / 12 * jitter)),
			})
		}
	}
	return out
}
