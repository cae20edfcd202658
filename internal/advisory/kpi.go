package advisory

import "math"

// Kpi projects the snapshot into the dashboard's headline figures. Revenue is
// the first top crop's average per-acre profitability scaled by the farm size
// and divided down to a monthly figure; 0 when the range is unparsable.
func (d *Deriver) Kpi(rec CompositeRecord, farmSizeAcres float64) KpiSummary {
	props := payloadMap(rec.SoilData, "properties")
	if props == nil {
		props = payloadMap(rec.SoilData, "soil_properties")
	}

	summary := KpiSummary{
		Weather:  rec.Weather,
		Drainage: payloadString(props, "drainage"),
	}
	summary.SoilPH, _ = payloadFloat(props, "pH")

	if crops := topCrops(rec.CropData); len(crops) > 0 {
		avgProfit := profitabilityMidpoint(payloadString(crops[0], "annual_profitability"))
		summary.EstimatedRevenue = int(math.Round(float64(avgProfit) * farmSizeAcres / 12))
	}
	return summary
}
