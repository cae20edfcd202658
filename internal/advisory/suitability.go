package advisory

// Suitability ranks the snapshot's top crops. The score is a monotonic
// function of list position, never below 60; sub-scores are bucketed from the
// top-level score, with market always equal to it.
func (d *Deriver) Suitability(rec CompositeRecord) []Suitability {
	crops := topCrops(rec.CropData)
	out := make([]Suitability, 0, len(crops))

	for i, crop := range crops {
		score := 95 - 5*i
		if score < 60 {
			score = 60
		}

		var sub SubScores
		switch {
		case score >= 90:
			sub = SubScores{Soil: 95, Climate: 92, Water: 88}
		case score >= 70:
			sub = SubScores{Soil: 85, Climate: 82, Water: 78}
		default:
			sub = SubScores{Soil: 75, Climate: 72, Water: 68}
		}
		sub.Market = score

		out = append(out, Suitability{
			Crop:               payloadString(crop, "crop"),
			Score:              score,
			SubScores:          sub,
			Profitability:      payloadString(crop, "annual_profitability"),
			YieldEstimate:      payloadString(crop, "yield_estimate"),
			Reason:             payloadString(crop, "reason"),
			SuitabilityFactors: payloadString(crop, "suitability_factors"),
		})
	}
	return out
}
