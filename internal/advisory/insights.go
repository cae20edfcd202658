package advisory

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	severityInfo     = "info"
	severityWarn     = "warn"
	severityCritical = "critical"
)

// Insights builds a pool of candidate insights from the snapshot, then picks
// 1-2 warn/critical items and fills up to exactly 4 with info items, chosen
// by shuffle. IDs are renumbered sequentially in final order. userCrops feeds
// the underperforming-crop comparison; pass the profile's crop list.
func (d *Deriver) Insights(rec CompositeRecord, userCrops []string) []Insight {
	pool := d.insightPool(rec, userCrops)

	var alerts, infos []Insight
	for _, in := range pool {
		if in.Severity == severityWarn || in.Severity == severityCritical {
			alerts = append(alerts, in)
		} else {
			infos = append(infos, in)
		}
	}

	d.shuffle(alerts)
	d.shuffle(infos)

	numAlerts := 2
	if len(alerts) < numAlerts {
		numAlerts = len(alerts)
	}
	selected := append([]Insight{}, alerts[:numAlerts]...)

	numInfo := 4 - len(selected)
	if len(infos) < numInfo {
		numInfo = len(infos)
	}
	selected = append(selected, infos[:numInfo]...)

	for i := range selected {
		selected[i].ID = strconv.Itoa(i + 1)
	}
	return selected
}

func (d *Deriver) shuffle(insights []Insight) {
	d.rng.Shuffle(len(insights), func(i, j int) {
		insights[i], insights[j] = insights[j], insights[i]
	})
}

func (d *Deriver) insightPool(rec CompositeRecord, userCrops []string) []Insight {
	var pool []Insight
	add := func(severity, text string, action *InsightAction) {
		pool = append(pool, Insight{Severity: severity, Text: text, Action: action})
	}

	findings := payloadMap(rec.CropData, "key_findings")

	if climate := payloadString(findings, "climate_summary"); climate != "" {
		add(severityInfo, "Climate: "+climate, &InsightAction{Label: "View Climate Data"})
	}
	if soil := payloadString(findings, "soil_summary"); soil != "" {
		add(severityInfo, "Soil: "+soil, &InsightAction{Label: "View Soil Details"})
	}

	rainFindings := payloadSlice(rec.RainfallData, "key_findings")
	if len(rainFindings) > 3 {
		if driest, ok := rainFindings[3].(string); ok {
			add(severityCritical,
				driest+" Plan irrigation carefully during summer months to ensure crop health.",
				&InsightAction{Label: "Irrigation Schedule"})
		}
	}

	if annual, ok := payloadFloat(rec.RainfallData, "annual_rainfall"); ok {
		if annual < 30 {
			add(severityWarn,
				fmt.Sprintf("Annual rainfall (%s) is below optimal. Implement water-efficient irrigation systems and consider drought-resistant crop varieties.",
					payloadString(rec.RainfallData, "annual_rainfall")),
				&InsightAction{Label: "Water Conservation Plan"})
		} else if len(rainFindings) > 2 {
			if wettest, ok := rainFindings[2].(string); ok {
				add(severityInfo,
					wettest+" Good natural water supply during winter. Optimize storage for dry season.",
					&InsightAction{Label: "Water Storage Tips"})
			}
		}
	}

	crops := topCrops(rec.CropData)
	if len(crops) > 0 {
		top := crops[0]
		add(severityInfo,
			fmt.Sprintf("%s is your top opportunity with %s net profit. %s",
				payloadString(top, "crop"),
				payloadString(top, "annual_profitability"),
				truncate(payloadString(top, "reason"), 120)),
			&InsightAction{Label: "Crop Details", Href: "#"})
	}

	props := payloadMap(rec.SoilData, "properties")
	if props == nil {
		props = payloadMap(rec.SoilData, "soil_properties")
	}
	if ph, ok := payloadFloat(props, "pH"); ok {
		switch {
		case ph < 6:
			add(severityWarn,
				fmt.Sprintf("Soil pH (%.1f) is acidic. Consider lime application to raise pH to optimal range (6.0-7.0) for better nutrient availability.", ph),
				&InsightAction{Label: "Soil Amendment Guide"})
		case ph > 7.5:
			add(severityWarn,
				fmt.Sprintf("Soil pH (%.1f) is alkaline. Consider sulfur application to lower pH for improved nutrient uptake.", ph),
				&InsightAction{Label: "pH Management"})
		default:
			add(severityInfo,
				fmt.Sprintf("Excellent soil conditions! pH (%.1f) is optimal. %s texture with %s drainage supports healthy root development.",
					ph, payloadString(props, "texture"), payloadString(props, "drainage")),
				nil)
		}
	}

	if lagging := laggingCrops(userCrops, crops); len(lagging) > 0 && len(crops) >= 2 {
		add(severityWarn,
			fmt.Sprintf("%s may have lower profitability in your area. Consider diversifying with top performers like %s or %s.",
				strings.Join(lagging, ", "),
				payloadString(crops[0], "crop"),
				payloadString(crops[1], "crop")),
			&InsightAction{Label: "Crop Comparison"})
	}

	if market := payloadString(findings, "market_overview"); market != "" {
		add(severityInfo, "Market: "+truncate(market, 180), &InsightAction{Label: "Market Trends", Href: "#"})
	}

	add(severityCritical,
		"Hot, dry summers ahead! Prepare for high irrigation demand. Monitor soil moisture daily and adjust watering schedules to prevent crop stress.",
		&InsightAction{Label: "Summer Prep Guide"})

	if om, ok := payloadFloat(props, "organicMatter"); ok {
		label := payloadString(props, "organicMatter")
		if om < 2 {
			add(severityWarn,
				fmt.Sprintf("Soil organic matter (%s) is low. Add compost or cover crops to improve soil health and nutrient retention.", label),
				&InsightAction{Label: "Soil Health Plan"})
		} else {
			add(severityInfo,
				fmt.Sprintf("Good soil organic matter (%s). Maintain with crop rotation and organic amendments for long-term fertility.", label),
				nil)
		}
	}

	return pool
}

// laggingCrops returns the user's crops absent from the top three entries.
func laggingCrops(userCrops []string, crops []RawPayload) []string {
	top3 := map[string]bool{}
	for i, c := range crops {
		if i >= 3 {
			break
		}
		top3[payloadString(c, "crop")] = true
	}

	var lagging []string
	for _, c := range userCrops {
		if !top3[c] {
			lagging = append(lagging, c)
		}
	}
	return lagging
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
