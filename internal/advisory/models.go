package advisory

import (
	"time"
)

// CoordTolerance is the fuzzy-equality bound, in degrees, used to associate
// a coordinate pair with previously stored snapshots (~11 m).
const CoordTolerance = 0.0001

// Location is a point on the map plus an advisory place label.
// Lat/Lon are always present together; Place is display-only.
type Location struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Place string  `json:"place"`
}

// Matches reports whether (lat, lon) lies within CoordTolerance of l on both axes.
func (l Location) Matches(lat, lon float64) bool {
	return abs(l.Lat-lat) < CoordTolerance && abs(l.Lon-lon) < CoordTolerance
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// FarmSize is a magnitude plus a unit ("ac", "ha").
type FarmSize struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// Profile is the durable single-tenant user configuration. It lives outside
// the snapshot timeline: configuration, not a time-series fact.
type Profile struct {
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	Phone        string   `json:"phone"`
	Location     Location `json:"location"`
	Language     string   `json:"language"`
	Soil         string   `json:"soil"`
	Irrigation   string   `json:"irrigation"`
	FarmSize     FarmSize `json:"farmSize"`
	Crops        []string `json:"crops"`
	SelectedCrop string   `json:"selectedCrop"`
}

// HasLocation reports whether the profile carries usable coordinates.
func (p Profile) HasLocation() bool {
	return p.Location.Lat != 0 || p.Location.Lon != 0
}

// FarmSizeAcres returns the configured farm size, defaulting to 50 acres
// when the profile has none.
func (p Profile) FarmSizeAcres() float64 {
	if p.FarmSize.Value > 0 {
		return p.FarmSize.Value
	}
	return 50
}

// ProfilePatch is a merge-update to a Profile. Nil fields are left untouched.
type ProfilePatch struct {
	Name         *string   `json:"name"`
	Email        *string   `json:"email"`
	Phone        *string   `json:"phone"`
	Location     *Location `json:"location"`
	Language     *string   `json:"language"`
	Soil         *string   `json:"soil"`
	Irrigation   *string   `json:"irrigation"`
	FarmSize     *FarmSize `json:"farmSize"`
	Crops        []string  `json:"crops"`
	SelectedCrop *string   `json:"selectedCrop"`
}

// Apply merges the patch into p.
func (patch ProfilePatch) Apply(p *Profile) {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Email != nil {
		p.Email = *patch.Email
	}
	if patch.Phone != nil {
		p.Phone = *patch.Phone
	}
	if patch.Location != nil {
		p.Location = *patch.Location
	}
	if patch.Language != nil {
		p.Language = *patch.Language
	}
	if patch.Soil != nil {
		p.Soil = *patch.Soil
	}
	if patch.Irrigation != nil {
		p.Irrigation = *patch.Irrigation
	}
	if patch.FarmSize != nil {
		p.FarmSize = *patch.FarmSize
	}
	if patch.Crops != nil {
		p.Crops = patch.Crops
	}
	if patch.SelectedCrop != nil {
		p.SelectedCrop = *patch.SelectedCrop
	}
}

// RawPayload holds provider-specific, schema-variable JSON. The shape differs
// per location and provider, so normalization happens in the derivations, not
// at the gateway.
type RawPayload map[string]any

// WeatherReport is the normalized current-weather slot.
type WeatherReport struct {
	Temp      float64 `json:"temp"`
	Condition string  `json:"condition"`
	Humidity  float64 `json:"humidity"`
	WindSpeed float64 `json:"windSpeed"`
	Icon      string  `json:"icon"`
}

// CompositeRecord is the output of one aggregator run: four named slots, all
// always present. A provider that degrades to placeholder data still fills
// its slot.
type CompositeRecord struct {
	SoilData     RawPayload    `json:"soilData"`
	RainfallData RawPayload    `json:"rainfallData"`
	CropData     RawPayload    `json:"cropData"`
	Weather      WeatherReport `json:"weather"`
}

// Snapshot is an immutable, timestamped capture of aggregated external data
// for a location: the composite record wrapped with echo metadata.
type Snapshot struct {
	Location  string          `json:"location"`
	Crop      string          `json:"crop"`
	Timestamp time.Time       `json:"timestamp"`
	Data      CompositeRecord `json:"data"`
}

// View models, derived on demand from the latest snapshot and never stored.

type SubScores struct {
	Soil    int `json:"soil"`
	Climate int `json:"climate"`
	Water   int `json:"water"`
	Market  int `json:"market"`
}

type Suitability struct {
	Crop               string    `json:"crop"`
	Score              int       `json:"score"`
	SubScores          SubScores `json:"subScores"`
	Profitability      string    `json:"profitability,omitempty"`
	YieldEstimate      string    `json:"yield_estimate,omitempty"`
	Reason             string    `json:"reason,omitempty"`
	SuitabilityFactors string    `json:"suitability_factors,omitempty"`
}

type RainfallMonth struct {
	Month      string `json:"month"`
	MM         int    `json:"mm"`
	YieldIndex int    `json:"yieldIndex"`
}

type RainfallSeries struct {
	Months      []RainfallMonth `json:"months"`
	KeyFindings []string        `json:"keyFindings,omitempty"`
}

// RevenueMonth is one crop's projected revenue for one month. The series is
// month-major: all crops for Jan, then Feb, and so on.
type RevenueMonth struct {
	Month   string `json:"month"`
	Crop    string `json:"crop"`
	Revenue int    `json:"revenue"`
}

type SoilComposition struct {
	Sand int `json:"sand"`
	Silt int `json:"silt"`
	Clay int `json:"clay"`
}

type SoilProfile struct {
	Location      string          `json:"location"`
	PH            float64         `json:"pH"`
	Texture       string          `json:"texture"`
	Drainage      string          `json:"drainage"`
	OrganicMatter string          `json:"organicMatter"`
	Composition   SoilComposition `json:"composition"`
	Insights      string          `json:"insights,omitempty"`
	Sources       []string        `json:"sources,omitempty"`
}

type InsightAction struct {
	Label string `json:"label"`
	Href  string `json:"href,omitempty"`
}

type Insight struct {
	ID       string         `json:"id"`
	Severity string         `json:"severity"` // "info", "warn" or "critical"
	Text     string         `json:"text"`
	Action   *InsightAction `json:"action,omitempty"`
}

type KpiSummary struct {
	Weather          WeatherReport `json:"weather"`
	SoilPH           float64       `json:"soilpH"`
	Drainage         string        `json:"drainage"`
	EstimatedRevenue int           `json:"estimatedRevenue"`
}
