package advisory

import "strings"

// textureCompositions estimates sand/silt/clay splits from a texture label
// when the provider payload carries no explicit composition. Matched by
// substring, first hit wins.
var textureCompositions = []struct {
	keyword string
	comp    SoilComposition
}{
	{"sandy loam", SoilComposition{Sand: 60, Silt: 30, Clay: 10}},
	{"clay loam", SoilComposition{Sand: 30, Silt: 35, Clay: 35}},
	{"silt", SoilComposition{Sand: 20, Silt: 60, Clay: 20}},
	{"sandy", SoilComposition{Sand: 70, Silt: 20, Clay: 10}},
	{"clay", SoilComposition{Sand: 25, Silt: 25, Clay: 50}},
	{"loam", SoilComposition{Sand: 40, Silt: 40, Clay: 20}},
}

var genericComposition = SoilComposition{Sand: 40, Silt: 40, Clay: 20}

// Soil normalizes the schema-variable soil payload into one profile.
// Property bags arrive under either "properties" or "soil_properties", and
// the location label may be a plain string or a nested object.
func (d *Deriver) Soil(rec CompositeRecord) SoilProfile {
	props := payloadMap(rec.SoilData, "properties")
	if props == nil {
		props = payloadMap(rec.SoilData, "soil_properties")
	}

	profile := SoilProfile{
		Location:      soilLocation(rec.SoilData),
		Texture:       payloadString(props, "texture"),
		Drainage:      payloadString(props, "drainage"),
		OrganicMatter: payloadString(props, "organicMatter"),
		Insights:      payloadString(rec.SoilData, "keyInsights"),
	}
	profile.PH, _ = payloadFloat(props, "pH")
	profile.Composition = soilComposition(props, profile.Texture)

	for _, s := range payloadSlice(rec.SoilData, "sources") {
		if src, ok := s.(string); ok {
			profile.Sources = append(profile.Sources, src)
		}
	}
	return profile
}

func soilLocation(soilData RawPayload) string {
	if s := payloadString(soilData, "location"); s != "" {
		return s
	}
	if loc := payloadMap(soilData, "location"); loc != nil {
		if s := payloadString(loc, "place"); s != "" {
			return s
		}
		return payloadString(loc, "name")
	}
	return payloadString(soilData, "pincode")
}

func soilComposition(props RawPayload, texture string) SoilComposition {
	sand, okSand := payloadFloat(props, "sandContent")
	silt, okSilt := payloadFloat(props, "siltContent")
	clay, okClay := payloadFloat(props, "clayContent")
	if okSand && okSilt && okClay {
		return SoilComposition{Sand: int(sand), Silt: int(silt), Clay: int(clay)}
	}

	label := strings.ToLower(texture)
	for _, tc := range textureCompositions {
		if strings.Contains(label, tc.keyword) {
			return tc.comp
		}
	}
	return genericComposition
}
