package store

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/farmsight/farmsight/internal/advisory"
)

func strPtr(s string) *string { return &s }

func TestProfileStartsEmpty(t *testing.T) {
	s, err := NewProfileStore(filepath.Join(t.TempDir(), "profile.json"), zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s.Get(); got.Email != "" || len(got.Crops) != 0 {
		t.Fatalf("expected empty profile, got %+v", got)
	}
}

func TestProfilePersistsAcrossReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.json")

	s, err := NewProfileStore(path, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Replace(advisory.Profile{
		Name:     "Ada",
		Email:    "ada@example.com",
		Location: advisory.Location{Lat: 39.7285, Lon: -121.8375, Place: "Chico"},
		Crops:    []string{"Almonds", "Rice"},
	})

	reloaded, err := NewProfileStore(path, zap.NewNop())
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	got := reloaded.Get()
	if got.Email != "ada@example.com" || got.Location.Place != "Chico" || len(got.Crops) != 2 {
		t.Fatalf("reloaded profile = %+v", got)
	}
}

// A patch touches only the fields it carries; everything else survives.
func TestProfilePatchMerge(t *testing.T) {
	s, err := NewProfileStore(filepath.Join(t.TempDir(), "profile.json"), zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Replace(advisory.Profile{
		Name:  "Ada",
		Email: "ada@example.com",
		Soil:  "Clay Loam",
		Crops: []string{"Almonds"},
	})

	got := s.Apply(advisory.ProfilePatch{
		Soil:  strPtr("Sandy Loam"),
		Crops: []string{"Walnuts", "Olives"},
	})

	if got.Soil != "Sandy Loam" {
		t.Fatalf("soil = %q, want Sandy Loam", got.Soil)
	}
	if len(got.Crops) != 2 || got.Crops[0] != "Walnuts" {
		t.Fatalf("crops = %v", got.Crops)
	}
	if got.Name != "Ada" || got.Email != "ada@example.com" {
		t.Fatalf("untouched fields changed: %+v", got)
	}
}

func TestProfileFarmSizeDefault(t *testing.T) {
	p := advisory.Profile{}
	if got := p.FarmSizeAcres(); got != 50 {
		t.Fatalf("default farm size = %v, want 50", got)
	}
	p.FarmSize = advisory.FarmSize{Value: 120, Unit: "ac"}
	if got := p.FarmSizeAcres(); got != 120 {
		t.Fatalf("farm size = %v, want 120", got)
	}
}
