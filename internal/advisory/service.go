package advisory

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Service orchestrates the four-way provider fan-out and snapshot persistence.
type Service struct {
	content ContentFetcher
	weather WeatherFetcher
	store   SnapshotStore
	logger  *zap.Logger
}

// NewService creates a new Service.
func NewService(content ContentFetcher, weather WeatherFetcher, store SnapshotStore, logger *zap.Logger) *Service {
	return &Service{
		content: content,
		weather: weather,
		store:   store,
		logger:  logger,
	}
}

// FetchSoilData retrieves raw soil properties for a named place.
func (s *Service) FetchSoilData(ctx context.Context, place string) (RawPayload, error) {
	return s.content.SearchContent(ctx, fmt.Sprintf("soil properties %s USDA", place))
}

// FetchRainfallData retrieves raw rainfall figures for a named place.
func (s *Service) FetchRainfallData(ctx context.Context, place string) (RawPayload, error) {
	return s.content.SearchContent(ctx, fmt.Sprintf("rainfall %s annual rainfall inches USDA", place))
}

// FetchCropData retrieves raw crop profitability data for a named place and
// appends the caller's crop to top_crops, so the queried crop is present in
// the result even when the upstream search never mentions it.
func (s *Service) FetchCropData(ctx context.Context, place, crop string) (RawPayload, error) {
	result, err := s.content.SearchContent(ctx, fmt.Sprintf("crops %s USDA", place))
	if err != nil {
		return nil, err
	}

	augmented := RawPayload{}
	for k, v := range result {
		augmented[k] = v
	}
	augmented["location"] = place

	var crops []any
	if existing, ok := result["top_crops"].([]any); ok {
		crops = append(crops, existing...)
	}
	crops = append(crops, map[string]any{
		"crop":                 crop,
		"annual_profitability": "Approximate",
		"yield_estimate":       "Varies",
	})
	augmented["top_crops"] = crops

	return augmented, nil
}

// GetAllData issues the soil, rainfall, crop and weather fetches concurrently
// and merges them into one composite record. The join is fail-fast: the first
// error aborts the aggregate, even if the other calls would have succeeded.
// Partial-success behavior lives inside the gateway instead, which degrades
// to placeholder payloads when its zones are unconfigured.
func (s *Service) GetAllData(ctx context.Context, place, crop string, lat, lon float64) (CompositeRecord, error) {
	var rec CompositeRecord

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		soil, err := s.FetchSoilData(gctx, place)
		if err != nil {
			return fmt.Errorf("soil data: %w", err)
		}
		rec.SoilData = soil
		return nil
	})
	g.Go(func() error {
		rainfall, err := s.FetchRainfallData(gctx, place)
		if err != nil {
			return fmt.Errorf("rainfall data: %w", err)
		}
		rec.RainfallData = rainfall
		return nil
	})
	g.Go(func() error {
		crops, err := s.FetchCropData(gctx, place, crop)
		if err != nil {
			return fmt.Errorf("crop data: %w", err)
		}
		rec.CropData = crops
		return nil
	})
	g.Go(func() error {
		weather, err := s.weather.Current(gctx, lat, lon)
		if err != nil {
			return fmt.Errorf("weather: %w", err)
		}
		rec.Weather = weather
		return nil
	})

	if err := g.Wait(); err != nil {
		return CompositeRecord{}, err
	}
	return rec, nil
}

// FetchAndSnapshot runs the aggregate for the profile's location and primary
// crop, persists a snapshot and returns it. A persistence failure is logged
// but the freshly fetched record is still returned to the caller.
func (s *Service) FetchAndSnapshot(ctx context.Context, profile Profile) (Snapshot, error) {
	snap := Snapshot{
		Location:  profile.Location.Place,
		Crop:      profile.SelectedCrop,
		Timestamp: time.Now().UTC(),
	}

	rec, err := s.GetAllData(ctx, profile.Location.Place, profile.SelectedCrop, profile.Location.Lat, profile.Location.Lon)
	if err != nil {
		return Snapshot{}, err
	}
	snap.Data = rec

	key, err := s.store.Save(snap, profile.Location.Lat, profile.Location.Lon)
	if err != nil {
		s.logger.Error("failed to persist snapshot",
			zap.Float64("lat", profile.Location.Lat),
			zap.Float64("lon", profile.Location.Lon),
			zap.Error(err))
	} else {
		s.logger.Info("snapshot persisted",
			zap.String("key", key),
			zap.String("crop", snap.Crop))
	}
	return snap, nil
}

// Latest returns the newest snapshot for the profile location, or (nil, nil)
// when no data has been captured yet.
func (s *Service) Latest(profile Profile) (*Snapshot, error) {
	return s.store.LatestForLocation(profile.Location.Lat, profile.Location.Lon)
}
