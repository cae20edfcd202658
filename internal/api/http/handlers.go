package httpapi

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/kelvins/geocoder"
	"go.uber.org/zap"

	"github.com/farmsight/farmsight/internal/advisory"
	"github.com/farmsight/farmsight/internal/advisory/providers"
	"github.com/farmsight/farmsight/internal/store"
)

var validate = validator.New()

// Handler carries every dependency the HTTP surface needs. All state is
// injected; nothing module-level beyond the validator.
type Handler struct {
	profiles  *store.ProfileStore
	snapshots *store.SnapshotStore
	service   *advisory.Service
	deriver   *advisory.Deriver
	chat      *providers.ChatClient
	bright    *providers.BrightDataClient
	logger    *zap.Logger

	geocoderKey string
}

func NewHandler(
	profiles *store.ProfileStore,
	snapshots *store.SnapshotStore,
	service *advisory.Service,
	deriver *advisory.Deriver,
	chat *providers.ChatClient,
	bright *providers.BrightDataClient,
	geocoderKey string,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		profiles:    profiles,
		snapshots:   snapshots,
		service:     service,
		deriver:     deriver,
		chat:        chat,
		bright:      bright,
		geocoderKey: geocoderKey,
		logger:      logger,
	}
}

type setupLocation struct {
	Lat    *float64 `json:"lat" validate:"required"`
	Lon    *float64 `json:"lon" validate:"required"`
	County string   `json:"county"`
	Place  string   `json:"place"`
}

type setupRequest struct {
	Name           string             `json:"name" validate:"required"`
	Email          string             `json:"email" validate:"required,email"`
	Phone          string             `json:"phone"`
	Location       *setupLocation     `json:"location" validate:"required"`
	Crops          []string           `json:"crops" validate:"required,min=1"`
	SoilType       string             `json:"soilType"`
	IrrigationType string             `json:"irrigationType"`
	FarmSize       *advisory.FarmSize `json:"farmSize"`
	Language       string             `json:"language"`
}

// Setup handles POST /api/setup: validates onboarding data and replaces the
// profile with it.
func (h *Handler) Setup(c *fiber.Ctx) error {
	var req setupRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		h.logger.Warn("setup validation failed", zap.Error(err))
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	place := req.Location.County
	if place == "" {
		place = req.Location.Place
	}
	if place == "" {
		place = h.resolvePlace(*req.Location.Lat, *req.Location.Lon)
	}

	profile := advisory.Profile{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
		Location: advisory.Location{
			Lat:   *req.Location.Lat,
			Lon:   *req.Location.Lon,
			Place: place,
		},
		Language:     defaultString(req.Language, "en"),
		Soil:         defaultString(req.SoilType, "Unknown"),
		Irrigation:   defaultString(req.IrrigationType, "Unknown"),
		Crops:        req.Crops,
		SelectedCrop: req.Crops[0],
	}
	if req.FarmSize != nil {
		profile.FarmSize = *req.FarmSize
	} else {
		profile.FarmSize = advisory.FarmSize{Value: 0, Unit: "ac"}
	}

	updated := h.profiles.Replace(profile)
	h.logger.Info("setup completed", zap.String("email", updated.Email))

	return c.JSON(fiber.Map{
		"success": true,
		"profile": updated,
	})
}

// resolvePlace reverse-geocodes a human-readable place label for the
// coordinates. Failures degrade to "Unknown"; the label is advisory only.
func (h *Handler) resolvePlace(lat, lon float64) string {
	if h.geocoderKey == "" {
		return "Unknown"
	}

	geocoder.ApiKey = h.geocoderKey
	addresses, err := geocoder.GeocodingReverse(geocoder.Location{Latitude: lat, Longitude: lon})
	if err != nil {
		h.logger.Warn("reverse geocoding failed", zap.Error(err))
		return "Unknown"
	}
	if len(addresses) == 0 {
		return "Unknown"
	}
	address := addresses[0]

	switch {
	case address.County != "":
		return address.County
	case address.City != "":
		return address.City
	case address.FormattedAddress != "":
		return address.FormattedAddress
	}
	return "Unknown"
}

// GetProfile handles GET /api/profile.
func (h *Handler) GetProfile(c *fiber.Ctx) error {
	return c.JSON(h.profiles.Get())
}

// UpdateProfile handles POST /api/profile as a merge-update.
func (h *Handler) UpdateProfile(c *fiber.Ctx) error {
	var patch advisory.ProfilePatch
	if err := c.BodyParser(&patch); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	return c.JSON(h.profiles.Apply(patch))
}

// latestSnapshot resolves the profile's location to its newest snapshot.
// No location yet → 400; no snapshot yet → 404, a routine condition.
func (h *Handler) latestSnapshot() (*advisory.Snapshot, advisory.Profile, error) {
	profile := h.profiles.Get()
	if !profile.HasLocation() {
		return nil, profile, fiber.NewError(fiber.StatusBadRequest, "profile has no location, complete setup first")
	}

	snap, err := h.snapshots.LatestForLocation(profile.Location.Lat, profile.Location.Lon)
	if err != nil {
		return nil, profile, fiber.NewError(fiber.StatusInternalServerError, "failed to load snapshot data")
	}
	if snap == nil {
		return nil, profile, fiber.NewError(fiber.StatusNotFound, "no farm data for this location yet")
	}
	return snap, profile, nil
}

// GetKpi handles GET /api/kpi.
func (h *Handler) GetKpi(c *fiber.Ctx) error {
	snap, profile, err := h.latestSnapshot()
	if err != nil {
		return err
	}
	return c.JSON(h.deriver.Kpi(snap.Data, profile.FarmSizeAcres()))
}

// GetSuitability handles GET /api/suitability.
func (h *Handler) GetSuitability(c *fiber.Ctx) error {
	snap, _, err := h.latestSnapshot()
	if err != nil {
		return err
	}
	return c.JSON(h.deriver.Suitability(snap.Data))
}

// GetInsights handles GET /api/insights.
func (h *Handler) GetInsights(c *fiber.Ctx) error {
	snap, profile, err := h.latestSnapshot()
	if err != nil {
		return err
	}
	return c.JSON(h.deriver.Insights(snap.Data, profile.Crops))
}

// GetRevenue handles GET /api/revenue.
func (h *Handler) GetRevenue(c *fiber.Ctx) error {
	snap, profile, err := h.latestSnapshot()
	if err != nil {
		return err
	}
	return c.JSON(h.deriver.Revenue(snap.Data, profile.FarmSizeAcres()))
}

// GetRainfall handles GET /api/rainfall.
func (h *Handler) GetRainfall(c *fiber.Ctx) error {
	snap, _, err := h.latestSnapshot()
	if err != nil {
		return err
	}
	return c.JSON(h.deriver.Rainfall(snap.Data))
}

// GetSoil handles GET /api/soil.
func (h *Handler) GetSoil(c *fiber.Ctx) error {
	snap, _, err := h.latestSnapshot()
	if err != nil {
		return err
	}
	return c.JSON(h.deriver.Soil(snap.Data))
}

// GetDashboardData handles GET /api/dashboard-data: runs the aggregator for
// the profile's location, persists a new snapshot, and returns the raw
// composite record with echo metadata. A persistence failure is logged inside
// the service; the fetched data still reaches the caller.
func (h *Handler) GetDashboardData(c *fiber.Ctx) error {
	profile := h.profiles.Get()
	if !profile.HasLocation() {
		return fiber.NewError(fiber.StatusBadRequest, "profile has no location, complete setup first")
	}

	snap, err := h.service.FetchAndSnapshot(c.Context(), profile)
	if err != nil {
		h.logger.Error("aggregate fetch failed", zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch farm data: "+err.Error())
	}
	return c.JSON(snap)
}

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
}

// Chat handles POST /api/chat as a passthrough to the chat agent.
func (h *Handler) Chat(c *fiber.Ctx) error {
	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Message == "" {
		return fiber.NewError(fiber.StatusBadRequest, "message is required")
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	reply, err := h.chat.Send(c.Context(), conversationID, req.Message)
	if err != nil {
		if errors.Is(err, providers.ErrChatTimeout) {
			return fiber.NewError(fiber.StatusInternalServerError, "chat request timed out")
		}
		h.logger.Error("chat request failed", zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "failed to get AI response")
	}

	return c.JSON(fiber.Map{
		"reply":          reply,
		"conversationId": conversationID,
	})
}

// Voice handles POST /api/voice. Speech integration is not wired up; the
// endpoint returns a placeholder transcription.
func (h *Handler) Voice(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"text": "This is a mock voice transcription.",
	})
}

// BrightDataLegacy handles GET /api/brightdata-legacy: the standalone
// search-then-scrape pipeline, independent of the snapshot timeline. Its
// report is written to its own output file; that write is non-fatal.
func (h *Handler) BrightDataLegacy(c *fiber.Ctx) error {
	lat := c.Query("lat")
	lon := c.Query("lon")
	if lat == "" || lon == "" {
		return fiber.NewError(fiber.StatusBadRequest, "latitude and longitude are required")
	}

	report, err := h.bright.LegacyFarmReport(c.Context(), lat, lon)
	if err != nil {
		if errors.Is(err, providers.ErrMissingCredentials) {
			return fiber.NewError(fiber.StatusInternalServerError, "server configuration error: missing Bright Data credentials")
		}
		h.logger.Error("legacy pipeline failed", zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "failed to process Bright Data request")
	}

	latF, errLat := strconv.ParseFloat(lat, 64)
	lonF, errLon := strconv.ParseFloat(lon, 64)
	if errLat == nil && errLon == nil {
		if _, err := h.snapshots.SaveRaw(report, latF, lonF); err != nil {
			h.logger.Error("failed to save legacy report", zap.Error(err))
		}
	}

	return c.JSON(report)
}

func defaultString(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
