package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/farmsight/farmsight/internal/advisory"
	"github.com/farmsight/farmsight/internal/advisory/providers"
	"github.com/farmsight/farmsight/internal/store"
)

type stubContent struct {
	payload advisory.RawPayload
}

func (s *stubContent) SearchContent(context.Context, string) (advisory.RawPayload, error) {
	return s.payload, nil
}

type stubWeather struct {
	report advisory.WeatherReport
}

func (s *stubWeather) Current(context.Context, float64, float64) (advisory.WeatherReport, error) {
	return s.report, nil
}

func stubPayload() advisory.RawPayload {
	return advisory.RawPayload{
		"location": "Chico, Butte County",
		"properties": map[string]any{
			"pH":            6.5,
			"texture":       "Sandy Loam",
			"drainage":      "Well-drained",
			"organicMatter": "2.5%",
		},
		"annual_rainfall": "27.39 inches",
		"top_crops": []any{
			map[string]any{
				"crop":                 "Walnuts",
				"annual_profitability": "$1,500 - $3,000/acre",
				"reason":               "Ideal climate",
			},
		},
		"key_findings": []any{
			"Annual average is 27.39 inches.",
			"Rainfall is strongly seasonal.",
			"Wettest months are December through February.",
			"Driest months are July and August.",
		},
	}
}

type testEnv struct {
	app     *fiber.App
	dataDir string
}

func newTestEnv(t *testing.T, authToken string) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")

	profiles, err := store.NewProfileStore(filepath.Join(dir, "profile.json"), logger)
	if err != nil {
		t.Fatalf("profile store: %v", err)
	}
	snapshots, err := store.NewSnapshotStore(dataDir, logger)
	if err != nil {
		t.Fatalf("snapshot store: %v", err)
	}

	content := &stubContent{payload: stubPayload()}
	weather := &stubWeather{report: advisory.WeatherReport{Temp: 72, Condition: "Clear", Icon: "partly-cloudy"}}
	service := advisory.NewService(content, weather, snapshots, logger)
	deriver := advisory.NewDeriverWithSource(rand.New(rand.NewSource(1)))
	chat := providers.NewChatClient(http.DefaultClient, "", "", logger)
	bright := providers.NewBrightDataClient(http.DefaultClient, "", "", "", logger)

	h := NewHandler(profiles, snapshots, service, deriver, chat, bright, "", logger)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})
	RegisterRoutes(app, h, authToken, "http://localhost:5173")
	return &testEnv{app: app, dataDir: dataDir}
}

func (e *testEnv) request(t *testing.T, method, path string, body any, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := e.app.Test(req, 5000)
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading response body: %v", err)
	}
	var decoded map[string]any
	if len(raw) > 0 {
		// List-shaped responses decode to nil here; use requestList for those.
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			t.Fatalf("decoding response %s: %v", raw, err)
		}
		decoded, _ = v.(map[string]any)
	}
	return resp, decoded
}

func (e *testEnv) requestList(t *testing.T, path string) (*http.Response, []any) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	resp, err := e.app.Test(req, 5000)
	if err != nil {
		t.Fatalf("request GET %s failed: %v", path, err)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading response body: %v", err)
	}
	var decoded []any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decoding response %s: %v", raw, err)
	}
	return resp, decoded
}

func validSetup() map[string]any {
	return map[string]any{
		"name":  "Ada",
		"email": "ada@example.com",
		"location": map[string]any{
			"lat":    39.7285,
			"lon":    -121.8375,
			"county": "Butte County",
		},
		"crops": []string{"Almonds", "Walnuts"},
	}
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t, "")

	resp, body := env.request(t, http.MethodGet, "/", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["status"] != "ok" {
		t.Fatalf("body = %v", body)
	}
}

func TestSetupValidation(t *testing.T) {
	env := newTestEnv(t, "")

	cases := []struct {
		name   string
		mutate func(m map[string]any)
	}{
		{"missing name", func(m map[string]any) { delete(m, "name") }},
		{"missing email", func(m map[string]any) { delete(m, "email") }},
		{"malformed email", func(m map[string]any) { m["email"] = "not-an-email" }},
		{"missing location", func(m map[string]any) { delete(m, "location") }},
		{"missing latitude", func(m map[string]any) {
			m["location"] = map[string]any{"lon": -121.8375}
		}},
		{"empty crops", func(m map[string]any) { m["crops"] = []string{} }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payload := validSetup()
			tc.mutate(payload)

			resp, body := env.request(t, http.MethodPost, "/api/setup", payload, nil)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", resp.StatusCode)
			}
			if msg, _ := body["error"].(string); msg == "" {
				t.Fatalf("body = %v, want error message", body)
			}
		})
	}
}

func TestSetupDefaults(t *testing.T) {
	env := newTestEnv(t, "")

	resp, body := env.request(t, http.MethodPost, "/api/setup", validSetup(), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
	if body["success"] != true {
		t.Fatalf("body = %v", body)
	}

	profile, ok := body["profile"].(map[string]any)
	if !ok {
		t.Fatalf("profile missing: %v", body)
	}
	if profile["language"] != "en" || profile["soil"] != "Unknown" || profile["irrigation"] != "Unknown" {
		t.Fatalf("defaults not applied: %v", profile)
	}
	if profile["selectedCrop"] != "Almonds" {
		t.Fatalf("selectedCrop = %v, want first crop", profile["selectedCrop"])
	}
	loc, _ := profile["location"].(map[string]any)
	if loc["place"] != "Butte County" {
		t.Fatalf("place = %v, want county label", loc["place"])
	}

	resp, got := env.request(t, http.MethodGet, "/api/profile", nil, nil)
	if resp.StatusCode != http.StatusOK || got["email"] != "ada@example.com" {
		t.Fatalf("profile readback = %d %v", resp.StatusCode, got)
	}
}

func TestProfileMergeUpdate(t *testing.T) {
	env := newTestEnv(t, "")
	env.request(t, http.MethodPost, "/api/setup", validSetup(), nil)

	resp, body := env.request(t, http.MethodPost, "/api/profile",
		map[string]any{"soil": "Clay Loam"}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["soil"] != "Clay Loam" {
		t.Fatalf("soil = %v", body["soil"])
	}
	// Untouched fields survive the patch.
	if body["email"] != "ada@example.com" {
		t.Fatalf("email = %v", body["email"])
	}
}

func TestDerivedEndpointsRequireLocation(t *testing.T) {
	env := newTestEnv(t, "")

	for _, path := range []string{"/api/kpi", "/api/suitability", "/api/insights", "/api/revenue", "/api/rainfall", "/api/soil", "/api/dashboard-data"} {
		resp, _ := env.request(t, http.MethodGet, path, nil, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400 without location", path, resp.StatusCode)
		}
	}
}

func TestDerivedEndpointsWithoutSnapshot(t *testing.T) {
	env := newTestEnv(t, "")
	env.request(t, http.MethodPost, "/api/setup", validSetup(), nil)

	resp, _ := env.request(t, http.MethodGet, "/api/kpi", nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 before first fetch", resp.StatusCode)
	}
}

func TestDashboardDataFlow(t *testing.T) {
	env := newTestEnv(t, "")
	env.request(t, http.MethodPost, "/api/setup", validSetup(), nil)

	resp, body := env.request(t, http.MethodGet, "/api/dashboard-data", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
	if body["location"] != "Butte County" || body["crop"] != "Almonds" {
		t.Fatalf("snapshot echo = %v", body)
	}

	data, _ := body["data"].(map[string]any)

	// The soil and rainfall slots must round-trip the stub payload untouched.
	wantRaw, err := json.Marshal(stubPayload())
	if err != nil {
		t.Fatalf("encoding stub payload: %v", err)
	}
	var want map[string]any
	if err := json.Unmarshal(wantRaw, &want); err != nil {
		t.Fatalf("decoding stub payload: %v", err)
	}
	if !reflect.DeepEqual(data["soilData"], want) {
		t.Fatalf("soilData = %v, want stub payload", data["soilData"])
	}
	if !reflect.DeepEqual(data["rainfallData"], want) {
		t.Fatalf("rainfallData = %v, want stub payload", data["rainfallData"])
	}
	crops, _ := data["cropData"].(map[string]any)
	topCrops, _ := crops["top_crops"].([]any)
	// Upstream crop plus the profile's selected crop appended.
	if len(topCrops) != 2 {
		t.Fatalf("top_crops = %v", topCrops)
	}

	// Exactly one snapshot file lands on disk, keyed by coordinates.
	entries, err := os.ReadDir(env.dataDir)
	if err != nil {
		t.Fatalf("reading data dir: %v", err)
	}
	var files []string
	for _, e := range entries {
		files = append(files, e.Name())
	}
	if len(files) != 1 {
		t.Fatalf("snapshot files = %v, want exactly 1", files)
	}
	if !strings.HasPrefix(files[0], "39.7285_-121.8375_") || !strings.HasSuffix(files[0], ".json") {
		t.Fatalf("snapshot key = %q", files[0])
	}

	// The derived endpoints now serve from the stored snapshot.
	resp, kpi := env.request(t, http.MethodGet, "/api/kpi", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("kpi status = %d", resp.StatusCode)
	}
	weather, _ := kpi["weather"].(map[string]any)
	if weather["temp"] != 72.0 || weather["condition"] != "Clear" {
		t.Fatalf("kpi weather = %v", weather)
	}

	resp, suitability := env.requestList(t, "/api/suitability")
	if resp.StatusCode != http.StatusOK || len(suitability) == 0 {
		t.Fatalf("suitability = %d, %v", resp.StatusCode, suitability)
	}

	resp, revenue := env.requestList(t, "/api/revenue")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("revenue status = %d", resp.StatusCode)
	}
	// Two crops in the snapshot (stub plus augmentation), twelve months each.
	if len(revenue) != 24 {
		t.Fatalf("revenue entries = %d, want 24", len(revenue))
	}
	first, _ := revenue[0].(map[string]any)
	if first["month"] != "Jan" || first["crop"] != "Walnuts" {
		t.Fatalf("first revenue entry = %v", first)
	}
}

func TestAuthMiddleware(t *testing.T) {
	env := newTestEnv(t, "secret-token")
	env.request(t, http.MethodPost, "/api/setup", validSetup(), nil)

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic secret-token", http.StatusUnauthorized},
		{"wrong token", "Bearer other-token", http.StatusUnauthorized},
		{"valid token", "Bearer secret-token", http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			headers := map[string]string{}
			if tc.header != "" {
				headers["Authorization"] = tc.header
			}
			resp, _ := env.request(t, http.MethodGet, "/api/profile", nil, headers)
			if resp.StatusCode != tc.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.status)
			}
		})
	}
}

// Setup stays reachable without a token so onboarding can happen first.
func TestSetupBypassesAuth(t *testing.T) {
	env := newTestEnv(t, "secret-token")

	resp, _ := env.request(t, http.MethodPost, "/api/setup", validSetup(), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want setup to bypass auth", resp.StatusCode)
	}
}

func TestChatEndpoint(t *testing.T) {
	env := newTestEnv(t, "")

	resp, body := env.request(t, http.MethodPost, "/api/chat",
		map[string]any{"message": "How do I improve drainage?"}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	// The unconfigured agent degrades to a canned reply.
	if reply, _ := body["reply"].(string); !strings.Contains(reply, "mock response") {
		t.Fatalf("reply = %v", body["reply"])
	}
	if id, _ := body["conversationId"].(string); id == "" {
		t.Fatal("conversationId missing")
	}
}

func TestChatRequiresMessage(t *testing.T) {
	env := newTestEnv(t, "")

	resp, _ := env.request(t, http.MethodPost, "/api/chat", map[string]any{}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestVoiceEndpoint(t *testing.T) {
	env := newTestEnv(t, "")

	resp, body := env.request(t, http.MethodPost, "/api/voice", map[string]any{}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if text, _ := body["text"].(string); text == "" {
		t.Fatalf("body = %v", body)
	}
}

func TestBrightDataLegacyValidation(t *testing.T) {
	env := newTestEnv(t, "")

	resp, _ := env.request(t, http.MethodGet, "/api/brightdata-legacy", nil, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 without coordinates", resp.StatusCode)
	}
}

func TestBrightDataLegacyUnconfigured(t *testing.T) {
	env := newTestEnv(t, "")

	resp, body := env.request(t, http.MethodGet, "/api/brightdata-legacy?lat=39.7285&lon=-121.8375", nil, nil)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	if msg, _ := body["error"].(string); !strings.Contains(msg, "configuration") {
		t.Fatalf("error = %v", body["error"])
	}
}
