package httpapi

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// RegisterRoutes wires middleware and the HTTP surface into the Fiber app.
// Health and setup are reachable without auth; everything else under /api
// passes the optional bearer-token check.
func RegisterRoutes(app *fiber.App, h *Handler, authToken string, corsOrigin string) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: corsOrigin,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Accept,Authorization,Content-Type",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "ok",
			"message":   "Farmsight Advisory API",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	app.Post("/api/setup", h.Setup)

	api := app.Group("/api", NewAuthMiddleware(authToken, h.logger))

	api.Get("/profile", h.GetProfile)
	api.Post("/profile", h.UpdateProfile)

	api.Get("/kpi", h.GetKpi)
	api.Get("/suitability", h.GetSuitability)
	api.Get("/insights", h.GetInsights)
	api.Get("/revenue", h.GetRevenue)
	api.Get("/rainfall", h.GetRainfall)
	api.Get("/soil", h.GetSoil)

	api.Get("/dashboard-data", h.GetDashboardData)

	api.Post("/chat", h.Chat)
	api.Post("/voice", h.Voice)

	api.Get("/brightdata-legacy", h.BrightDataLegacy)
}
