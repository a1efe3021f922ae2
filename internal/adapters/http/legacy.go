package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/placesweep/internal/core/domain"
)

// The pre-v1 endpoints answer in the exact shapes the first frontend shipped
// against. They stay until the sunset date in the router; new clients should
// use /v1.

// legacyPayload mirrors the pre-v1 on-disk and response layout.
type legacyPayload struct {
	City        string              `json:"city"`
	GeneratedAt int64               `json:"generatedAt"`
	TotalPlaces int                 `json:"totalPlaces"`
	Filters     domain.SearchFilter `json:"filters"`
	Places      []domain.Place      `json:"places"`
}

// LegacyHealthHandler answers the pre-v1 health shape.
func LegacyHealthHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "message": "Server is running"})
	}
}

// LegacyTestHandler answers the pre-v1 config probe.
func LegacyTestHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		apiKey := ""
		if deps.Config != nil {
			apiKey = deps.Config.Google.APIKey
		}
		return c.JSON(fiber.Map{
			"ok":             true,
			"message":        "Test endpoint working",
			"api_key_set":    apiKey != "",
			"api_key_length": len(apiKey),
		})
	}
}

// LegacyCountHandler answers the pre-v1 /count shape.
func LegacyCountHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		city := strings.TrimSpace(c.Query("city"))
		if city == "" {
			return c.Status(400).JSON(fiber.Map{"error": "Missing ?city="})
		}

		est, err := deps.Sweeps.Estimate(c.Context(), city)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}

		return c.JSON(fiber.Map{
			"ok":              true,
			"city":            est.City,
			"restaurantCount": est.Count,
			"estimatedCost":   est.EstimatedCost,
		})
	}
}

// LegacySearchHandler answers the pre-v1 /search shape.
func LegacySearchHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		city := strings.TrimSpace(c.Query("city"))
		if city == "" {
			return c.Status(400).JSON(fiber.Map{"error": "Missing ?city="})
		}
		countOnly := strings.EqualFold(c.Query("count_only"), "true")

		res, err := deps.Sweeps.SweepCity(c.UserContext(), city, domain.SearchFilter{}, countOnly)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}

		if countOnly {
			return c.JSON(fiber.Map{
				"ok":            true,
				"elapsedSec":    roundSec(res.Elapsed.Seconds()),
				"totalHydrated": res.Discovered,
				"estimatedCost": res.EstimatedCost,
			})
		}

		snap := res.Snapshot
		payload := legacyPayload{
			City:        snap.City,
			GeneratedAt: snap.GeneratedAt.Unix(),
			TotalPlaces: snap.TotalPlaces,
			Filters:     snap.Filter,
			Places:      snap.Places,
		}
		if payload.Places == nil {
			payload.Places = []domain.Place{}
		}

		return c.JSON(fiber.Map{
			"ok":            true,
			"elapsedSec":    roundSec(res.Elapsed.Seconds()),
			"saved":         res.SavedPath,
			"totalHydrated": snap.TotalPlaces,
			"data":          payload,
		})
	}
}
