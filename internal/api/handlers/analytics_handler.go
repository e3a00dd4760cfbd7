package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/socialflow/internal/service"
)

type AnalyticsHandler struct {
	analytics *service.AnalyticsService
}

func NewAnalyticsHandler(analytics *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// FetchAccount triggers an immediate metrics pull for one integration.
func (h *AnalyticsHandler) FetchAccount(c *fiber.Ctx) error {
	id, err := ParamID(c, "id")
	if err != nil {
		return err
	}

	snapshot, err := h.analytics.FetchAccountAnalytics(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if snapshot == nil {
		return c.JSON(fiber.Map{"message": "No analytics available for this platform"})
	}
	return c.JSON(snapshot)
}

func (h *AnalyticsHandler) AccountHistory(c *fiber.Ctx) error {
	id, err := ParamID(c, "id")
	if err != nil {
		return err
	}

	snapshots, err := h.analytics.GetAccountHistory(c.Context(), id, c.QueryInt("days", 30))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to load analytics history",
		})
	}
	return c.JSON(fiber.Map{"snapshots": snapshots})
}

func (h *AnalyticsHandler) FetchPost(c *fiber.Ctx) error {
	id, err := ParamID(c, "id")
	if err != nil {
		return err
	}

	snapshot, err := h.analytics.FetchPostAnalytics(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if snapshot == nil {
		return c.JSON(fiber.Map{"message": "No analytics available for this platform"})
	}
	return c.JSON(snapshot)
}

func (h *AnalyticsHandler) PostHistory(c *fiber.Ctx) error {
	id, err := ParamID(c, "id")
	if err != nil {
		return err
	}

	snapshots, err := h.analytics.GetPostHistory(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to load analytics history",
		})
	}
	return c.JSON(fiber.Map{"snapshots": snapshots})
}

func (h *AnalyticsHandler) TopPosts(c *fiber.Ctx) error {
	platform := c.Query("platform")
	if platform != "" {
		canonical, ok := PlatformFromSlug(platform)
		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unknown platform",
			})
		}
		platform = canonical
	}

	posts, err := h.analytics.TopPosts(c.Context(), platform, c.QueryInt("limit", 10))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to load top posts",
		})
	}
	return c.JSON(fiber.Map{"posts": posts})
}

func (h *AnalyticsHandler) ComparePlatforms(c *fiber.Ctx) error {
	averages, err := h.analytics.ComparePlatforms(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to compare platforms",
		})
	}
	return c.JSON(fiber.Map{"average_engagement_rate": averages})
}
