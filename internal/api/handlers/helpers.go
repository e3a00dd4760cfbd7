package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/socialflow/internal/models"
)

func ParamID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// PlatformFromSlug maps a URL path segment to the canonical platform name.
func PlatformFromSlug(slug string) (string, bool) {
	for _, platform := range models.AllPlatforms() {
		if strings.EqualFold(platform, slug) {
			return platform, true
		}
	}
	return "", false
}
