package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/socialflow/internal/service"
)

type IntegrationHandler struct {
	integrations *service.IntegrationService
}

func NewIntegrationHandler(integrations *service.IntegrationService) *IntegrationHandler {
	return &IntegrationHandler{integrations: integrations}
}

func (h *IntegrationHandler) List(c *fiber.Ctx) error {
	integrations, err := h.integrations.List(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to list integrations",
		})
	}
	return c.JSON(fiber.Map{"integrations": integrations})
}

func (h *IntegrationHandler) Get(c *fiber.Ctx) error {
	id, err := ParamID(c, "id")
	if err != nil {
		return err
	}

	integ, err := h.integrations.Get(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to load integration",
		})
	}
	if integ == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Integration not found",
		})
	}
	return c.JSON(integ)
}

func (h *IntegrationHandler) Disconnect(c *fiber.Ctx) error {
	id, err := ParamID(c, "id")
	if err != nil {
		return err
	}

	if err := h.integrations.Disconnect(c.Context(), id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"message": "Integration disconnected"})
}

func (h *IntegrationHandler) TestConnection(c *fiber.Ctx) error {
	id, err := ParamID(c, "id")
	if err != nil {
		return err
	}

	ok, message, err := h.integrations.TestConnection(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"success": ok, "message": message})
}
