package handlers

import (
	"fmt"
	"net/url"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/socialflow/configs"
	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/maheshrc27/socialflow/internal/service"
	"github.com/maheshrc27/socialflow/internal/transfer"
)

type OAuthHandler struct {
	cfg   config.Config
	oauth *service.OAuthService
}

func NewOAuthHandler(cfg config.Config, oauth *service.OAuthService) *OAuthHandler {
	return &OAuthHandler{cfg: cfg, oauth: oauth}
}

// Initiate starts an authorization flow and returns the URL to open.
func (h *OAuthHandler) Initiate(c *fiber.Ctx) error {
	platform, ok := PlatformFromSlug(c.Params("platform"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown platform",
		})
	}

	meta := transfer.AccountMetadata{
		AccountName:  c.Query("account_name"),
		Description:  c.Query("description"),
		Organization: c.Query("organization"),
	}
	initiation, err := h.oauth.Initiate(c.Context(), platform, meta)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(initiation)
}

func (h *OAuthHandler) successRedirect(c *fiber.Ctx, platform string) error {
	return c.Redirect(fmt.Sprintf("%s/integrations?connected=%s", h.cfg.FrontendURL, url.QueryEscape(platform)))
}

func (h *OAuthHandler) errorRedirect(c *fiber.Ctx, message string) error {
	return c.Redirect(fmt.Sprintf("%s/integrations?error=%s", h.cfg.FrontendURL, url.QueryEscape(message)))
}

func (h *OAuthHandler) callbackParams(c *fiber.Ctx) (code, state string, err error) {
	if errParam := c.Query("error"); errParam != "" {
		desc := c.Query("error_description")
		if desc == "" {
			desc = errParam
		}
		return "", "", fmt.Errorf("%s", desc)
	}
	code = c.Query("code")
	state = c.Query("state")
	if code == "" || state == "" {
		return "", "", fmt.Errorf("missing code or state")
	}
	return code, state, nil
}

func (h *OAuthHandler) metaCallback(c *fiber.Ctx, platform string) error {
	code, state, err := h.callbackParams(c)
	if err != nil {
		return h.errorRedirect(c, err.Error())
	}

	result, err := h.oauth.HandleMetaCallback(c.Context(), platform, code, state)
	if err != nil {
		return h.errorRedirect(c, err.Error())
	}
	if !result.Completed {
		return c.Redirect(fmt.Sprintf("%s/integrations/select-page?session_id=%s",
			h.cfg.FrontendURL, url.QueryEscape(result.SessionID)))
	}
	return h.successRedirect(c, platform)
}

func (h *OAuthHandler) FacebookCallback(c *fiber.Ctx) error {
	return h.metaCallback(c, models.PlatformFacebook)
}

func (h *OAuthHandler) InstagramCallback(c *fiber.Ctx) error {
	return h.metaCallback(c, models.PlatformInstagram)
}

func (h *OAuthHandler) LinkedInCallback(c *fiber.Ctx) error {
	code, state, err := h.callbackParams(c)
	if err != nil {
		return h.errorRedirect(c, err.Error())
	}
	if _, err := h.oauth.HandleLinkedInCallback(c.Context(), code, state); err != nil {
		return h.errorRedirect(c, err.Error())
	}
	return h.successRedirect(c, models.PlatformLinkedIn)
}

func (h *OAuthHandler) TwitterCallback(c *fiber.Ctx) error {
	code, state, err := h.callbackParams(c)
	if err != nil {
		return h.errorRedirect(c, err.Error())
	}
	if _, err := h.oauth.HandleTwitterCallback(c.Context(), code, state); err != nil {
		return h.errorRedirect(c, err.Error())
	}
	return h.successRedirect(c, models.PlatformTwitter)
}

func (h *OAuthHandler) YouTubeCallback(c *fiber.Ctx) error {
	code, state, err := h.callbackParams(c)
	if err != nil {
		return h.errorRedirect(c, err.Error())
	}
	if _, err := h.oauth.HandleGoogleCallback(c.Context(), code, state); err != nil {
		return h.errorRedirect(c, err.Error())
	}
	return h.successRedirect(c, models.PlatformYouTube)
}

// MetaPages lists the pending page-selection choices for a session.
func (h *OAuthHandler) MetaPages(c *fiber.Ctx) error {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "session_id is required",
		})
	}

	pages, err := h.oauth.SessionPages(c.Context(), sessionID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"pages": pages})
}

// ConnectMetaPage completes a multi-page flow with the chosen page.
func (h *OAuthHandler) ConnectMetaPage(c *fiber.Ctx) error {
	var req struct {
		SessionID string `json:"session_id"`
		PageID    string `json:"page_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}
	if req.SessionID == "" || req.PageID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "session_id and page_id are required",
		})
	}

	id, err := h.oauth.ConnectMetaPage(c.Context(), req.SessionID, req.PageID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"integration_id": id})
}
