package handlers

import (
	"fmt"
	"log"
	"log/slog"
	"strconv"

	config "github.com/codenberg/socialflow/configs"
	"github.com/codenberg/socialflow/internal/platform"
	"github.com/codenberg/socialflow/internal/service"
	"github.com/codenberg/socialflow/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type AccountHandler struct {
	as  service.AccountService
	cs  service.ConnectService
	cfg config.Config
}

func NewAccountHandler(as service.AccountService, cs service.ConnectService, cfg config.Config) *AccountHandler {
	return &AccountHandler{
		as:  as,
		cs:  cs,
		cfg: cfg,
	}
}

func (h *AccountHandler) AddSocialAccount(c *fiber.Ctx) error {
	authURL, err := h.as.GetAuthURL(c.Context(), c.Params("platform"), c.Query("state"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.Redirect(authURL)
}

func (h *AccountHandler) CallbackHandler(c *fiber.Ctx) error {
	code := c.Query("code")
	state := c.Query("state")

	claims, err := utils.ValidateToken(h.cfg.SecretKey, state)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to validate user",
		})
	}

	userID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to validate user",
		})
	}

	p, ok := platform.Parse(c.Params("platform"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown platform",
		})
	}

	switch p {
	case platform.Facebook:
		err = h.cs.FacebookCallback(c.Context(), code, userID)
	case platform.Instagram:
		err = h.cs.InstagramCallback(c.Context(), code, userID)
	case platform.Twitter:
		err = h.cs.TwitterCallback(c.Context(), code, userID)
	case platform.Linkedin:
		err = h.cs.LinkedinCallback(c.Context(), code, userID)
	case platform.Youtube:
		err = h.cs.YoutubeCallback(c.Context(), code, userID)
	}
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "something went wrong",
		})
	}

	redirectURL := fmt.Sprintf("%s/dashboard/accounts", h.cfg.FrontendURL)
	return c.Redirect(redirectURL, fiber.StatusTemporaryRedirect)
}

func (h *AccountHandler) ListSocialAccounts(c *fiber.Ctx) error {
	userID := GetUserID(c)

	accountList, err := h.as.List(c.Context(), userID)
	if err != nil {
		log.Println(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch social accounts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(accountList)
}

func (h *AccountHandler) DisconnectAccount(c *fiber.Ctx) error {
	userID := GetUserID(c)
	connectionID := c.QueryInt("id", 0)

	err := h.as.Disconnect(c.Context(), userID, int64(connectionID))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to disconnect social account",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
