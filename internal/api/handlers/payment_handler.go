package handlers

import (
	"log/slog"

	"github.com/codenberg/socialflow/internal/service"
	"github.com/codenberg/socialflow/internal/transfer"
	"github.com/gofiber/fiber/v2"
)

type PaymentHandler struct {
	s service.SubscriptionService
}

func NewPaymentHandler(service service.SubscriptionService) *PaymentHandler {
	return &PaymentHandler{s: service}
}

func (h *PaymentHandler) PaymentWebhook(c *fiber.Ctx) error {
	var requestData transfer.SubscriptionEvent

	if err := c.BodyParser(&requestData); err != nil {
		slog.Info(err.Error())
		return err
	}

	err := h.s.HandleSubscription(c.Context(), &requestData)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(err.Error())
	}

	return c.SendStatus(fiber.StatusOK)
}
