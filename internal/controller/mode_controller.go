package controller

import (
	"ai-redteam-be/internal/pkg/serverutils"
	"ai-redteam-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IModeController interface {
	RegisterRoutes(r fiber.Router)
	Modes(ctx *fiber.Ctx) error
}

type modeController struct {
	chatService service.IChatService
}

func NewModeController(chatService service.IChatService) IModeController {
	return &modeController{
		chatService: chatService,
	}
}

func (c *modeController) RegisterRoutes(r fiber.Router) {
	r.Get("/modes", c.Modes)
}

func (c *modeController) Modes(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Success get modes", c.chatService.Modes()))
}
