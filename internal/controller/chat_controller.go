package controller

import (
	"ai-redteam-be/internal/dto"
	"ai-redteam-be/internal/pkg/serverutils"
	"ai-redteam-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	Chat(ctx *fiber.Ctx) error
	History(ctx *fiber.Ctx) error
	Clear(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService service.IChatService
}

func NewChatController(chatService service.IChatService) IChatController {
	return &chatController{
		chatService: chatService,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	r.Post("/chat", c.Chat)
	r.Get("/conversations/:id", c.History)
	r.Delete("/conversations/:id", c.Clear)
}

func (c *chatController) Chat(ctx *fiber.Ctx) error {
	var req dto.ChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatService.Chat(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success chat", res))
}

func (c *chatController) History(ctx *fiber.Ctx) error {
	// Histories are kept per mode, so the mode is part of the lookup key.
	mode := ctx.Query("mode")
	conversationId := ctx.Params("id")

	res, err := c.chatService.History(ctx.Context(), mode, conversationId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get conversation", res))
}

func (c *chatController) Clear(ctx *fiber.Ctx) error {
	mode := ctx.Query("mode")
	conversationId := ctx.Params("id")

	if err := c.chatService.ClearConversation(ctx.Context(), mode, conversationId); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success clear conversation", fiber.Map{
		"conversation_id": conversationId,
	}))
}
