package controller

import (
	"ai-redteam-be/internal/entity"
	"ai-redteam-be/internal/pkg/serverutils"
	"ai-redteam-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IDocumentController interface {
	RegisterRoutes(r fiber.Router)
	Upload(ctx *fiber.Ctx) error
	SessionDocuments(ctx *fiber.Ctx) error
}

type documentController struct {
	documentService service.IDocumentService
}

func NewDocumentController(documentService service.IDocumentService) IDocumentController {
	return &documentController{
		documentService: documentService,
	}
}

func (c *documentController) RegisterRoutes(r fiber.Router) {
	r.Post("/upload", c.Upload)
	r.Get("/sessions/:id/documents", c.SessionDocuments)
}

func (c *documentController) Upload(ctx *fiber.Ctx) error {
	form, err := ctx.MultipartForm()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "multipart form required")
	}

	files := form.File["files"]
	if len(files) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "no files provided")
	}

	// A missing session_id gets one generated by the service.
	sessionId := ctx.FormValue("session_id")
	mode := ctx.FormValue("mode", entity.ModeRag)

	res, err := c.documentService.Upload(ctx.Context(), files, sessionId, mode)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success upload documents", res))
}

func (c *documentController) SessionDocuments(ctx *fiber.Ctx) error {
	sessionId := ctx.Params("id")
	mode := ctx.Query("mode", entity.ModeRag)

	res, err := c.documentService.SessionDocuments(ctx.Context(), sessionId, mode)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get session documents", res))
}
