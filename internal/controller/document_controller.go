package controller

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"portfolio-ai-be/internal/apperror"
	"portfolio-ai-be/internal/dto"
	"portfolio-ai-be/internal/pkg/serverutils"
	"portfolio-ai-be/internal/service"
	"portfolio-ai-be/internal/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IDocumentController interface {
	RegisterRoutes(r fiber.Router)
	Upload(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
	Update(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	StreamLogs(ctx *fiber.Ctx) error
}

type documentController struct {
	documentService service.IDocumentService
	hub             *stream.Hub
	jwtSecret       string
}

func NewDocumentController(documentService service.IDocumentService, hub *stream.Hub, jwtSecret string) IDocumentController {
	return &documentController{
		documentService: documentService,
		hub:             hub,
		jwtSecret:       jwtSecret,
	}
}

func (c *documentController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/document/v1")
	h.Use(serverutils.JwtMiddleware(c.jwtSecret))
	h.Post("", c.Upload)
	h.Get("", c.List)
	h.Get(":id", c.Show)
	h.Get(":id/logs", c.StreamLogs)
	h.Put(":id", c.Update)
	h.Delete(":id", c.Delete)
}

func (c *documentController) Upload(ctx *fiber.Ctx) error {
	var req dto.UploadDocumentRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Validation("invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.documentService.Upload(ctx.Context(), uploaderFromLocals(ctx), &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Document uploaded and indexed", res))
}

func (c *documentController) Show(ctx *fiber.Ctx) error {
	id, err := parseIdParam(ctx)
	if err != nil {
		return err
	}

	res, err := c.documentService.Get(ctx.Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Document detail", res))
}

func (c *documentController) List(ctx *fiber.Ctx) error {
	var query dto.ListDocumentsQuery
	if err := ctx.QueryParser(&query); err != nil {
		return apperror.Validation("invalid query parameters")
	}
	if err := serverutils.ValidateRequest(query); err != nil {
		return err
	}

	res, err := c.documentService.List(ctx.Context(), &query)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Documents", res))
}

func (c *documentController) Update(ctx *fiber.Ctx) error {
	id, err := parseIdParam(ctx)
	if err != nil {
		return err
	}

	var req dto.UpdateDocumentRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Validation("invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.documentService.Update(ctx.Context(), id, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Document reindexed", res))
}

func (c *documentController) Delete(ctx *fiber.Ctx) error {
	id, err := parseIdParam(ctx)
	if err != nil {
		return err
	}

	if err := c.documentService.Delete(ctx.Context(), id); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Document deleted", nil))
}

// StreamLogs pushes processing-log events for one document over SSE
// until the client disconnects.
func (c *documentController) StreamLogs(ctx *fiber.Ctx) error {
	id, err := parseIdParam(ctx)
	if err != nil {
		return err
	}

	events, cancel := c.hub.Subscribe(id)

	ctx.Set("Content-Type", "text/event-stream")
	ctx.Set("Cache-Control", "no-cache")
	ctx.Set("Connection", "keep-alive")

	ctx.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()

		keepalive := time.NewTicker(15 * time.Second)
		defer keepalive.Stop()

		for {
			select {
			case event, ok := <-events:
				if !ok {
					return
				}
				payload, err := json.Marshal(event)
				if err != nil {
					continue
				}
				fmt.Fprintf(w, "data: %s\n\n", payload)
				if err := w.Flush(); err != nil {
					// Client disconnected.
					return
				}
			case <-keepalive.C:
				fmt.Fprint(w, ": keepalive\n\n")
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	})
	return nil
}

func uploaderFromLocals(ctx *fiber.Ctx) *uuid.UUID {
	sub, _ := ctx.Locals("user_id").(string)
	id, err := uuid.Parse(sub)
	if err != nil {
		return nil
	}
	return &id
}

func parseIdParam(ctx *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return uuid.Nil, apperror.Validation("invalid document id")
	}
	return id, nil
}
