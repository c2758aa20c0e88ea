package controller

import (
	"bufio"
	"encoding/json"
	"fmt"

	"portfolio-ai-be/internal/apperror"
	"portfolio-ai-be/internal/dto"
	"portfolio-ai-be/internal/pkg/serverutils"
	"portfolio-ai-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	SendStream(ctx *fiber.Ctx) error
	Send(ctx *fiber.Ctx) error
	GetHistory(ctx *fiber.Ctx) error
	ClearHistory(ctx *fiber.Ctx) error
	Suggest(ctx *fiber.Ctx) error
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
	h := r.Group("/chat/v1")
	h.Post("send/stream", c.SendStream)
	h.Post("send", c.Send)
	h.Get("history/:sessionId", c.GetHistory)
	h.Delete("history/:sessionId", c.ClearHistory)
	h.Get("suggestions/:sessionId", c.Suggest)
}

func (c *chatController) SendStream(ctx *fiber.Ctx) error {
	var req dto.SendChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Validation("invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	meta := service.ClientMeta{
		IP:        ctx.IP(),
		UserAgent: ctx.Get("User-Agent"),
	}

	events, err := c.chatService.SendStream(ctx.Context(), &req, meta)
	if err != nil {
		return err
	}

	ctx.Set("Content-Type", "text/event-stream")
	ctx.Set("Cache-Control", "no-cache")
	ctx.Set("Connection", "keep-alive")

	ctx.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		for event := range events {
			var payload any
			switch event.Type {
			case dto.StreamEventChunk:
				payload = event.Chunk
			case dto.StreamEventComplete:
				payload = event.Complete
			case dto.StreamEventError:
				payload = event.Error
			default:
				continue
			}

			data, err := json.Marshal(payload)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
			if err := w.Flush(); err != nil {
				// Client disconnected, the service side stops via context.
				return
			}
		}
	})
	return nil
}

func (c *chatController) Send(ctx *fiber.Ctx) error {
	var req dto.SendChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Validation("invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	meta := service.ClientMeta{
		IP:        ctx.IP(),
		UserAgent: ctx.Get("User-Agent"),
	}

	res, err := c.chatService.Send(ctx.Context(), &req, meta)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Chat reply", res))
}

func (c *chatController) GetHistory(ctx *fiber.Ctx) error {
	sessionKey := ctx.Params("sessionId")
	if sessionKey == "" {
		return apperror.Validation("session id is required")
	}

	res, err := c.chatService.GetHistory(ctx.Context(), sessionKey)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Chat history", res))
}

func (c *chatController) Suggest(ctx *fiber.Ctx) error {
	sessionKey := ctx.Params("sessionId")
	if sessionKey == "" {
		return apperror.Validation("session id is required")
	}

	res, err := c.chatService.Suggest(ctx.Context(), sessionKey)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Suggested questions", res))
}

func (c *chatController) ClearHistory(ctx *fiber.Ctx) error {
	sessionKey := ctx.Params("sessionId")
	if sessionKey == "" {
		return apperror.Validation("session id is required")
	}

	if err := c.chatService.ClearHistory(ctx.Context(), sessionKey); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Chat history cleared", nil))
}
