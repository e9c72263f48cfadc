package controller

import (
	"ai-edulab-be/internal/dto"
	"ai-edulab-be/internal/pkg/serverutils"
	"ai-edulab-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IAgentController interface {
	RegisterRoutes(r fiber.Router)
	GenerateQuestions(ctx *fiber.Ctx) error
	RunRAGQuery(ctx *fiber.Ctx) error
	GetSession(ctx *fiber.Ctx) error
}

type agentController struct {
	agentService service.IAgentService
}

func NewAgentController(agentService service.IAgentService) IAgentController {
	return &agentController{
		agentService: agentService,
	}
}

func (c *agentController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/agent/v1")
	h.Use(serverutils.IdentityMiddleware)
	h.Post("questions", c.GenerateQuestions)
	h.Post("rag/query", c.RunRAGQuery)
	h.Get("sessions/:id", c.GetSession)
}

func (c *agentController) GenerateQuestions(ctx *fiber.Ctx) error {
	userId := ctx.Locals("user_id").(uuid.UUID)
	tenantId := ctx.Locals("tenant_id").(uuid.UUID)

	var req dto.GenerateQuestionsRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.agentService.GenerateQuestions(ctx.Context(), userId, tenantId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Questions generated", res))
}

func (c *agentController) RunRAGQuery(ctx *fiber.Ctx) error {
	userId := ctx.Locals("user_id").(uuid.UUID)
	tenantId := ctx.Locals("tenant_id").(uuid.UUID)

	var req dto.RAGQueryRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.agentService.RunRAGQuery(ctx.Context(), userId, tenantId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Query answered", res))
}

func (c *agentController) GetSession(ctx *fiber.Ctx) error {
	userId := ctx.Locals("user_id").(uuid.UUID)
	tenantId := ctx.Locals("tenant_id").(uuid.UUID)

	sessionId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid session id")
	}

	res, err := c.agentService.GetSession(ctx.Context(), userId, tenantId, sessionId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Session details", res))
}
