package serverutils

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Identity headers set by the gateway in front of this service. Full
// authentication happens upstream; this middleware only requires and
// parses the ids every pipeline run is scoped by.
const (
	HeaderUserId   = "X-User-Id"
	HeaderTenantId = "X-Tenant-Id"
)

func IdentityMiddleware(ctx *fiber.Ctx) error {
	userId, err := uuid.Parse(ctx.Get(HeaderUserId))
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse("missing or invalid " + HeaderUserId + " header"))
	}

	tenantId, err := uuid.Parse(ctx.Get(HeaderTenantId))
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse("missing or invalid " + HeaderTenantId + " header"))
	}

	ctx.Locals("user_id", userId)
	ctx.Locals("tenant_id", tenantId)
	return ctx.Next()
}
