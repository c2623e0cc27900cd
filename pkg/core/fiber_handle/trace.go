package fiber_handle

import (
	"context"

	"certsync/pkg/core/consts"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// NewRequestTrace 为每个请求生成追踪ID并写入 UserContext
// 后续日志与错误响应通过 consts.TraceKey 取用同一个ID
func NewRequestTrace() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		if ctx.Value(consts.TraceKey) != nil {
			return c.Next()
		}

		traceID := uuid.New().String()
		c.SetUserContext(context.WithValue(ctx, consts.TraceKey, traceID))
		c.Locals(consts.TraceKey, traceID)
		return c.Next()
	}
}
