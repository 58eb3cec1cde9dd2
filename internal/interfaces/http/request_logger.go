package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/cooperativa-api/pkg/logger"
)

// RequestLogger deja en el contexto de la petición un logger con tenant_id y actor_id
// y registra cada petición al terminar. Va después de AuthMiddleware.
func RequestLogger(log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		reqLog := log.ForRequest(GetTenantID(c), GetUserID(c))
		c.SetUserContext(logger.IntoContext(c.UserContext(), reqLog))

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			// el error aún no pasó por el ErrorHandler de fiber
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		ev := reqLog.Info()
		if status >= fiber.StatusInternalServerError {
			ev = reqLog.Error().Err(err)
		}
		ev.Str("method", c.Method()).
			Str("path", c.Path()).
			Str("role", GetRole(c)).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("petición")
		return err
	}
}
