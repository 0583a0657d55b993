package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/datasprint/datasprint-api/internal/middleware"
	"github.com/datasprint/datasprint-api/internal/service"
)

func localString(c *fiber.Ctx, key string) string {
	if v := c.Locals(key); v != nil {
		if str, ok := v.(string); ok {
			return strings.TrimSpace(str)
		}
	}
	return ""
}

func userIDFromContext(c *fiber.Ctx) string {
	return localString(c, "user_id")
}

func actorFromContext(c *fiber.Ctx) service.SubmitActor {
	return service.SubmitActor{
		UserID: localString(c, "user_id"),
		Name:   localString(c, "user_name"),
		Email:  localString(c, "user_email"),
	}
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}
