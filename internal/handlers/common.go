package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/propertilaw/propertilaw/internal/auth"
	"github.com/propertilaw/propertilaw/internal/middleware"
	"github.com/propertilaw/propertilaw/internal/services"
	"github.com/propertilaw/propertilaw/internal/types"
	"github.com/propertilaw/propertilaw/internal/utils"
)

// principal pulls the authenticated caller off the request.
func principal(c *fiber.Ctx) *auth.Principal {
	return middleware.GetPrincipal(c)
}

// svcError translates a service error into a response. ErrNotFound maps
// to 404, sync contention to 409, a CustomError to its own code, and
// everything else to inputStatus, which callers set to 400 for
// operations fed by user input and 500 otherwise.
func svcError(c *fiber.Ctx, err error, inputStatus int, opName string) error {
	var custom *types.CustomError
	switch {
	case errors.Is(err, services.ErrNotFound):
		return utils.NotFoundResponse(c, "Resource not found")
	case errors.Is(err, services.ErrSyncInProgress):
		return utils.ErrorResponse(c, err.Error(), fiber.StatusConflict, opName)
	case errors.As(err, &custom):
		return utils.ErrorResponse(c, custom.Message, custom.Code, custom.Type)
	default:
		return utils.ErrorResponse(c, err.Error(), inputStatus, opName)
	}
}

// ok sends a JSON body with a 200.
func ok(c *fiber.Ctx, body interface{}) error {
	return c.Status(fiber.StatusOK).JSON(body)
}

// created sends a JSON body with a 201.
func created(c *fiber.Ctx, body interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(body)
}

// accepted acknowledges a fire-and-forget trigger with a pointer the
// caller can poll.
func accepted(c *fiber.Ctx, message, pollURL string) error {
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status":    fiber.StatusAccepted,
		"message":   message,
		"ok":        true,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"poll":      pollURL,
	})
}
