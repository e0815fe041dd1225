// Package handlers adapts the services to HTTP. Every response uses the
// {success, data} / {success, code, error} envelope.
package handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/fathima-sithara/moms/internal/middleware"
	"github.com/fathima-sithara/moms/internal/models"
	"github.com/fathima-sithara/moms/internal/services"
	"github.com/fathima-sithara/moms/internal/session"
	"github.com/fathima-sithara/moms/internal/utils"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// StatusOf maps a client-facing error code to its HTTP status.
func StatusOf(code string) int {
	switch code {
	case services.CodeNotAuthorized, services.CodeForbidden, services.CodeNotRegistered:
		return fiber.StatusForbidden
	case services.CodeInvalidCredentials:
		return fiber.StatusUnauthorized
	case services.CodeTooManyAttempts:
		return fiber.StatusTooManyRequests
	case services.CodePhoneRegistered:
		return fiber.StatusConflict
	case services.CodeWeakPassword, services.CodeValidation:
		return fiber.StatusBadRequest
	case services.CodeNotFound:
		return fiber.StatusNotFound
	case services.CodeMealClosed:
		return fiber.StatusUnprocessableEntity
	}
	return fiber.StatusInternalServerError
}

// ErrorHandler is the app-wide fiber error handler. Errors not produced by
// fiber itself go through the service code mapping.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var ib *invalidBody
		if errors.As(err, &ib) {
			return utils.JSONValidation(c, ib.err)
		}
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code := services.CodeInternal
			switch fe.Code {
			case fiber.StatusNotFound:
				code = services.CodeNotFound
			case fiber.StatusBadRequest, fiber.StatusRequestEntityTooLarge, fiber.StatusUpgradeRequired:
				code = services.CodeValidation
			case fiber.StatusMethodNotAllowed:
				code = services.CodeNotFound
			}
			return utils.JSONError(c, fe.Code, code, fe.Message)
		}
		code := services.CodeOf(err)
		if code == services.CodeInternal {
			log.Error("request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err))
		}
		return utils.JSONError(c, StatusOf(code), code, services.PublicMessage(err))
	}
}

// invalidBody carries validator errors to ErrorHandler.
type invalidBody struct{ err error }

func (e *invalidBody) Error() string { return e.err.Error() }

// bind parses the JSON body into dto and validates it.
func bind(c *fiber.Ctx, dto interface{}) error {
	if err := c.BodyParser(dto); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.Validator().Struct(dto); err != nil {
		return &invalidBody{err: err}
	}
	return nil
}

func sess(c *fiber.Ctx) *session.Session { return middleware.SessionFrom(c) }

func ok(c *fiber.Ctx, data interface{}) error {
	return utils.JSONSuccess(c, fiber.StatusOK, data)
}

func created(c *fiber.Ctx, data interface{}) error {
	return utils.JSONSuccess(c, fiber.StatusCreated, data)
}

func queryInt(c *fiber.Ctx, key string, def int64) int64 {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return def
	}
	return n
}

// queryTime reads an RFC 3339 timestamp, or the zero time.
func queryTime(c *fiber.Ctx, key string) (time.Time, error) {
	v := c.Query(key)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, key+" must be an RFC 3339 timestamp")
	}
	return t, nil
}

func mealParam(c *fiber.Ctx) (models.MealType, error) {
	mt, err := models.ParseMealType(c.Params("mealType"))
	if err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return mt, nil
}
