package api

import (
	"strings"

	"decred.org/dcrwallet/v2/errors"
	"github.com/crypto-power/tipwizard/libtipper/tip"
	"github.com/gofiber/fiber/v2"
)

// APIError is the body of every failed request.
type APIError struct {
	Code    int    `json:"-"`
	Message string `json:"error"`
	// Fields holds the inline form errors of a rejected wizard step.
	Fields tip.ValidationErrors `json:"fields,omitempty"`
}

func (e APIError) Error() string {
	return e.Message
}

func badRequest(msg string) APIError {
	return APIError{Code: fiber.StatusBadRequest, Message: msg}
}

// statusOf maps an error kind onto the HTTP status it is reported with.
func statusOf(err error) int {
	switch {
	case errors.Is(err, errors.Invalid):
		return fiber.StatusBadRequest
	case errors.Is(err, errors.NotExist):
		return fiber.StatusNotFound
	case errors.Is(err, errors.Exist), errors.Is(err, errors.InsufficientBalance):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandler renders err as {"error": message}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var resp APIError
	switch e := err.(type) {
	case APIError:
		resp = e
	case *fiber.Error:
		resp = APIError{Code: e.Code, Message: e.Message}
	default:
		resp = APIError{Code: statusOf(err), Message: err.Error()}
	}

	if resp.Code >= fiber.StatusInternalServerError {
		msg := strings.ReplaceAll(resp.Message, "\n", "\\n")
		log.Errorf("Path: %s Body: %s Error: %s", c.Path(), string(c.Body()), msg)
	} else {
		log.Debugf("Path: %s Code: %d Error: %s", c.Path(), resp.Code, resp.Message)
	}
	return c.Status(resp.Code).JSON(resp)
}
