package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/groupware-approval/internal/application/ledger"
	"github.com/garyjia/groupware-approval/internal/application/service"
	"github.com/garyjia/groupware-approval/internal/application/workflow"
	domainwf "github.com/garyjia/groupware-approval/internal/domain/workflow"
)

// statusFor maps an application error onto an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, ledger.ErrInvalidHours),
		errors.Is(err, workflow.ErrInvalidOutcome):
		return http.StatusBadRequest
	case errors.Is(err, domainwf.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domainwf.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domainwf.ErrInsufficientLeaveBalance),
		errors.Is(err, domainwf.ErrStructuralIntegrity):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domainwf.ErrInvalidState):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs server-side failures and writes the error envelope.
// Internal errors are not echoed to the client.
func (h *Handlers) respondError(c *gin.Context, op string, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error(op+" failed", "path", c.Request.URL.Path, "caller", caller(c), "error", err)
		msg = "internal error"
	}
	c.JSON(status, Response{Success: false, Error: msg})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg})
}
