package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"whispr/internal/transport/httpdto"
	whispr_errors "whispr/pkg/errors"
)

// respondError maps the service error taxonomy onto HTTP.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, whispr_errors.ErrNotFound):
		c.JSON(http.StatusNotFound, httpdto.NewErrorResponse(err.Error(), "NOT_FOUND"))
	case errors.Is(err, whispr_errors.ErrForbidden):
		c.JSON(http.StatusForbidden, httpdto.NewErrorResponse(err.Error(), "FORBIDDEN"))
	case errors.Is(err, whispr_errors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse(err.Error(), "UNAUTHORIZED"))
	case errors.Is(err, whispr_errors.ErrAlreadyDeleted):
		c.JSON(http.StatusConflict, httpdto.NewErrorResponse(err.Error(), "ALREADY_DELETED"))
	case errors.Is(err, whispr_errors.ErrAlreadyExists):
		c.JSON(http.StatusConflict, httpdto.NewErrorResponse(err.Error(), "ALREADY_EXISTS"))
	case errors.Is(err, whispr_errors.ErrValidation):
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(err.Error(), "VALIDATION"))
	case errors.Is(err, whispr_errors.ErrSelfMessage):
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(err.Error(), "SELF_MESSAGE"))
	case errors.Is(err, whispr_errors.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(err.Error(), "INVALID_REQUEST"))
	case errors.Is(err, whispr_errors.ErrTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, httpdto.NewErrorResponse(err.Error(), "TOO_LARGE"))
	default:
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("internal error", "INTERNAL_ERROR"))
	}
}
