package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/gophfiles/internal/common"
	"github.com/gin-gonic/gin"
)

// reply writes the {"response": {...}} envelope.
func reply(c *gin.Context, status int, body gin.H) {
	c.JSON(status, gin.H{"response": body})
}

// replyError maps service errors onto statuses. Unknown errors never leak
// their text.
func replyError(c *gin.Context, err error) {
	status, message := http.StatusInternalServerError, "Internal server error"

	var bre *common.BadRequestError
	switch {
	case errors.As(err, &bre):
		status, message = http.StatusBadRequest, bre.Reason
	case errors.Is(err, common.ErrorBadRequest):
		status, message = http.StatusBadRequest, "Bad request"
	case errors.Is(err, common.ErrorNotFound):
		status, message = http.StatusNotFound, "Not found"
	case errors.Is(err, common.ErrorForbidden):
		status, message = http.StatusForbidden, "Forbidden"
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		status, message = http.StatusUnauthorized, "Unauthorized"
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"response": gin.H{"message": message}})
}
