package handler

import (
	"errors"
	"log"
	"net/http"

	"chatline/backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// abortWithError maps a service error onto an HTTP status. Internal
// causes are logged and surfaced opaquely.
func abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch apperrors.CodeOf(err) {
	case apperrors.CodeValidation:
		status = http.StatusBadRequest
	case apperrors.CodeUnauthenticated:
		status = http.StatusUnauthorized
	case apperrors.CodeBlocked, apperrors.CodeNotAMember:
		status = http.StatusForbidden
	case apperrors.CodeNotFound:
		status = http.StatusNotFound
	case apperrors.CodeAdmissionFailed:
		status = http.StatusConflict
	}

	message := "Server error"
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && status != http.StatusInternalServerError {
		message = appErr.Message
	}
	if status == http.StatusInternalServerError {
		log.Printf("internal error: %v", err)
	}

	c.JSON(status, gin.H{"error": message})
}
