package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-bus-tracking/internal/infrastructure/store"
)

type errorBody struct {
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
}

func respondOK(c *gin.Context, status int, data any, message string) {
	body := gin.H{"success": true, "data": data}
	if message != "" {
		body["message"] = message
	}
	c.JSON(status, body)
}

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   errorBody{Message: message, StatusCode: status},
	})
}

// respondStoreError maps store errors onto HTTP statuses. notFound is the
// message used for a missing document.
func respondStoreError(c *gin.Context, err error, notFound string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(c, http.StatusNotFound, notFound)
	case errors.Is(err, store.ErrInvalidID):
		respondError(c, http.StatusBadRequest, err.Error())
	default:
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "Internal server error")
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
