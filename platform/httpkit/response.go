// Package httpkit provides HTTP response utilities.
// This is part of the platform layer and contains no business logic.
package httpkit

import (
	"errors"
	"net/http"

	"ims_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

// Result statuses returned in every response envelope.
const (
	StatusOK     = "OK"
	StatusError  = "ERROR"
	StatusExists = "EXISTS"
)

const msgInternalError = "internal error"

// Result is the standard response envelope.
type Result struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// JSON sends a successful envelope with the given status code.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, Result{Status: StatusOK, Data: payload})
}

// Error sends an error envelope with the given status code and message.
func Error(c *gin.Context, status int, message string, details interface{}) {
	c.JSON(status, Result{Status: StatusError, Message: message, Details: details})
}

// OK sends a 200 OK envelope with the given payload.
func OK(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusOK, Result{Status: StatusOK, Data: payload})
}

// Created sends a 201 Created envelope with the given payload.
func Created(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusCreated, Result{Status: StatusOK, Data: payload})
}

// Exists sends the soft-failure envelope used by idempotent creates.
func Exists(c *gin.Context, message string, existing interface{}) {
	c.JSON(http.StatusConflict, Result{Status: StatusExists, Message: message, Data: existing})
}

// HandleError maps domain errors to HTTP responses.
// Typed *apperr.Error values use their Kind for the status code; conflicts are
// reported as EXISTS with the conflicting row as data. Untyped and internal errors
// are attached to the gin context for the error log and answered with a generic
// message. Returns true if an error was handled, false otherwise.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	var domainErr *apperr.Error
	if errors.As(err, &domainErr) && domainErr.Kind != apperr.KindInternal && domainErr.Kind != apperr.KindUnknown {
		if domainErr.Kind == apperr.KindConflict {
			Exists(c, domainErr.Message, domainErr.Details)
			return true
		}
		c.JSON(domainErr.HTTPStatus(), Result{
			Status:  StatusError,
			Message: domainErr.Message,
			Details: domainErr.Details,
		})
		return true
	}

	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, Result{Status: StatusError, Message: msgInternalError})
	return true
}
