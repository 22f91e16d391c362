package utils

import (
	"net/http"

	"github.com/cppla/bloghub/apperror"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestIDKey is the gin context key holding the request id.
const RequestIDKey = "request_id"

// Envelope defines the uniform structure for API responses.
type Envelope struct {
	Success    bool                  `json:"success"`
	Message    string                `json:"message,omitempty"`
	Data       interface{}           `json:"data,omitempty"`
	Error      string                `json:"error,omitempty"`
	Errors     []apperror.FieldError `json:"errors,omitempty"`
	Count      *int                  `json:"count,omitempty"`
	Pagination *Pagination           `json:"pagination,omitempty"`
	Query      string                `json:"query,omitempty"`
}

// Respond writes a JSON envelope with the given status code.
func Respond(ctx *gin.Context, status int, env Envelope) {
	ctx.JSON(status, env)
}

// Success returns a standard success response.
func Success(ctx *gin.Context, data interface{}) {
	Respond(ctx, http.StatusOK, Envelope{Success: true, Data: data})
}

// SuccessWithMessage returns a 200 envelope carrying a message.
func SuccessWithMessage(ctx *gin.Context, message string, data interface{}) {
	Respond(ctx, http.StatusOK, Envelope{Success: true, Message: message, Data: data})
}

// Created returns a 201 envelope.
func Created(ctx *gin.Context, message string, data interface{}) {
	Respond(ctx, http.StatusCreated, Envelope{Success: true, Message: message, Data: data})
}

// List returns a collection with its count and optional pagination.
func List(ctx *gin.Context, data interface{}, count int, pagination *Pagination) {
	Respond(ctx, http.StatusOK, Envelope{Success: true, Data: data, Count: &count, Pagination: pagination})
}

// Fail translates err into an error envelope and aborts the chain. Internal details are logged, never returned.
func Fail(ctx *gin.Context, err error) {
	appErr := apperror.From(err)
	message := appErr.Message
	if appErr.Kind == apperror.KindInternal {
		Logger.Error("request failed",
			zap.Error(err),
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.Request.URL.Path),
			zap.String("request_id", ctx.GetString(RequestIDKey)),
		)
		message = "Server Error"
	}
	ctx.AbortWithStatusJSON(appErr.StatusCode(), Envelope{
		Success: false,
		Message: message,
		Error:   appErr.Code(),
		Errors:  appErr.Fields,
	})
}
