// Package http serves the JSON API and the public read-only ledger page.
//
// This file implements the Builder Pattern for constructing JSON responses
// and maps domain and persistence errors onto status codes.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"foco/internal/auth"
	"foco/internal/core"
	"foco/internal/gateway"
	"foco/internal/ledger"
	applog "foco/internal/log"
)

// ResponseBuilder provides a fluent API for JSON responses.
type ResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewResponse creates a builder with a default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets the value encoded as the response body.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if err := json.NewEncoder(w).Encode(b.body); err != nil {
		slog.Error("Failed to encode response", applog.FieldComponent, applog.ComponentHTTP, applog.FieldError, err)
	}
}

// errorBody is the wire form of every failure.
type errorBody struct {
	Error   string `json:"error"`
	Pending bool   `json:"pending,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// ErrorResponse creates a JSON error response.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewResponse().Status(statusCode).JSON(errorBody{Error: message})
}

func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func UnauthorizedError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, message)
}

func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func InternalServerError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// PendingError reports a change that was kept on the device but did not
// reach the remote store. data is the saved value, when there is one.
func PendingError(statusCode int, message string, data any) *ResponseBuilder {
	return NewResponse().Status(statusCode).JSON(errorBody{Error: message, Pending: true, Data: data})
}

// ErrorFor maps err to a response. data accompanies partial successes.
func ErrorFor(err error, data any) *ResponseBuilder {
	var writeErr *gateway.WriteError
	switch {
	case core.IsValidationError(err):
		return BadRequestError(err.Error())
	case errors.Is(err, gateway.ErrNotFound), errors.Is(err, ledger.ErrEntryNotFound):
		return NotFoundError(err.Error())
	case errors.As(err, &writeErr):
		return PendingError(http.StatusBadGateway, "Não foi possível sincronizar. A alteração ficou salva neste dispositivo.", data)
	case errors.Is(err, gateway.ErrShadowSync):
		return PendingError(http.StatusAccepted, "Registro salvo. A página pública será atualizada em instantes.", data)
	case errors.Is(err, core.ErrSlugTaken):
		return ErrorResponse(http.StatusConflict, "Este link público já está em uso.")
	case errors.Is(err, auth.ErrEmailInUse):
		return ErrorResponse(http.StatusConflict, auth.Message(err))
	case errors.Is(err, auth.ErrWrongPassword), errors.Is(err, auth.ErrUserNotFound):
		return UnauthorizedError(auth.Message(err))
	case errors.Is(err, auth.ErrWeakPassword), errors.Is(err, auth.ErrInvalidEmail):
		return BadRequestError(auth.Message(err))
	default:
		return InternalServerError("Erro inesperado. Tente novamente.")
	}
}
