// Package respond writes JSON responses and is the single place where errors
// are turned into HTTP status codes.
package respond

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/nextgendevs/ng-backend/internal/apperr"
	"github.com/nextgendevs/ng-backend/internal/logging"
)

// ErrorBody is the wire shape of every error response
type ErrorBody struct {
	Error   bool   `json:"error"`
	UUID    string `json:"uuid"`
	Status  int    `json:"status"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type messageBody struct {
	Message string `json:"message"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("failed to encode response", "error", err)
	}
}

func Message(w http.ResponseWriter, status int, message string) {
	JSON(w, status, messageBody{Message: message})
}

// Error logs err with a fresh correlation id and writes it to the client.
// Unexpected errors are logged with their cause and reported generically.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperr.As(err)
	status := apperr.Status(appErr.Kind)
	id := uuid.NewString()

	logger := logging.L(r.Context()).With(
		"uuid", id,
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"type", string(appErr.Kind),
	)

	message := appErr.Message
	if appErr.Kind == apperr.KindUnexpected {
		logger.Error(appErr.Message, "error", err)
		message = apperr.MsgSomethingWentWrong
	} else {
		logger.Info(appErr.Message, "field", appErr.Field)
	}

	JSON(w, status, ErrorBody{
		Error:   true,
		UUID:    id,
		Status:  status,
		Type:    string(appErr.Kind),
		Message: message,
		Field:   appErr.Field,
	})
}

// TooManyRequests is written by the rate limiters; it is not an application error kind
func TooManyRequests(w http.ResponseWriter, message string) {
	JSON(w, http.StatusTooManyRequests, ErrorBody{
		Error:   true,
		UUID:    uuid.NewString(),
		Status:  http.StatusTooManyRequests,
		Type:    "TooManyRequests",
		Message: message,
	})
}

const maxBodyBytes = 1 << 20

// Decode reads a JSON body into dst. Syntax and type errors become
// InvalidParameter errors naming the offending field where possible.
func Decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)

	err := dec.Decode(dst)
	if err == nil {
		return nil
	}

	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &typeErr) && typeErr.Field != "":
		return apperr.InvalidParameter(typeErr.Field, apperr.MsgInvalidType(typeErr.Field, jsonType(typeErr.Type.Kind().String())))
	case errors.Is(err, io.EOF):
		return apperr.InvalidParameter("body", apperr.MsgIsRequired("body"))
	default:
		return apperr.InvalidParameter("body", apperr.MsgInvalidJSON)
	}
}

func jsonType(goKind string) string {
	switch {
	case strings.HasPrefix(goKind, "float"), strings.HasPrefix(goKind, "int"), strings.HasPrefix(goKind, "uint"):
		return "number"
	case goKind == "ptr", goKind == "struct", goKind == "map":
		return "object"
	case goKind == "slice":
		return "array"
	case goKind == "bool":
		return "boolean"
	default:
		return goKind
	}
}
