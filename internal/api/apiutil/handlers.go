package apiutil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/codr1/orgthemes/internal/store"
	"github.com/codr1/orgthemes/internal/templates"
	"github.com/codr1/orgthemes/internal/themes"
)

// MaxBodyBytes caps JSON request bodies.
const MaxBodyBytes = 1 << 20

type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

type HandlerError struct {
	Status  int
	Message string
	Err     error
}

func (e HandlerError) Error() string {
	return e.Message
}

func (e HandlerError) Unwrap() error {
	return e.Err
}

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error  string         `json:"error"`
	Code   string         `json:"code,omitempty"`
	Path   string         `json:"path,omitempty"`
	Issues []themes.Issue `json:"issues,omitempty"`
}

func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return fmt.Errorf("missing request body")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	if err := encoder.Encode(payload); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

// ErrorStatus maps an error from the theme stack to an HTTP status and body.
func ErrorStatus(err error) (int, ErrorResponse) {
	var (
		handlerErr    HandlerError
		fieldErr      FieldError
		mergeErr      *themes.MergeError
		validationErr *themes.ValidationError
		fallbackErr   *themes.FallbackExhaustedError
		generationErr *themes.GenerationError
		sinkErr       *themes.SinkError
	)

	switch {
	case errors.As(err, &handlerErr):
		return handlerErr.Status, ErrorResponse{Error: handlerErr.Message}
	case errors.As(err, &fieldErr):
		return http.StatusBadRequest, ErrorResponse{Error: fieldErr.Error(), Code: "invalid_field", Path: fieldErr.Field}
	case errors.As(err, &validationErr):
		return http.StatusUnprocessableEntity, ErrorResponse{Error: "theme failed validation", Code: "validation_failed", Issues: validationErr.Issues}
	case errors.As(err, &mergeErr):
		return http.StatusBadRequest, ErrorResponse{Error: mergeErr.Error(), Code: "merge_conflict", Path: mergeErr.Path}
	case errors.Is(err, themes.ErrSuperseded):
		return http.StatusConflict, ErrorResponse{Error: "theme apply superseded by a newer request", Code: "superseded"}
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{Error: "organization theme not found", Code: "not_found"}
	case errors.Is(err, templates.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "template_not_found"}
	case errors.As(err, &fallbackErr):
		return http.StatusBadGateway, ErrorResponse{Error: "theme and fallback theme both failed", Code: "fallback_exhausted"}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrorResponse{Error: "theme operation timed out", Code: "timeout"}
	case errors.As(err, &generationErr):
		return http.StatusInternalServerError, ErrorResponse{Error: "failed to generate theme css", Code: "generation_failed"}
	case errors.As(err, &sinkErr):
		return http.StatusInternalServerError, ErrorResponse{Error: "failed to apply theme", Code: "sink_failed"}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "Internal Server Error"}
	}
}

// WriteError logs err and writes its mapped JSON error response.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := ErrorStatus(err)
	logger := log.Ctx(r.Context())
	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Err(err).Int("status", status).Str("code", body.Code).Msg("Request failed")

	if writeErr := WriteJSON(w, status, body); writeErr != nil {
		logger.Error().Err(writeErr).Msg("Failed to write error response")
	}
}
