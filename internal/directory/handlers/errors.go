package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	e "github.com/gartstein/directory/internal/directory/errors"
	"go.uber.org/zap"
)

// maxBodyBytes caps request bodies on write routes.
const maxBodyBytes = 1 << 20

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Fields  []e.FieldIssue `json:"fields,omitempty"`
}

// mapServiceError maps domain or repository errors to an HTTP status and
// error body. Unexpected errors are logged and reported without detail.
func (h *Handler) mapServiceError(err error) (int, errorDetail) {
	var verr *e.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, errorDetail{Code: "invalid_input", Message: "validation failed", Fields: verr.Fields}
	case errors.Is(err, e.ErrInvalidInput):
		return http.StatusBadRequest, errorDetail{Code: "invalid_input", Message: err.Error()}
	case errors.Is(err, e.ErrNotFound):
		return http.StatusNotFound, errorDetail{Code: "not_found", Message: "employee not found"}
	case errors.Is(err, e.ErrConflict):
		return http.StatusConflict, errorDetail{Code: "conflict", Message: err.Error()}
	case errors.Is(err, e.ErrConfiguration):
		h.logger.Error("Configuration error", zap.Error(err))
		return http.StatusInternalServerError, errorDetail{Code: "configuration_error", Message: err.Error()}
	default:
		h.logger.Error("Internal server error", zap.Error(err))
		return http.StatusInternalServerError, errorDetail{Code: "internal_error", Message: "internal server error"}
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status, detail := h.mapServiceError(err)
	writeJSON(w, status, errorBody{Error: detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decode reads a single JSON value into dst, rejecting unknown fields and
// trailing data.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return e.NewValidationError("body", "is required")
		case errors.As(err, &maxErr):
			return e.NewValidationError("body", fmt.Sprintf("must not exceed %d bytes", maxErr.Limit))
		default:
			return fmt.Errorf("%w: malformed request body: %v", e.ErrInvalidInput, err)
		}
	}
	if dec.More() {
		return fmt.Errorf("%w: request body must contain a single JSON object", e.ErrInvalidInput)
	}
	return nil
}

func missingField(name string) error {
	return e.NewValidationError(name, "is required")
}
