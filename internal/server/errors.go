package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/PhelGc/sig-rca/internal/editor"
	"github.com/PhelGc/sig-rca/internal/evaluator"
	"github.com/PhelGc/sig-rca/internal/jira"
	"github.com/PhelGc/sig-rca/internal/logging"
	"github.com/PhelGc/sig-rca/internal/rca"
	"github.com/PhelGc/sig-rca/internal/storage"
	"github.com/PhelGc/sig-rca/internal/wizard"
)

// apiError sobre JSON de error de la API
type apiError struct {
	Code    string
	Message string
	Status  int
}

func newError(code, message string, status int) apiError {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return apiError{Code: code, Message: message, Status: status}
}

// toAPIError traduce los errores del dominio a código y estado HTTP
func toAPIError(err error) apiError {
	var (
		stageErr *wizard.StageError
		evalErr  *evaluator.Error
	)
	switch {
	case errors.Is(err, rca.ErrValidation),
		errors.Is(err, rca.ErrUnknownImpact),
		errors.Is(err, rca.ErrUnknownMethod),
		errors.Is(err, rca.ErrIndexOutOfRange),
		errors.Is(err, rca.ErrEmptyCause),
		errors.Is(err, rca.ErrEmptyCategoryTag),
		errors.Is(err, rca.ErrLastWhy),
		errors.Is(err, storage.ErrMissingID),
		errors.Is(err, wizard.ErrNotRecommended):
		return newError("validation_error", err.Error(), http.StatusBadRequest)
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, wizard.ErrNoSession),
		errors.Is(err, rca.ErrUnknownCategory),
		errors.Is(err, rca.ErrActionNotFound),
		errors.Is(err, jira.ErrIssueNotFound):
		return newError("not_found", err.Error(), http.StatusNotFound)
	case errors.Is(err, wizard.ErrBusy):
		return newError("busy", err.Error(), http.StatusConflict)
	case errors.Is(err, wizard.ErrInvalidTransition):
		return newError("invalid_transition", err.Error(), http.StatusConflict)
	case errors.Is(err, editor.ErrNotConfirmed):
		return newError("confirmation_required", err.Error(), http.StatusPreconditionFailed)
	case errors.Is(err, wizard.ErrPersist):
		return newError("storage_error", err.Error(), http.StatusInternalServerError)
	case errors.As(err, &evalErr), errors.As(err, &stageErr):
		return newError("service_error", err.Error(), http.StatusBadGateway)
	}
	return newError("internal_error", "error interno", http.StatusInternalServerError)
}

// writeError escribe el sobre de error con el id de la petición
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	apiErr := toAPIError(err)
	if apiErr.Status >= http.StatusInternalServerError {
		logging.FromContext(ctx).Error("Error atendiendo petición", zap.Int("status", apiErr.Status), zap.Error(err))
	}
	writeAPIError(ctx, w, apiErr)
}

func writeAPIError(ctx context.Context, w http.ResponseWriter, err apiError) {
	payload := map[string]any{
		"error":   err.Code,
		"message": err.Message,
	}
	if requestID := middleware.GetReqID(ctx); requestID != "" {
		payload["requestId"] = requestID
	}
	writeJSON(w, err.Status, payload)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON lee el cuerpo de la petición; un cuerpo inválido es un error de validación
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", rca.ErrValidation, err)
	}
	return nil
}
