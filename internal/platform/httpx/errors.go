package httpx

import (
	"errors"
	"net/http"

	"github.com/brightline-erp/brightline/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrInvalidState):
		Problem(w, http.StatusConflict, "Invalid State", err.Error())
	case errors.Is(err, shared.ErrInsufficientStock):
		Problem(w, http.StatusUnprocessableEntity, "Insufficient Stock", err.Error())
	case errors.Is(err, shared.ErrLockHeld):
		Problem(w, http.StatusConflict, "Document Locked", err.Error())
	case errors.Is(err, shared.ErrConfiguration):
		Problem(w, http.StatusInternalServerError, "Configuration Error", err.Error())
	case errors.Is(err, shared.ErrPartialFailure):
		Problem(w, http.StatusInternalServerError, "Partial Failure", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
