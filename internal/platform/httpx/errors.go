package httpx

import (
	"errors"
	"net/http"

	"github.com/balcao-pdv/balcao-pdv/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
// Conflicts and failed preconditions surface as 400 to match the contract
// the cashier frontend already depends on.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrConflict):
		Problem(w, http.StatusBadRequest, "Conflict", err.Error())
	case errors.Is(err, shared.ErrPrecondition):
		Problem(w, http.StatusBadRequest, "Precondition Failed", err.Error())
	case errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
