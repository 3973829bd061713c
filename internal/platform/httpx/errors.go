package httpx

import (
	"errors"
	"net/http"

	"github.com/sentinel-iam/sentinel-iam/internal/shared"
)

// Sentinel errors for transport concerns not covered by the domain taxonomy.
var (
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var notFound *shared.NotFoundError
	var conflict *shared.ConflictError
	var validation *shared.ValidationError
	var resolution *shared.ResolutionError
	switch {
	case errors.As(err, &notFound):
		Problem(w, http.StatusNotFound, "Not Found", notFound.Error())
	case errors.As(err, &conflict):
		JSON(w, http.StatusConflict, ProblemDetail{
			Title:      "Conflict",
			Status:     http.StatusConflict,
			Detail:     conflict.Error(),
			Dependents: conflict.Dependents,
		})
	case errors.As(err, &validation):
		Problem(w, http.StatusBadRequest, "Validation Failed", validation.Error())
	case errors.As(err, &resolution):
		// Fail closed: a resolution failure is reported, never a grant.
		Problem(w, http.StatusForbidden, "Forbidden", "authorization unavailable")
	case errors.Is(err, ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
