package httpx

import (
	"errors"
	"net/http"

	"github.com/meridian-admin/meridian/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
// A denied authorization decision never reaches this path: the rbac
// middleware turns the boolean into a 403 before the handler runs.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrDuplicateName):
		Problem(w, http.StatusConflict, "Duplicate Name", err.Error())
	case errors.Is(err, shared.ErrStaleVersion):
		Problem(w, http.StatusConflict, "Stale Version", err.Error())
	case errors.Is(err, shared.ErrRoleInUse):
		Problem(w, http.StatusConflict, "Role In Use", err.Error())
	case errors.Is(err, shared.ErrInvalidGrant):
		Problem(w, http.StatusUnprocessableEntity, "Invalid Grant", err.Error())
	case errors.Is(err, shared.ErrProtectedRole):
		Problem(w, http.StatusUnprocessableEntity, "Protected Role", err.Error())
	case errors.Is(err, shared.ErrWeakCredential):
		Problem(w, http.StatusUnprocessableEntity, "Weak Credential", err.Error())
	case errors.Is(err, shared.ErrSelfDelete):
		Problem(w, http.StatusUnprocessableEntity, "Self Delete Forbidden", err.Error())
	case errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// ValidationProblem sends a 400 with field-level messages attached.
func ValidationProblem(w http.ResponseWriter, fields map[string]string) {
	JSON(w, http.StatusBadRequest, struct {
		ProblemDetail
		Fields map[string]string `json:"fields,omitempty"`
	}{
		ProblemDetail: ProblemDetail{Title: "Validation Failed", Status: http.StatusBadRequest},
		Fields:        fields,
	})
}
