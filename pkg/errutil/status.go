package errutil

import "net/http"

type CoreStatus string

const (
	StatusValidationFailed CoreStatus = "VALIDATION_FAILED"
	StatusUnauthorized     CoreStatus = "UNAUTHORIZED"
	StatusForbidden        CoreStatus = "FORBIDDEN"
	StatusNotFound         CoreStatus = "NOT_FOUND"
	StatusConflict         CoreStatus = "CONFLICT"
	StatusInvalidState     CoreStatus = "INVALID_STATE"
	StatusInternal         CoreStatus = "INTERNAL"
)

var httpStatus = map[CoreStatus]int{
	StatusValidationFailed: http.StatusBadRequest,
	StatusUnauthorized:     http.StatusUnauthorized,
	StatusForbidden:        http.StatusForbidden,
	StatusNotFound:         http.StatusNotFound,
	StatusConflict:         http.StatusConflict,
	StatusInvalidState:     http.StatusUnprocessableEntity,
	StatusInternal:         http.StatusInternalServerError,
}

// HTTPStatus maps the status to the HTTP code written by the gin error middleware.
func (s CoreStatus) HTTPStatus() int {
	if code, ok := httpStatus[s]; ok {
		return code
	}
	return http.StatusInternalServerError
}
