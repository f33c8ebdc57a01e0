package api

import (
	"net/http"

	"hourlysheet/internal/errors"

	"github.com/gin-gonic/gin"
)

// errorBody is the JSON shape of every failed response
type errorBody struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
}

// statusFor maps an error code to its HTTP status
func statusFor(code string) int {
	switch code {
	case errors.CodeValidationError, errors.CodeInvalidInput:
		return http.StatusBadRequest
	case errors.CodeNotFound, errors.CodeUnknownMachine:
		return http.StatusNotFound
	case errors.CodeInsufficientData, errors.CodeImportError:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as JSON. Internal failures are logged and their
// details withheld.
func (s *Server) respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := statusFor(code)

	body := errorBody{Code: code, Message: err.Error(), Fields: errors.GetFields(err)}
	if status == http.StatusInternalServerError {
		s.log.Errorw("request failed", "path", c.FullPath(), "error", err)
		withheld := errors.InternalError("internal error")
		if errors.IsAppError(err) {
			withheld.Code = code
		}
		body = errorBody{Code: withheld.Code, Message: withheld.Message}
	}

	c.AbortWithStatusJSON(status, gin.H{"error": body})
}
