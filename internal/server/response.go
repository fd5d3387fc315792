package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/piwi3910/SlabCount/internal/model"
)

// APIError is the error body returned to clients.
type APIError struct {
	Message string             `json:"message"`
	Code    string             `json:"code,omitempty"`
	Issues  []model.InputIssue `json:"issues,omitempty"`
	Details []string           `json:"details,omitempty"`
}

// ErrorEnvelope wraps every error response.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// Error codes.
const (
	CodeBadRequest   = "bad_request"
	CodeParseError   = "parse_error"
	CodeInvalidInput = "invalid_input"
	CodeTooLarge     = "upload_too_large"
	CodeInternal     = "internal_error"
)

// RespondError writes an error envelope and aborts the handler chain.
func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondInputError writes a 422 listing every rejected row.
func RespondInputError(c *gin.Context, err *model.InputError) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, ErrorEnvelope{
		Error: APIError{
			Message: "input tables rejected",
			Code:    CodeInvalidInput,
			Issues:  err.Issues,
		},
	})
}

// RespondParseErrors writes a 400 listing the rows the importer could not read.
func RespondParseErrors(c *gin.Context, errs []string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorEnvelope{
		Error: APIError{
			Message: "cannot read uploaded tables",
			Code:    CodeParseError,
			Details: errs,
		},
	})
}

// RespondOK writes a 200 JSON payload.
func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
