package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/render"
)

// Error type identifiers used in the response envelope.
const (
	errTypeNotFound    = "not_found"
	errTypeValidation  = "validation_error"
	errTypeArgument    = "argument_error"
	errTypeFeatureFlag = "feature_flag_error"
	errTypeInternal    = "internal_error"
)

// ErrorBody is the inner payload of every error response.
type ErrorBody struct {
	Type    string   `json:"type"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

// ErrorResponse is the envelope every error response uses:
// {"error": {"type": ..., "message": ..., "details": [...]}}
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

func renderErr(w http.ResponseWriter, r *http.Request, status int, body ErrorBody) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: body})
}

// renderNotFound reports a missing resource (404).
func renderNotFound(w http.ResponseWriter, r *http.Request, message string) {
	renderErr(w, r, http.StatusNotFound, ErrorBody{
		Type:    errTypeNotFound,
		Message: message,
	})
}

// renderValidationError reports field-level validation failures (422).
// The message joins the detail lines; details carries them individually.
func renderValidationError(w http.ResponseWriter, r *http.Request, details []string) {
	renderErr(w, r, http.StatusUnprocessableEntity, ErrorBody{
		Type:    errTypeValidation,
		Message: strings.Join(details, ", "),
		Details: details,
	})
}

// renderArgumentError reports malformed caller input at the boundary (400).
func renderArgumentError(w http.ResponseWriter, r *http.Request, message string) {
	renderErr(w, r, http.StatusBadRequest, ErrorBody{
		Type:    errTypeArgument,
		Message: message,
	})
}

// renderFeatureFlagError reports a domain-specific operation failure (400).
func renderFeatureFlagError(w http.ResponseWriter, r *http.Request, message string) {
	renderErr(w, r, http.StatusBadRequest, ErrorBody{
		Type:    errTypeFeatureFlag,
		Message: message,
	})
}

// renderInternalError reports an unexpected store-layer failure (500) without
// exposing internals to the client.
func renderInternalError(w http.ResponseWriter, r *http.Request) {
	renderErr(w, r, http.StatusInternalServerError, ErrorBody{
		Type:    errTypeInternal,
		Message: "Internal server error",
	})
}
