package graph

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/graphql-go/graphql"

	"github.com/MiSArch/wishlist/pkg/middleware"
	"github.com/MiSArch/wishlist/pkg/validator"

	apperrors "github.com/MiSArch/wishlist/pkg/errors"
)

// apiError carries the machine-readable error code into the GraphQL error
// extensions. Raw driver and transport errors never reach this type; wrap
// classifies them to INTERNAL_ERROR first.
type apiError struct {
	message    string
	extensions map[string]any
}

func (e *apiError) Error() string { return e.message }

// Extensions satisfies gqlerrors.ExtendedError.
func (e *apiError) Extensions() map[string]any { return e.extensions }

func newAPIError(code, message string, status int) *apiError {
	return &apiError{
		message: message,
		extensions: map[string]any{
			"code":   code,
			"status": status,
		},
	}
}

// wrap translates a service error into a client-facing GraphQL error.
// Unclassified errors are logged with full context and replaced by a
// generic internal error.
func (r *resolver) wrap(p graphql.ResolveParams, err error) error {
	var validationErr *validator.ValidationError
	if errors.As(err, &validationErr) {
		apiErr := newAPIError("INVALID_INPUT", validationErr.Error(), http.StatusBadRequest)
		apiErr.extensions["fields"] = validationErr.Fields()
		return apiErr
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return newAPIError(appErr.Code, appErr.Message, appErr.Status)
	}

	r.logger.ErrorContext(p.Context, "unclassified resolver error",
		slog.String("field", p.Info.FieldName),
		slog.String("error", err.Error()),
	)
	return newAPIError("INTERNAL_ERROR", "an internal error occurred", http.StatusInternalServerError)
}

// customerID extracts the gateway-authenticated identity from the request
// context.
func (r *resolver) customerID(p graphql.ResolveParams) (string, error) {
	id := middleware.CustomerIDFromContext(p.Context)
	if id == "" {
		return "", newAPIError("UNAUTHORIZED", "missing customer identity", http.StatusUnauthorized)
	}
	return id, nil
}
