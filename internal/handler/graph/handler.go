package graph

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/graphql-go/graphql"

	"github.com/MiSArch/wishlist/internal/service"
	"github.com/MiSArch/wishlist/pkg/httputil"

	apperrors "github.com/MiSArch/wishlist/pkg/errors"
)

// request is the standard GraphQL-over-HTTP POST body.
type request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
}

// Handler serves the wishlist schema over HTTP POST. Execution errors are
// reported in the response's errors array with a 200 status, per GraphQL
// convention; only malformed requests get a non-200.
type Handler struct {
	schema graphql.Schema
	logger *slog.Logger
}

// NewHandler builds the schema and returns the HTTP handler for it.
func NewHandler(svc *service.WishlistService, logger *slog.Logger) (*Handler, error) {
	schema, err := NewSchema(svc, logger)
	if err != nil {
		return nil, apperrors.Wrap(err, "build schema")
	}
	return &Handler{schema: schema, logger: logger}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.WriteError(w, r, apperrors.InvalidInput("only POST is supported"), h.logger)
		return
	}

	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body"), h.logger)
		return
	}
	if req.Query == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("query is required"), h.logger)
		return
	}

	result := graphql.Do(graphql.Params{
		Schema:         h.schema,
		RequestString:  req.Query,
		OperationName:  req.OperationName,
		VariableValues: req.Variables,
		Context:        r.Context(),
	})

	httputil.WriteJSON(w, http.StatusOK, result)
}
