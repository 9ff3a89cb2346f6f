// Package api declares HTTP contracts and route registration for the
// results service. Handlers translate wire requests into coordinator
// calls and render the outcomes; they hold no business rules themselves.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	service "github.com/okian/tally/internal/app"
	"github.com/okian/tally/internal/domain/model"
)

// Route prefixes served by this API.
const (
	ResultsPath = "/api/v1/results"
	UsersPath   = "/api/v1/users"
)

// Dependencies required by the HTTP handlers. The interface bundle keeps
// this layer loosely coupled to the coordinator implementation.
type Dependencies interface {
	List(ctx context.Context, caller model.Caller, q service.ListQuery, preconditions []string) ([]model.Result, string, error)
	Get(ctx context.Context, caller model.Caller, id int64, preconditions []string) (model.Result, string, error)
	Create(ctx context.Context, caller model.Caller, payload map[string]any) (model.Result, error)
	Replace(ctx context.Context, caller model.Caller, id int64, payload map[string]any, precondition string) (model.Result, string, error)
	Delete(ctx context.Context, caller model.Caller, id int64) error
	Capabilities(hasID bool) []string

	ListUsers(ctx context.Context, caller model.Caller, sortField string, preconditions []string) ([]model.User, string, error)
	GetUser(ctx context.Context, caller model.Caller, id int64, preconditions []string) (model.User, string, error)
	UserResults(ctx context.Context, caller model.Caller, userID int64, q service.ListQuery, preconditions []string) ([]model.Result, string, error)
	UserCapabilities(hasID bool) []string
}

// Server wires HTTP routes for the business API.
type Server struct {
	resultsHandler *ResultsHandler
	usersHandler   *UsersHandler
	healthHandler  *HealthHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		resultsHandler: NewResultsHandler(deps),
		usersHandler:   NewUsersHandler(deps),
		healthHandler:  NewHealthHandler(),
	}
}

// Register attaches all HTTP routes to mux. Every API route runs behind
// the identity, request-id, and metrics middleware.
func (s *Server) Register(_ context.Context, mux *http.ServeMux, ident Resolver) {
	wrap := func(endpoint string, h http.HandlerFunc) http.HandlerFunc {
		return RequestIDMiddleware(MetricsMiddleware(WithIdentity(ident, h), endpoint))
	}
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc(ResultsPath, wrap("results", s.resultsHandler.HandleCollection))
	mux.HandleFunc(ResultsPath+"/", wrap("result", s.resultsHandler.HandleItem))
	mux.HandleFunc(UsersPath, wrap("users", s.usersHandler.HandleCollection))
	mux.HandleFunc(UsersPath+"/", wrap("user", s.usersHandler.HandleItem))
}

// decodePayload reads a mutation body. UseNumber keeps score values as
// json.Number so the validator can check integer-ness at the
// representation level.
func decodePayload(r *http.Request) (map[string]any, error) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, ErrBadPayload
	}
	return payload, nil
}
