package api

import (
	"net/http"
	"strconv"
	"strings"
)

// UsersHandler serves the read-only user resource.
type UsersHandler struct {
	deps Dependencies
}

// NewUsersHandler creates a new users handler.
func NewUsersHandler(deps Dependencies) *UsersHandler {
	return &UsersHandler{deps: deps}
}

// HandleCollection handles GET/OPTIONS on the users collection.
func (h *UsersHandler) HandleCollection(w http.ResponseWriter, r *http.Request) {
	f := NegotiateFormat(r)
	switch r.Method {
	case http.MethodGet:
		users, tag, err := h.deps.ListUsers(r.Context(), CallerFrom(r.Context()),
			r.URL.Query().Get("sort"), readPreconditions(r))
		if err != nil {
			writeOutcome(w, f, err)
			return
		}
		jsonV, xmlV := envelopeUsers(users)
		writeBody(w, f, http.StatusOK, entityHeaders(tag), jsonV, xmlV)
	case http.MethodOptions:
		writeCapabilities(w, h.deps.UserCapabilities(false))
	default:
		writeMessage(w, f, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
	}
}

// HandleItem handles a single user and that user's results sub-resource.
func (h *UsersHandler) HandleItem(w http.ResponseWriter, r *http.Request) {
	f := NegotiateFormat(r)
	id, sub, ok := userPath(r.URL.Path)
	if !ok {
		writeMessage(w, f, http.StatusNotFound, http.StatusText(http.StatusNotFound))
		return
	}

	switch {
	case r.Method == http.MethodOptions:
		writeCapabilities(w, h.deps.UserCapabilities(true))
	case r.Method != http.MethodGet:
		writeMessage(w, f, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
	case sub == "results":
		results, tag, err := h.deps.UserResults(r.Context(), CallerFrom(r.Context()), id,
			sortQuery(r), readPreconditions(r))
		if err != nil {
			writeOutcome(w, f, err)
			return
		}
		jsonV, xmlV := envelopeResults(results)
		writeBody(w, f, http.StatusOK, entityHeaders(tag), jsonV, xmlV)
	default:
		user, tag, err := h.deps.GetUser(r.Context(), CallerFrom(r.Context()), id, readPreconditions(r))
		if err != nil {
			writeOutcome(w, f, err)
			return
		}
		wire := user.Wire()
		writeBody(w, f, http.StatusOK, entityHeaders(tag), userEnvelope{User: wire}, wire)
	}
}

// userPath parses "/api/v1/users/{id}" and "/api/v1/users/{id}/results".
func userPath(path string) (int64, string, bool) {
	rest := strings.TrimPrefix(path, UsersPath+"/")
	idPart, sub, _ := strings.Cut(rest, "/")
	if sub != "" && sub != "results" {
		return 0, "", false
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id < 0 {
		return 0, "", false
	}
	return id, sub, true
}
