package api

import (
	"net/http"
	"strconv"
	"strings"

	service "github.com/okian/tally/internal/app"
	"github.com/okian/tally/internal/domain/etag"
)

// ResultsHandler serves the scored-result resource.
type ResultsHandler struct {
	deps Dependencies
}

// NewResultsHandler creates a new results handler.
func NewResultsHandler(deps Dependencies) *ResultsHandler {
	return &ResultsHandler{deps: deps}
}

// HandleCollection handles GET/POST/OPTIONS on the collection path.
func (h *ResultsHandler) HandleCollection(w http.ResponseWriter, r *http.Request) {
	f := NegotiateFormat(r)
	switch r.Method {
	case http.MethodGet:
		h.list(w, r, f)
	case http.MethodPost:
		h.create(w, r, f)
	case http.MethodOptions:
		writeCapabilities(w, h.deps.Capabilities(false))
	default:
		writeMessage(w, f, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
	}
}

// HandleItem handles GET/PUT/DELETE/OPTIONS on a single result.
func (h *ResultsHandler) HandleItem(w http.ResponseWriter, r *http.Request) {
	f := NegotiateFormat(r)
	id, ok := itemID(r.URL.Path, ResultsPath)
	if !ok {
		writeMessage(w, f, http.StatusNotFound, http.StatusText(http.StatusNotFound))
		return
	}
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, f, id)
	case http.MethodPut:
		h.replace(w, r, f, id)
	case http.MethodDelete:
		h.remove(w, r, f, id)
	case http.MethodOptions:
		writeCapabilities(w, h.deps.Capabilities(true))
	default:
		writeMessage(w, f, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
	}
}

func (h *ResultsHandler) list(w http.ResponseWriter, r *http.Request, f Format) {
	results, tag, err := h.deps.List(r.Context(), CallerFrom(r.Context()),
		sortQuery(r), readPreconditions(r))
	if err != nil {
		writeOutcome(w, f, err)
		return
	}
	jsonV, xmlV := envelopeResults(results)
	writeBody(w, f, http.StatusOK, entityHeaders(tag), jsonV, xmlV)
}

func (h *ResultsHandler) get(w http.ResponseWriter, r *http.Request, f Format, id int64) {
	result, tag, err := h.deps.Get(r.Context(), CallerFrom(r.Context()), id, readPreconditions(r))
	if err != nil {
		writeOutcome(w, f, err)
		return
	}
	wire := result.Wire()
	writeBody(w, f, http.StatusOK, entityHeaders(tag), resultEnvelope{Result: wire}, wire)
}

func (h *ResultsHandler) create(w http.ResponseWriter, r *http.Request, f Format) {
	payload, err := decodePayload(r)
	if err != nil {
		writeOutcome(w, f, err)
		return
	}
	result, err := h.deps.Create(r.Context(), CallerFrom(r.Context()), payload)
	if err != nil {
		writeOutcome(w, f, err)
		return
	}
	headers := map[string]string{
		"Location": locationFor(r, result.ID),
	}
	wire := result.Wire()
	writeBody(w, f, http.StatusCreated, headers, resultEnvelope{Result: wire}, wire)
}

func (h *ResultsHandler) replace(w http.ResponseWriter, r *http.Request, f Format, id int64) {
	payload, err := decodePayload(r)
	if err != nil {
		writeOutcome(w, f, err)
		return
	}
	result, tag, err := h.deps.Replace(r.Context(), CallerFrom(r.Context()), id,
		payload, r.Header.Get("If-Match"))
	if err != nil {
		writeOutcome(w, f, err)
		return
	}
	wire := result.Wire()
	writeBody(w, f, service.StatusContentReturned, map[string]string{"ETag": tag},
		resultEnvelope{Result: wire}, wire)
}

func (h *ResultsHandler) remove(w http.ResponseWriter, r *http.Request, f Format, id int64) {
	if err := h.deps.Delete(r.Context(), CallerFrom(r.Context()), id); err != nil {
		writeOutcome(w, f, err)
		return
	}
	writeBody(w, f, http.StatusNoContent, nil, nil, nil)
}

// sortQuery reads the optional sort hints; out-of-allow-list values are
// normalized downstream, never rejected.
func sortQuery(r *http.Request) service.ListQuery {
	q := r.URL.Query()
	return service.ListQuery{Sort: q.Get("sort"), Order: q.Get("order")}
}

// readPreconditions returns the If-None-Match tokens.
func readPreconditions(r *http.Request) []string {
	return etag.ParseHeader(r.Header.Get("If-None-Match"))
}

// entityHeaders marks reads as privately cacheable and carries the
// fingerprint callers need as their next precondition token.
func entityHeaders(tag string) map[string]string {
	return map[string]string{
		"Cache-Control": "private",
		"ETag":          tag,
	}
}

// writeCapabilities answers an introspection request: allowed methods,
// no body, publicly cacheable.
func writeCapabilities(w http.ResponseWriter, methods []string) {
	setCORS(w)
	w.Header().Set("Allow", strings.Join(methods, ","))
	w.Header().Set("Cache-Control", "public, immutable")
	w.WriteHeader(http.StatusNoContent)
}

// locationFor builds the location-style reference for a created result.
func locationFor(r *http.Request, id int64) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + ResultsPath + "/" + strconv.FormatInt(id, 10)
}

// itemID extracts the numeric id from an item path. Anything but a bare
// integer segment is treated as an unknown route.
func itemID(path, prefix string) (int64, bool) {
	rest := strings.TrimPrefix(path, prefix+"/")
	if rest == "" || strings.Contains(rest, "/") {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id < 0 {
		return 0, false
	}
	return id, true
}
