package api

import (
	"net/http"
	"strings"
)

// Format tags the wire representation of a response body.
type Format string

// Supported representation formats. JSON is the default.
const (
	FormatJSON Format = "json"
	FormatXML  Format = "xml"
)

// NegotiateFormat picks the response format from request hints: an
// explicit `_format` query parameter wins, otherwise the first acceptable
// content type decides, otherwise JSON.
func NegotiateFormat(r *http.Request) Format {
	switch r.URL.Query().Get("_format") {
	case string(FormatXML):
		return FormatXML
	case string(FormatJSON):
		return FormatJSON
	}
	first, _, _ := strings.Cut(r.Header.Get("Accept"), ",")
	first, _, _ = strings.Cut(first, ";")
	if strings.TrimSpace(first) == "application/xml" {
		return FormatXML
	}
	return FormatJSON
}

// ContentType returns the Content-Type header value for a format.
func (f Format) ContentType() string {
	if f == FormatXML {
		return "application/xml"
	}
	return "application/json"
}
