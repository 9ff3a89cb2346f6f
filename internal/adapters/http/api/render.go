package api

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"net/http"

	service "github.com/okian/tally/internal/app"
	"github.com/okian/tally/internal/domain/model"
)

// Message is the structured error payload: a numeric status-equivalent
// code plus a human-readable message.
type Message struct {
	XMLName xml.Name `json:"-" xml:"message"`
	Code    int      `json:"code" xml:"code"`
	Message string   `json:"message" xml:"message"`
}

// Envelope shapes mirroring the upstream wire bodies.
type (
	resultEnvelope struct {
		Result model.ResultWire `json:"result"`
	}
	resultsEnvelope struct {
		Results []resultEnvelope `json:"results"`
	}
	resultsXML struct {
		XMLName xml.Name           `xml:"results"`
		Results []model.ResultWire `xml:"result"`
	}
	userEnvelope struct {
		User model.UserWire `json:"user"`
	}
	usersEnvelope struct {
		Users []userEnvelope `json:"users"`
	}
	usersXML struct {
		XMLName xml.Name         `xml:"users"`
		Users   []model.UserWire `xml:"user"`
	}
)

func envelopeResults(rs []model.Result) (resultsEnvelope, resultsXML) {
	wires := model.WireAll(rs)
	j := resultsEnvelope{Results: make([]resultEnvelope, len(wires))}
	for i, w := range wires {
		j.Results[i] = resultEnvelope{Result: w}
	}
	return j, resultsXML{Results: wires}
}

func envelopeUsers(us []model.User) (usersEnvelope, usersXML) {
	wires := model.WireUsers(us)
	j := usersEnvelope{Users: make([]userEnvelope, len(wires))}
	for i, w := range wires {
		j.Users[i] = userEnvelope{User: w}
	}
	return j, usersXML{Users: wires}
}

// setCORS mirrors the upstream API's permissive CORS headers.
func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Credentials", "true")
}

// writeBody renders a response in the negotiated format. A nil jsonV
// writes headers and status only.
func writeBody(w http.ResponseWriter, f Format, status int, headers map[string]string, jsonV, xmlV any) {
	setCORS(w)
	for k, v := range headers {
		w.Header().Set(k, v)
	}
	if jsonV == nil {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", f.ContentType()+"; charset=utf-8")
	w.WriteHeader(status)
	if f == FormatXML {
		_, _ = w.Write([]byte(xml.Header))
		_ = xml.NewEncoder(w).Encode(xmlV)
		return
	}
	_ = json.NewEncoder(w).Encode(jsonV)
}

// writeMessage renders a structured error payload.
func writeMessage(w http.ResponseWriter, f Format, code int, msg string) {
	m := Message{Code: code, Message: msg}
	writeBody(w, f, code, nil, m, m)
}

// writeOutcome translates a coordinator error into the wire response.
func writeOutcome(w http.ResponseWriter, f Format, err error) {
	if errors.Is(err, service.ErrNotModified) {
		writeBody(w, f, http.StatusNotModified, nil, nil, nil)
		return
	}
	var se *service.StatusError
	if errors.As(err, &se) {
		writeMessage(w, f, se.Code, se.Message)
		return
	}
	if errors.Is(err, ErrBadPayload) {
		writeMessage(w, f, http.StatusBadRequest, err.Error())
		return
	}
	writeMessage(w, f, http.StatusInternalServerError, err.Error())
}
