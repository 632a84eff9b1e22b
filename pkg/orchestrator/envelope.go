package orchestrator

import "strings"

// Envelope is the CDN viewer-request/response shape: a single top-level
// Records slice, each wrapping one request (and, for a short-circuit
// response, a response alongside it).
type Envelope struct {
	Records []Record `json:"Records"`
}

// Record wraps one request/response pair.
type Record struct {
	CF CFEvent `json:"cf"`
}

// CFEvent holds the inbound request and, on a short-circuit outcome, the
// outbound response.
type CFEvent struct {
	Request  Request   `json:"request"`
	Response *Response `json:"response,omitempty"`
}

// HeaderKV mirrors the viewer-request header value shape: each header
// name maps to a list of {key, value} pairs rather than a bare string.
type HeaderKV struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Headers is keyed by lower-cased header name.
type Headers map[string][]HeaderKV

// Request is the inbound (and, on forward, outbound) request.
type Request struct {
	URI     string  `json:"uri"`
	Method  string  `json:"method,omitempty"`
	Headers Headers `json:"headers"`
}

// Response is a short-circuit outcome: a status, description, JSON body,
// and (on 429) the rate-limit headers.
type Response struct {
	Status            string  `json:"status"`
	StatusDescription string  `json:"statusDescription"`
	Body              string  `json:"body"`
	Headers           Headers `json:"headers,omitempty"`
}

// NewEnvelope wraps a single request as the sole record, matching the
// shape produced by a CDN viewer-request trigger.
func NewEnvelope(req Request) Envelope {
	return Envelope{Records: []Record{{CF: CFEvent{Request: req}}}}
}

func headerValue(h Headers, name string) (string, bool) {
	values, ok := h[strings.ToLower(name)]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0].Value, true
}

func setHeaderValue(h Headers, name, value string) {
	h[strings.ToLower(name)] = []HeaderKV{{Key: name, Value: value}}
}
