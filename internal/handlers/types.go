package handlers

import "strings"

// Request is the transport-neutral shape of an inbound call. An empty Body
// means no body was sent.
type Request struct {
	Method      string
	Path        string
	Headers     map[string]string
	QueryParams map[string]string
	Body        string
}

// Response is what the transport writes back.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       string
}

// Envelope is the JSON body of every non-preflight response.
type Envelope struct {
	Detail string `json:"detail"`
	Data   any    `json:"data"`
}

// lookup returns the value of name from m, matching case-insensitively when
// there is no exact key.
func lookup(m map[string]string, name string) string {
	if v, ok := m[name]; ok {
		return v
	}
	for k, v := range m {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}
