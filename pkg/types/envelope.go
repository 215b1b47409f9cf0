package types

// APIError is the public error payload.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope is the wire shape for failed requests.
type ErrorEnvelope struct {
	Success bool     `json:"success"`
	Error   APIError `json:"error"`
}
