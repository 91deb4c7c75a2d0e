package griddto

// Error codes returned by the HTTP API.
const (
	CodeEmptyInput   = "empty_input"
	CodeMalformedFEN = "malformed_fen"
	CodeNotReady     = "not_ready"
	CodeTooLarge     = "body_too_large"
	CodeRateLimited  = "rate_limited"
	CodeBadRequest   = "bad_request"
	CodeNotFound     = "not_found"
	CodeMethod       = "method_not_allowed"
	CodeInternal     = "internal"
)

type Error struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

func (e Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "fengrid service error"
}
