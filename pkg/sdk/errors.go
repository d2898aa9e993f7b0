package raggate

import "fmt"

// Error codes returned in the gateway's structured error payload.
const (
	CodeBadRequest        = "bad_request"
	CodeValidationFailed  = "validation_failed"
	CodeUnauthorized      = "unauthorized"
	CodeDocumentNotFound  = "document_not_found"
	CodeVectorDimMismatch = "vector_dim_mismatch"
	CodeRateLimited       = "rate_limited"
	CodeModelProvider     = "model_provider_error"
	CodeStoreUnavailable  = "store_unavailable"
	CodeInternalError     = "internal_error"
)

// APIError is a non-2xx gateway response. Use errors.As to inspect
// the code and HTTP status.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("raggate: %s (%s, http %d)", e.Message, e.Code, e.StatusCode)
}

// IsRetryable reports whether the request may succeed when retried
// later: rate limits and upstream unavailability.
func (e *APIError) IsRetryable() bool {
	switch e.Code {
	case CodeRateLimited, CodeStoreUnavailable, CodeModelProvider:
		return true
	}
	return false
}
