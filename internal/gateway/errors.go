package gateway

import "errors"

var (
	// ErrUnauthorized is returned after a 401. The gateway has already
	// cleared local credentials and forced navigation to login; callers do
	// not need to re-handle the session themselves.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUnavailable covers timeouts, connection failures, 504 and other
	// 5xx responses: transient upstream unavailability, session preserved.
	ErrUnavailable = errors.New("server unavailable")

	// ErrNotFound signals a 404, which for a concept API means client or
	// deployment misconfiguration rather than missing data.
	ErrNotFound = errors.New("endpoint not found")

	// ErrNotAuthenticated is the precondition failure raised before any
	// network call when no identity/session is cached locally.
	ErrNotAuthenticated = errors.New("not authenticated")
)

// BusinessError is a domain validation failure the backend returns inside an
// HTTP 200 body as {"error": "..."}. It is recoverable and displayable.
type BusinessError struct {
	Message string
}

func (e *BusinessError) Error() string {
	return e.Message
}

// AsBusiness unwraps err into a BusinessError if it carries one.
func AsBusiness(err error) (*BusinessError, bool) {
	var be *BusinessError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}
