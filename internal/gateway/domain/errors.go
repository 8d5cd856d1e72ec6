package domain

// CardError means the gateway rejected the payment instrument itself. The
// message is the gateway's user-facing text and is safe to surface verbatim.
type CardError struct {
	Message string
}

func (e *CardError) Error() string { return e.Message }

// GatewayError covers every other remote-call fault: rate limiting, invalid
// request shape, authentication failure, connectivity, or anything
// unclassified. Not user-correctable in the moment.
type GatewayError struct {
	Message string
}

func (e *GatewayError) Error() string { return e.Message }
