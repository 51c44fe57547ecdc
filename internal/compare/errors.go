package compare

import "fmt"

// ShapeError indicates a backend payload missing a field the normalizer
// depends on. It is fatal to that single transform and never coerced into an
// empty response, because an empty response would hide a broken backend
// contract.
type ShapeError struct {
	Reason string
}

func (e ShapeError) Error() string {
	return fmt.Sprintf("malformed comparison payload: %s", e.Reason)
}

// ValidationError indicates a request that was rejected before any network
// call was issued.
type ValidationError struct {
	Msg string
}

func (e ValidationError) Error() string {
	return e.Msg
}
