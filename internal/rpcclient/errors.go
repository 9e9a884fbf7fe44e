package rpcclient

import (
	"fmt"

	"github.com/qubickit/sdk-go/internal/sdkerr"
)

// RPCError is the structured transport failure described in spec.md §4.A:
// "Non-2xx responses fail with a structured error carrying {url, method,
// status, statusText, bodyText}."
type RPCError struct {
	URL        string
	Method     string
	Status     int
	StatusText string
	BodyText   string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpcclient: %s %s -> %d %s: %s", e.Method, e.URL, e.Status, e.StatusText, e.BodyText)
}

// SDKErrorKind implements sdkerr's kinded interface so KindOf resolves
// the rpc_request_failed kind from spec.md §7 for this transport error.
func (e *RPCError) SDKErrorKind() sdkerr.ErrorKind { return sdkerr.ErrKindRPCRequestFailed }

// InvalidJSONError wraps a JSON decoding failure on an otherwise-2xx
// response body (the rpc_invalid_json kind from spec.md §7).
type InvalidJSONError struct {
	URL        string
	Method     string
	Underlying error
}

func (e *InvalidJSONError) Error() string {
	return fmt.Sprintf("rpcclient: invalid JSON from %s %s: %v", e.Method, e.URL, e.Underlying)
}

func (e *InvalidJSONError) Unwrap() error { return e.Underlying }

// SDKErrorKind implements sdkerr's kinded interface so KindOf resolves
// the rpc_invalid_json kind from spec.md §7 for this transport error.
func (e *InvalidJSONError) SDKErrorKind() sdkerr.ErrorKind { return sdkerr.ErrKindRPCInvalidJSON }
