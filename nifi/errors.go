package nifi

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound is returned when the server reports 404 for a component, or a
// lookup by name matches nothing.
var ErrNotFound = errors.New("not_found")

// UnreachableError reports that the reachability probe at client
// construction failed.
type UnreachableError struct {
	URL string
	Err error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("could not connect to endpoint %s, make sure the URL carries the scheme, hostname and port, e.g. http://myhost.example.com:9090: %v", e.URL, e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

// StateTransitionError reports a state change that was skipped because the
// component's current state cannot be transitioned out of on this endpoint.
type StateTransitionError struct {
	Id   string
	From State
	To   State
}

func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("component %s can not change from %s to %s in this request", e.Id, e.From, e.To)
}

// RemoteError reports a non-success response from the server.
type RemoteError struct {
	Status int
	Body   string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("the call has failed with the code of %d , the result is %s", e.Status, e.Body)
}

// VersionConflictError reports a write rejected because the submitted
// revision went stale between the read and the write. The caller has to
// re-issue the whole operation; the client never retries on its own.
type VersionConflictError struct {
	Status int
	Body   string
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("revision conflict, the submitted version is stale: %s", e.Body)
}

// MalformedResponseError reports a response whose shape does not match the
// expected component/revision structure.
type MalformedResponseError struct {
	URL    string
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response from %s: %s", e.URL, e.Reason)
}

func remoteError(status int, body string) error {
	if status == http.StatusConflict {
		return &VersionConflictError{Status: status, Body: body}
	}
	return &RemoteError{Status: status, Body: body}
}
