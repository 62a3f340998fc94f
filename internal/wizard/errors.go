package wizard

import "errors"

const (
	// ConnectivityMessage is shown when the booking endpoint cannot be reached
	// or fails without saying why.
	ConnectivityMessage = "We couldn't reach the server. Please check your connection and try again."
)

// ErrNotOnReviewStep is returned by Submit before the terminal step is reached.
var ErrNotOnReviewStep = errors.New("wizard: submission is only available on the review step")

// ValidationError blocks a transition; the flow stays on Step.
type ValidationError struct {
	Step    int
	Name    string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// TransportError wraps a failed call to the booking endpoint.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return ConnectivityMessage }

func (e *TransportError) Unwrap() error { return e.Err }

// ApplicationError is a non-2xx status or a success:false reply.
type ApplicationError struct {
	StatusCode int
	Message    string
}

func (e *ApplicationError) Error() string { return e.Message }

// UserMessage returns the text to show for any wizard error.
func UserMessage(err error) string {
	var v *ValidationError
	var a *ApplicationError
	var t *TransportError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &v):
		return v.Message
	case errors.As(err, &a):
		return a.Message
	case errors.As(err, &t):
		return t.Error()
	case errors.Is(err, ErrNotOnReviewStep):
		return "Please complete all steps before confirming."
	default:
		return ConnectivityMessage
	}
}

func newApplicationError(status int, msg string) *ApplicationError {
	if msg == "" {
		msg = ConnectivityMessage
	}
	return &ApplicationError{StatusCode: status, Message: msg}
}

