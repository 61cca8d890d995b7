package core

import "fmt"

// RequestError is a failure before the stream started: the endpoint could not
// be reached or answered with a non-200 status.
type RequestError struct {
	StatusCode int
	Message    string
	Code       string
	Err        error
}

func (e *RequestError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("chat request failed (%d): %s", e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("chat request failed (%d)", e.StatusCode)
	case e.Err != nil:
		return "chat request failed: " + e.Err.Error()
	default:
		return "chat request failed"
	}
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// StreamError is a failure after the stream started: a terminal error
// fragment, a malformed frame, or a body that ended early.
type StreamError struct {
	Text string
	Err  error
}

func (e *StreamError) Error() string {
	if e.Text != "" {
		return e.Text
	}
	if e.Err != nil {
		return "chat stream failed: " + e.Err.Error()
	}
	return "chat stream failed"
}

func (e *StreamError) Unwrap() error {
	return e.Err
}
